/*
Copyright 2024 The kankube authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kankube-io/kankube/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config --get <key>",
	Short: "Config prints a substitution value from the kankube.yml resolved for the working directory.",
	RunE:  runConfigCmd,
}

type configFlags struct {
	get string
}

var configArgs configFlags

func init() {
	configCmd.Flags().StringVar(&configArgs.get, "get", "", "The substitution key to print.")

	rootCmd.AddCommand(configCmd)
}

func runConfigCmd(cmd *cobra.Command, args []string) error {
	if configArgs.get == "" {
		return fmt.Errorf("--get is required")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := config.Find(cwd)
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no %s found above %s", config.ConfigFile, cwd)
	}

	namespace := rootArgs.namespace
	if namespace == "" {
		if namespace, err = config.FindNamespace(cwd); err != nil {
			return err
		}
	}

	subs := cfg.Substitutions(namespace)
	if subs == nil {
		return fmt.Errorf("no substitutions for namespace %q", namespace)
	}

	if value, ok := subs[configArgs.get]; ok {
		fmt.Fprintln(rootCmd.OutOrStdout(), value)
	}
	return nil
}
