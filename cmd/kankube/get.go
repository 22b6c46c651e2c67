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
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var getCmd = &cobra.Command{
	Use:   "get <file>...",
	Short: "Get fetches the remote state of every resource in the given manifests and prints it.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGetCmd,
}

type getFlags struct {
	output string
}

var getArgs getFlags

func init() {
	getCmd.Flags().StringVarP(&getArgs.output, "output", "o", "yaml", "The output format: 'yaml' or 'json'.")

	rootCmd.AddCommand(getCmd)
}

func runGetCmd(cmd *cobra.Command, args []string) error {
	resources, err := loadResources(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	kube, err := newBackend(ctx)
	if err != nil {
		return err
	}

	for _, res := range resources {
		if err := kube.Refresh(ctx, res); err != nil {
			return err
		}

		var data []byte
		switch getArgs.output {
		case "json":
			data, err = json.MarshalIndent(res.Remote().Object, "", "    ")
		case "yaml":
			data, err = yaml.Marshal(res.Remote().Object)
		default:
			return fmt.Errorf("unknown output format %q", getArgs.output)
		}
		if err != nil {
			return err
		}

		log.Info().Msg(res.String())
		fmt.Fprintln(rootCmd.OutOrStdout(), string(data))
	}

	return nil
}
