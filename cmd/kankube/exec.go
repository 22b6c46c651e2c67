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
	"fmt"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kankube-io/kankube/pkg/backend"
	"github.com/kankube-io/kankube/pkg/resource"
	"github.com/kankube-io/kankube/pkg/status"
)

var execCmd = &cobra.Command{
	Use:   "exec <file>... -c <command>",
	Short: "Exec runs a command inside every healthy pod discovered through the given manifests.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExecCmd,
}

type execFlags struct {
	command string
}

var execArgs execFlags

func init() {
	execCmd.Flags().StringVarP(&execArgs.command, "command", "c", "", "The command to run inside each pod.")

	rootCmd.AddCommand(execCmd)
}

func runExecCmd(cmd *cobra.Command, args []string) error {
	if execArgs.command == "" {
		return fmt.Errorf("-c is required")
	}

	command, err := shellwords.Parse(execArgs.command)
	if err != nil {
		return fmt.Errorf("parsing command failed: %w", err)
	}
	if len(command) == 0 {
		return fmt.Errorf("-c is required")
	}

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

	return execInPods(ctx, kube, resources, command)
}

// execInPods runs command inside every healthy pod discovered through
// the given resources. Unhealthy pods are skipped with a warning; a
// remote command failure aborts the remaining pods.
func execInPods(ctx context.Context, kube backend.Backend, resources []resource.Resource, command []string) error {
	for _, res := range resources {
		pods, err := res.Pods(ctx, kube)
		if err != nil {
			return err
		}
		if len(pods) == 0 {
			log.Info().Msgf("%s has no pods", res)
			continue
		}

		for _, pod := range pods {
			if err := kube.Refresh(ctx, pod); err != nil {
				return err
			}

			if result := status.Evaluate(pod); !result.Healthy {
				log.Warn().Msgf("skipping %s: %s", pod, result.Detail)
				continue
			}

			output, err := kube.Exec(ctx, pod, command)
			if err != nil {
				return err
			}
			log.Info().Msgf("%s:\n%s", pod, output)
		}
	}

	return nil
}
