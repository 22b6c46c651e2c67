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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kankube-io/kankube/pkg/backend"
	"github.com/kankube-io/kankube/pkg/resource"
	"github.com/kankube-io/kankube/pkg/status"
)

var statusCmd = &cobra.Command{
	Use:   "status <file>...",
	Short: "Status refreshes every resource in the given manifests and reports whether it is healthy.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
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

	unhealthy, rows, err := statusResources(ctx, kube, resources)
	if err != nil {
		return err
	}

	printTable(rootCmd.OutOrStdout(), []string{"name", "kind", "namespace", "status", "detail"}, rows)

	if unhealthy > 0 {
		return fmt.Errorf("%d of %d resource(s) unhealthy", unhealthy, len(resources))
	}
	return nil
}

// statusResources refreshes and evaluates every resource. Evaluation
// is never short-circuited: each resource gets a log line and a table
// row regardless of the verdict.
func statusResources(ctx context.Context, kube backend.Backend, resources []resource.Resource) (int, [][]string, error) {
	unhealthy := 0
	var rows [][]string

	for _, res := range resources {
		if err := kube.Refresh(ctx, res); err != nil {
			return unhealthy, rows, err
		}

		result := status.Evaluate(res)
		verdict := "healthy"
		if result.Healthy {
			log.Info().Msgf("%s: %s", res, result.Detail)
		} else {
			unhealthy++
			verdict = "unhealthy"
			log.Warn().Msgf("%s is unhealthy: %s", res, result.Detail)
		}

		rows = append(rows, []string{res.Name(), string(res.Kind()), res.Namespace(), verdict, result.Detail})
	}

	return unhealthy, rows, nil
}
