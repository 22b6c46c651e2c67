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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kankube-io/kankube/pkg/backend"
	"github.com/kankube-io/kankube/pkg/resource"
)

var createCmd = &cobra.Command{
	Use:   "create <file>...",
	Short: "Create submits every resource in the given manifests that does not exist yet.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCreateCmd,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreateCmd(cmd *cobra.Command, args []string) error {
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

	return createResources(ctx, kube, resources)
}

// createResources submits every resource that does not exist yet;
// existing resources are left untouched.
func createResources(ctx context.Context, kube backend.Backend, resources []resource.Resource) error {
	for _, res := range resources {
		exists, err := kube.Exists(ctx, res)
		if err != nil {
			return err
		}
		if exists {
			log.Info().Msgf("%s already exists", res)
			continue
		}

		log.Info().Msgf("creating %s", res)
		if err := kube.Create(ctx, res); err != nil {
			return err
		}
	}

	return nil
}
