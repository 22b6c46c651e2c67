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
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var VERSION = "1.0.0-dev.0"

const PROJECT = "kankube"

var rootCmd = &cobra.Command{
	Use:           PROJECT,
	Version:       VERSION,
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "A command line utility to apply namespaced Kubernetes manifests with per-namespace substitutions.",
	Long: `Kankube applies declarative Kubernetes manifests to a cluster,
substituting per-namespace values into the manifest text before submission.

The namespace and the substitution config are resolved by walking up the
directory tree from each manifest: a .namespace marker file names the
namespace, a kankube.yml file carries namespaceSubstitutions.

Manage manifest files:

- kankube get <file>... [-o yaml|json]
- kankube create <file>...
- kankube apply <file>...
- kankube delete <file>...

Inspect the cluster:

- kankube status <file>...
- kankube exec <file>... -c <command>
- kankube config --get <key>
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

type rootFlags struct {
	namespace string
	kinds     []string
	host      string
	token     string
	username  string
	password  string
	backend   string
	timeout   time.Duration
	verbose   bool
}

var rootArgs = rootFlags{}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootArgs.namespace, "namespace", "",
		"The namespace to submit resources to. Defaults to the .namespace marker found above each manifest.")
	rootCmd.PersistentFlags().StringSliceVar(&rootArgs.kinds, "kind", nil,
		"Only act on resources of this kind. Can be specified multiple times.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.host, "host", os.Getenv("KUBERNETES_HOST"),
		"The Kubernetes API server URL.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.token, "token", os.Getenv("KUBERNETES_TOKEN"),
		"A bearer token for the Kubernetes API.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.username, "username", os.Getenv("KUBERNETES_USERNAME"),
		"A basic auth username for the Kubernetes API.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.password, "password", os.Getenv("KUBERNETES_PASSWORD"),
		"A basic auth password for the Kubernetes API.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.backend, "backend", "client",
		"How to reach the cluster: 'client' talks to the API directly, 'kubectl' spawns the kubectl binary.")
	rootCmd.PersistentFlags().DurationVar(&rootArgs.timeout, "timeout", time.Minute,
		"The length of time to wait before giving up on the current operation.")
	rootCmd.PersistentFlags().BoolVar(&rootArgs.verbose, "verbose", false,
		"Log every backend invocation and its output.")

	rootCmd.DisableAutoGenTag = true
	rootCmd.SetOut(os.Stdout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, `✗`, err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := zerolog.InfoLevel
	if rootArgs.verbose {
		level = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger().Level(level)
}
