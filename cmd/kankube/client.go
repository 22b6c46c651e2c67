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

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kankube-io/kankube/pkg/backend"
)

// newBackend builds the backend selected by --backend.
func newBackend(ctx context.Context) (backend.Backend, error) {
	switch rootArgs.backend {
	case "client":
		cfg, err := newRESTConfig()
		if err != nil {
			return nil, err
		}
		return backend.NewClient(cfg)
	case "kubectl":
		return backend.NewKubectl(ctx)
	default:
		return nil, fmt.Errorf("unknown backend %q, expected 'client' or 'kubectl'", rootArgs.backend)
	}
}

// newRESTConfig builds the API client configuration from the
// credential flags, falling back to the kubeconfig default loading
// rules when none are given.
func newRESTConfig() (*rest.Config, error) {
	if rootArgs.host != "" || rootArgs.token != "" || rootArgs.username != "" || rootArgs.password != "" {
		return &rest.Config{
			Host:        rootArgs.host,
			BearerToken: rootArgs.token,
			Username:    rootArgs.username,
			Password:    rootArgs.password,
		}, nil
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("you must provide a host, username/password, token, or a kubeconfig file: %w", err)
	}
	return cfg, nil
}
