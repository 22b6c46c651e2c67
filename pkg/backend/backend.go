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

// Package backend submits resources to the cluster, either through the
// Kubernetes API client or by spawning kubectl.
package backend

import (
	"context"

	"github.com/kankube-io/kankube/pkg/resource"
)

// Backend performs the remote operations for a single resource. Every
// operation is namespace-scoped when the resource is namespaced.
type Backend interface {
	resource.PodLister

	// Exists reports whether the resource is present on the cluster.
	Exists(ctx context.Context, res resource.Resource) (bool, error)

	// Refresh fetches the remote state and stores it on the resource.
	Refresh(ctx context.Context, res resource.Resource) error

	// Create submits the local document as a new object.
	Create(ctx context.Context, res resource.Resource) error

	// Update replaces the remote object with the local document.
	Update(ctx context.Context, res resource.Resource) error

	// Delete removes the remote object; absent objects are a no-op.
	Delete(ctx context.Context, res resource.Resource) error

	// Exec runs a command inside the given pod and returns its
	// captured output.
	Exec(ctx context.Context, pod resource.Resource, command []string) (string, error)
}
