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
	"testing"

	"github.com/kankube-io/kankube/pkg/resource"
)

func healthyDeployment(t *testing.T, name string) resource.Resource {
	t.Helper()
	return mustResource(t, "Deployment", name, "staging", map[string]interface{}{
		"metadata": map[string]interface{}{
			"name":       name,
			"generation": int64(4),
		},
		"status": map[string]interface{}{
			"replicas":            int64(3),
			"availableReplicas":   int64(3),
			"unavailableReplicas": int64(0),
			"updatedReplicas":     int64(3),
			"observedGeneration":  int64(4),
		},
	})
}

func TestStatusResources(t *testing.T) {
	ctx := context.Background()

	t.Run("all healthy", func(t *testing.T) {
		kube := newFakeBackend()
		res := healthyDeployment(t, "app")
		kube.put(res, res.Local().DeepCopy())

		unhealthy, rows, err := statusResources(ctx, kube, []resource.Resource{res})
		if err != nil {
			t.Fatal(err)
		}
		if unhealthy != 0 {
			t.Errorf("expected 0 unhealthy, got %d", unhealthy)
		}
		if len(rows) != 1 {
			t.Errorf("expected 1 row, got %d", len(rows))
		}
	})

	t.Run("keeps evaluating after an unhealthy resource", func(t *testing.T) {
		kube := newFakeBackend()

		lagging := healthyDeployment(t, "lagging")
		remote := lagging.Local().DeepCopy()
		remote.Object["status"].(map[string]interface{})["updatedReplicas"] = int64(2)
		kube.put(lagging, remote)

		healthy := healthyDeployment(t, "healthy")
		kube.put(healthy, healthy.Local().DeepCopy())

		unsupported := mustResource(t, "Service", "app", "staging", nil)
		kube.put(unsupported, unsupported.Local().DeepCopy())

		unhealthy, rows, err := statusResources(ctx, kube, []resource.Resource{lagging, healthy, unsupported})
		if err != nil {
			t.Fatal(err)
		}
		if unhealthy != 2 {
			t.Errorf("expected 2 unhealthy, got %d", unhealthy)
		}
		if len(rows) != 3 {
			t.Errorf("expected every resource evaluated, got %d rows", len(rows))
		}
		if kube.refreshs != 3 {
			t.Errorf("expected every resource refreshed, got %d", kube.refreshs)
		}
	})
}
