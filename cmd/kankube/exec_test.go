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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kankube-io/kankube/pkg/resource"
)

func execPod(name, phase string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": "staging",
		},
		"status": map[string]interface{}{
			"phase": phase,
		},
	}}
}

func execDeployment(t *testing.T) resource.Resource {
	t.Helper()
	return mustResource(t, "Deployment", "app", "staging", map[string]interface{}{
		"spec": map[string]interface{}{
			"template": map[string]interface{}{
				"metadata": map[string]interface{}{
					"labels": map[string]interface{}{"app": "app"},
				},
			},
		},
	})
}

func TestExecInPods(t *testing.T) {
	ctx := context.Background()
	command := []string{"ls", "-la"}

	t.Run("skips unhealthy pods", func(t *testing.T) {
		kube := newFakeBackend()
		running := execPod("app-1", "Running")
		pending := execPod("app-2", "Pending")
		kube.pods = []*unstructured.Unstructured{running, pending}
		kube.objects["Pod/staging/app-1"] = running
		kube.objects["Pod/staging/app-2"] = pending

		if err := execInPods(ctx, kube, []resource.Resource{execDeployment(t)}, command); err != nil {
			t.Fatal(err)
		}

		if diff := cmp.Diff([]string{"app-1"}, kube.execCalls); diff != "" {
			t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
		}
	})

	t.Run("raises remote command failures", func(t *testing.T) {
		kube := newFakeBackend()
		running := execPod("app-1", "Running")
		kube.pods = []*unstructured.Unstructured{running}
		kube.objects["Pod/staging/app-1"] = running
		kube.execErr = errors.New("command terminated with exit code 2")

		err := execInPods(ctx, kube, []resource.Resource{execDeployment(t)}, command)
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("resources without pods are skipped", func(t *testing.T) {
		kube := newFakeBackend()
		res := mustResource(t, "ConfigMap", "app-config", "staging", nil)

		if err := execInPods(ctx, kube, []resource.Resource{res}, command); err != nil {
			t.Fatal(err)
		}
		if len(kube.execCalls) != 0 {
			t.Errorf("expected no exec calls, got %v", kube.execCalls)
		}
	})
}
