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

package backend

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/scheme"

	"github.com/kankube-io/kankube/pkg/resource"
)

func newFakeClient(objects ...runtime.Object) *Client {
	return &Client{dyn: dynamicfake.NewSimpleDynamicClient(scheme.Scheme, objects...)}
}

func clientDeployment(t *testing.T, namespace string) resource.Resource {
	t.Helper()

	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]interface{}{
			"name": "app",
		},
		"spec": map[string]interface{}{
			"replicas": int64(1),
		},
	}}

	res, err := resource.New(obj, namespace)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func clientPod(name, namespace string, labels map[string]interface{}) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
			"labels":    labels,
		},
	}}
}

func TestClientCreateAndExists(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	res := clientDeployment(t, "staging")

	exists, err := client.Exists(ctx, res)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected the resource to be absent")
	}

	if err := client.Create(ctx, res); err != nil {
		t.Fatal(err)
	}
	if res.Remote() == nil {
		t.Error("expected the remote state to be populated after create")
	}

	exists, err = client.Exists(ctx, res)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected the resource to exist after create")
	}
}

func TestClientRefresh(t *testing.T) {
	ctx := context.Background()
	res := clientDeployment(t, "staging")

	remote := res.Local().DeepCopy()
	remote.SetNamespace("staging")
	unstructured.SetNestedField(remote.Object, int64(1), "status", "replicas")

	client := newFakeClient(remote)
	if err := client.Refresh(ctx, res); err != nil {
		t.Fatal(err)
	}

	replicas, _, err := unstructured.NestedInt64(res.Remote().Object, "status", "replicas")
	if err != nil || replicas != 1 {
		t.Errorf("unexpected remote status, replicas %d, err %v", replicas, err)
	}

	t.Run("fails for an absent resource", func(t *testing.T) {
		missing := clientDeployment(t, "production")
		if err := newFakeClient().Refresh(ctx, missing); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestClientUpdate(t *testing.T) {
	ctx := context.Background()
	res := clientDeployment(t, "staging")

	remote := res.Local().DeepCopy()
	remote.SetNamespace("staging")
	remote.SetResourceVersion("41")

	client := newFakeClient(remote)

	unstructured.SetNestedField(res.Local().Object, int64(3), "spec", "replicas")
	if err := client.Update(ctx, res); err != nil {
		t.Fatal(err)
	}

	replicas, _, err := unstructured.NestedInt64(res.Remote().Object, "spec", "replicas")
	if err != nil || replicas != 3 {
		t.Errorf("unexpected replicas %d, err %v", replicas, err)
	}
}

func TestClientDelete(t *testing.T) {
	ctx := context.Background()
	res := clientDeployment(t, "staging")

	remote := res.Local().DeepCopy()
	remote.SetNamespace("staging")

	client := newFakeClient(remote)
	if err := client.Delete(ctx, res); err != nil {
		t.Fatal(err)
	}

	exists, err := client.Exists(ctx, res)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("expected the resource to be gone")
	}

	t.Run("absent resources are a no-op", func(t *testing.T) {
		if err := client.Delete(ctx, res); err != nil {
			t.Fatal(err)
		}
	})
}

func TestClientListPods(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient(
		clientPod("app-1", "staging", map[string]interface{}{"app": "app"}),
		clientPod("app-2", "staging", map[string]interface{}{"app": "app"}),
		clientPod("other-1", "staging", map[string]interface{}{"app": "other"}),
		clientPod("app-3", "production", map[string]interface{}{"app": "app"}),
	)

	t.Run("filters by selector and namespace", func(t *testing.T) {
		pods, err := client.ListPods(ctx, "staging", map[string]string{"app": "app"})
		if err != nil {
			t.Fatal(err)
		}

		var names []string
		for _, pod := range pods {
			names = append(names, pod.GetName())
		}
		if diff := cmp.Diff([]string{"app-1", "app-2"}, names); diff != "" {
			t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
		}
	})

	t.Run("lists all pods without a selector", func(t *testing.T) {
		pods, err := client.ListPods(ctx, "staging", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(pods) != 3 {
			t.Errorf("expected 3 pods, got %d", len(pods))
		}
	})
}
