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
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kankube-io/kankube/pkg/resource"
)

// fakeBackend keeps remote state in memory and counts operations.
type fakeBackend struct {
	objects map[string]*unstructured.Unstructured
	pods    []*unstructured.Unstructured

	creates  int
	updates  int
	deletes  int
	refreshs int

	execErr   error
	execCalls []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: map[string]*unstructured.Unstructured{}}
}

func backendKey(res resource.Resource) string {
	return fmt.Sprintf("%s/%s/%s", res.Kind(), res.Namespace(), res.Name())
}

func (f *fakeBackend) put(res resource.Resource, obj *unstructured.Unstructured) {
	f.objects[backendKey(res)] = obj
}

func (f *fakeBackend) Exists(ctx context.Context, res resource.Resource) (bool, error) {
	_, ok := f.objects[backendKey(res)]
	return ok, nil
}

func (f *fakeBackend) Refresh(ctx context.Context, res resource.Resource) error {
	f.refreshs++
	obj, ok := f.objects[backendKey(res)]
	if !ok {
		return fmt.Errorf("get %s failed: not found", res)
	}
	res.SetRemote(obj)
	return nil
}

func (f *fakeBackend) Create(ctx context.Context, res resource.Resource) error {
	f.creates++
	f.objects[backendKey(res)] = res.Local().DeepCopy()
	return nil
}

func (f *fakeBackend) Update(ctx context.Context, res resource.Resource) error {
	f.updates++
	f.objects[backendKey(res)] = res.Local().DeepCopy()
	return nil
}

func (f *fakeBackend) Delete(ctx context.Context, res resource.Resource) error {
	f.deletes++
	delete(f.objects, backendKey(res))
	return nil
}

func (f *fakeBackend) ListPods(ctx context.Context, namespace string, selector map[string]string) ([]*unstructured.Unstructured, error) {
	return f.pods, nil
}

func (f *fakeBackend) Exec(ctx context.Context, pod resource.Resource, command []string) (string, error) {
	f.execCalls = append(f.execCalls, pod.Name())
	if f.execErr != nil {
		return "", f.execErr
	}
	return "ok", nil
}

func mustResource(t *testing.T, kind, name, namespace string, fields map[string]interface{}) resource.Resource {
	t.Helper()

	obj := map[string]interface{}{
		"apiVersion": "v1",
		"kind":       kind,
		"metadata": map[string]interface{}{
			"name": name,
		},
	}
	if kind == "Deployment" {
		obj["apiVersion"] = "apps/v1"
	}
	for k, v := range fields {
		obj[k] = v
	}

	res, err := resource.New(&unstructured.Unstructured{Object: obj}, namespace)
	if err != nil {
		t.Fatal(err)
	}
	return res
}
