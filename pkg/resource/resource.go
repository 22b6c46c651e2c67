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

package resource

import (
	"context"
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Kind is one of the supported resource kinds. The set is closed:
// manifests carrying any other kind are rejected at load time.
type Kind string

const (
	KindConfigMap  Kind = "ConfigMap"
	KindDeployment Kind = "Deployment"
	KindIngress    Kind = "Ingress"
	KindNamespace  Kind = "Namespace"
	KindPod        Kind = "Pod"
	KindSecret     Kind = "Secret"
	KindService    Kind = "Service"
)

// UnknownKindError reports a manifest document whose kind is outside
// the supported set.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown resource kind %q", e.Kind)
}

// PodLister lists pods in a namespace, optionally filtered by a label
// selector. It is implemented by the backend adapters.
type PodLister interface {
	ListPods(ctx context.Context, namespace string, selector map[string]string) ([]*unstructured.Unstructured, error)
}

// Resource is one manifest document bound to its resolved namespace.
// The remote document is nil until a refresh populates it.
type Resource interface {
	Kind() Kind
	Name() string
	Namespace() string
	Namespaced() bool
	GroupVersionResource() schema.GroupVersionResource

	Local() *unstructured.Unstructured
	Remote() *unstructured.Unstructured
	SetRemote(*unstructured.Unstructured)

	Spec() (map[string]interface{}, bool)
	InnerSpec() (map[string]interface{}, bool)

	// Pods resolves the pods owned by or matching this resource.
	// Kinds without pod discovery return nil.
	Pods(ctx context.Context, lister PodLister) ([]Resource, error)

	fmt.Stringer
}

type base struct {
	kind             Kind
	local            *unstructured.Unstructured
	remote           *unstructured.Unstructured
	defaultNamespace string
}

func (b *base) Kind() Kind                             { return b.kind }
func (b *base) Name() string                           { return b.local.GetName() }
func (b *base) Local() *unstructured.Unstructured      { return b.local }
func (b *base) Remote() *unstructured.Unstructured     { return b.remote }
func (b *base) SetRemote(u *unstructured.Unstructured) { b.remote = u }

func (b *base) Namespace() string {
	if !b.Namespaced() {
		return ""
	}
	if ns := b.local.GetNamespace(); ns != "" {
		return ns
	}
	return b.defaultNamespace
}

func (b *base) Namespaced() bool {
	return b.kind != KindNamespace
}

func (b *base) GroupVersionResource() schema.GroupVersionResource {
	return kindGVRs[b.kind]
}

func (b *base) Spec() (map[string]interface{}, bool) {
	spec, found, err := unstructured.NestedMap(b.local.Object, "spec")
	if err != nil || !found {
		return nil, false
	}
	return spec, true
}

func (b *base) InnerSpec() (map[string]interface{}, bool) {
	inner, found, err := unstructured.NestedMap(b.local.Object, "spec", "template", "spec")
	if err == nil && found {
		return inner, true
	}
	return b.Spec()
}

func (b *base) Pods(ctx context.Context, lister PodLister) ([]Resource, error) {
	return nil, nil
}

func (b *base) String() string {
	if ns := b.Namespace(); ns != "" {
		return fmt.Sprintf("%s (%s) in %s", b.Name(), b.kind, ns)
	}
	return fmt.Sprintf("%s (%s)", b.Name(), b.kind)
}

// ConfigMap has no pod discovery.
type ConfigMap struct{ base }

// Ingress has no pod discovery.
type Ingress struct{ base }

// Secret has no pod discovery.
type Secret struct{ base }

// Deployment discovers pods through its pod template labels.
type Deployment struct{ base }

func (d *Deployment) Pods(ctx context.Context, lister PodLister) ([]Resource, error) {
	selector, found, err := unstructured.NestedStringMap(d.local.Object, "spec", "template", "metadata", "labels")
	if err != nil || !found || len(selector) == 0 {
		return nil, nil
	}
	return listPods(ctx, lister, d.Namespace(), selector)
}

// Namespace discovers every pod in the namespace it names.
type Namespace struct{ base }

func (n *Namespace) Pods(ctx context.Context, lister PodLister) ([]Resource, error) {
	return listPods(ctx, lister, n.Name(), nil)
}

// Pod discovers itself.
type Pod struct{ base }

func (p *Pod) Pods(ctx context.Context, lister PodLister) ([]Resource, error) {
	return []Resource{p}, nil
}

// Service discovers pods through its selector, when it has one.
type Service struct{ base }

func (s *Service) Pods(ctx context.Context, lister PodLister) ([]Resource, error) {
	selector, found, err := unstructured.NestedStringMap(s.local.Object, "spec", "selector")
	if err != nil || !found || len(selector) == 0 {
		return nil, nil
	}
	return listPods(ctx, lister, s.Namespace(), selector)
}

var constructors = map[Kind]func(base) Resource{
	KindConfigMap:  func(b base) Resource { return &ConfigMap{b} },
	KindDeployment: func(b base) Resource { return &Deployment{b} },
	KindIngress:    func(b base) Resource { return &Ingress{b} },
	KindNamespace:  func(b base) Resource { return &Namespace{b} },
	KindPod:        func(b base) Resource { return &Pod{b} },
	KindSecret:     func(b base) Resource { return &Secret{b} },
	KindService:    func(b base) Resource { return &Service{b} },
}

var kindGVRs = map[Kind]schema.GroupVersionResource{
	KindConfigMap:  {Version: "v1", Resource: "configmaps"},
	KindDeployment: {Group: "apps", Version: "v1", Resource: "deployments"},
	KindIngress:    {Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"},
	KindNamespace:  {Version: "v1", Resource: "namespaces"},
	KindPod:        {Version: "v1", Resource: "pods"},
	KindSecret:     {Version: "v1", Resource: "secrets"},
	KindService:    {Version: "v1", Resource: "services"},
}

// New wraps a parsed manifest document in its kind-specific Resource.
// The document must carry a supported kind and a metadata.name.
func New(obj *unstructured.Unstructured, defaultNamespace string) (Resource, error) {
	kind := Kind(obj.GetKind())
	ctor, ok := constructors[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: obj.GetKind()}
	}

	if obj.GetName() == "" {
		return nil, fmt.Errorf("%s document has no metadata.name", kind)
	}

	return ctor(base{kind: kind, local: obj, defaultNamespace: defaultNamespace}), nil
}

// Kinds returns the supported kinds in lexical order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(constructors))
	for kind := range constructors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func listPods(ctx context.Context, lister PodLister, namespace string, selector map[string]string) ([]Resource, error) {
	items, err := lister.ListPods(ctx, namespace, selector)
	if err != nil {
		return nil, err
	}

	pods := make([]Resource, 0, len(items))
	for _, item := range items {
		pod, err := New(item, namespace)
		if err != nil {
			return nil, err
		}
		pods = append(pods, pod)
	}
	return pods, nil
}
