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
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"

	"github.com/kankube-io/kankube/pkg/resource"
)

var podsGVR = schema.GroupVersionResource{Version: "v1", Resource: "pods"}

// Client submits resources through the Kubernetes API using a dynamic
// client. Pod exec goes through the core API's exec subresource.
type Client struct {
	dyn        dynamic.Interface
	kube       kubernetes.Interface
	restConfig *rest.Config
}

// NewClient builds a Client from the given REST configuration.
func NewClient(restConfig *rest.Config) (*Client, error) {
	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("kubernetes client initialization failed: %w", err)
	}

	kube, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("kubernetes client initialization failed: %w", err)
	}

	return &Client{dyn: dyn, kube: kube, restConfig: restConfig}, nil
}

func (c *Client) Exists(ctx context.Context, res resource.Resource) (bool, error) {
	_, err := c.resourceFor(res).Get(ctx, res.Name(), metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s failed: %w", res, err)
	}
	return true, nil
}

func (c *Client) Refresh(ctx context.Context, res resource.Resource) error {
	log.Debug().Stringer("resource", res).Msg("refreshing remote state")

	remote, err := c.resourceFor(res).Get(ctx, res.Name(), metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get %s failed: %w", res, err)
	}

	res.SetRemote(remote)
	return nil
}

func (c *Client) Create(ctx context.Context, res resource.Resource) error {
	log.Debug().Stringer("resource", res).Msg("creating")

	created, err := c.resourceFor(res).Create(ctx, res.Local(), metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("create %s failed: %w", res, err)
	}

	res.SetRemote(created)
	return nil
}

// Update replaces the remote object in place, carrying over the remote
// resource version so the API server accepts the write.
func (c *Client) Update(ctx context.Context, res resource.Resource) error {
	log.Debug().Stringer("resource", res).Msg("updating")

	remote, err := c.resourceFor(res).Get(ctx, res.Name(), metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get %s failed: %w", res, err)
	}

	desired := res.Local().DeepCopy()
	desired.SetResourceVersion(remote.GetResourceVersion())

	updated, err := c.resourceFor(res).Update(ctx, desired, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("update %s failed: %w", res, err)
	}

	res.SetRemote(updated)
	return nil
}

func (c *Client) Delete(ctx context.Context, res resource.Resource) error {
	log.Debug().Stringer("resource", res).Msg("deleting")

	err := c.resourceFor(res).Delete(ctx, res.Name(), metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete %s failed: %w", res, err)
	}
	return nil
}

func (c *Client) ListPods(ctx context.Context, namespace string, selector map[string]string) ([]*unstructured.Unstructured, error) {
	opts := metav1.ListOptions{}
	if len(selector) > 0 {
		opts.LabelSelector = labels.Set(selector).String()
	}

	log.Debug().Str("namespace", namespace).Str("selector", opts.LabelSelector).Msg("listing pods")

	list, err := c.dyn.Resource(podsGVR).Namespace(namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing pods in %s failed: %w", namespace, err)
	}

	pods := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		pods = append(pods, &list.Items[i])
	}
	return pods, nil
}

func (c *Client) Exec(ctx context.Context, pod resource.Resource, command []string) (string, error) {
	log.Debug().Stringer("pod", pod).Strs("command", command).Msg("executing")

	req := c.kube.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(pod.Name()).
		Namespace(pod.Namespace()).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Command: command,
			Stdout:  true,
			Stderr:  true,
		}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(c.restConfig, "POST", req.URL())
	if err != nil {
		return "", fmt.Errorf("exec in %s failed: %w", pod, err)
	}

	var stdout, stderr bytes.Buffer
	err = executor.Stream(remotecommand.StreamOptions{Stdout: &stdout, Stderr: &stderr})
	output := stdout.String() + stderr.String()
	if err != nil {
		log.Error().Stringer("pod", pod).Str("output", output).Err(err).Msg("remote command failed")
		return output, fmt.Errorf("exec in %s failed: %w", pod, err)
	}

	return output, nil
}

func (c *Client) resourceFor(res resource.Resource) dynamic.ResourceInterface {
	ri := c.dyn.Resource(res.GroupVersionResource())
	if res.Namespaced() {
		return ri.Namespace(res.Namespace())
	}
	return ri
}
