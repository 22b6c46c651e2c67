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
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/yaml"

	"github.com/kankube-io/kankube/pkg/resource"
)

// minKubectlVersion is the oldest client version with stable behavior
// for every subcommand the adapter relies on.
const minKubectlVersion = ">= 1.14.0"

// execFunc runs the kubectl binary and returns its captured stdout,
// stderr and exit error.
type execFunc func(ctx context.Context, stdin []byte, args ...string) (string, string, error)

// Kubectl submits resources by invoking the kubectl binary. Create and
// update stage the serialized document in a temporary file that is
// removed on every exit path.
type Kubectl struct {
	path   string
	execFn execFunc
}

// NewKubectl locates kubectl in PATH and verifies its client version.
func NewKubectl(ctx context.Context) (*Kubectl, error) {
	path, err := exec.LookPath("kubectl")
	if err != nil {
		return nil, fmt.Errorf("kubectl not found in PATH: %w", err)
	}

	k := &Kubectl{path: path}
	k.execFn = k.runCommand

	if err := k.checkVersion(ctx); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Kubectl) checkVersion(ctx context.Context) error {
	stdout, stderr, err := k.execFn(ctx, nil, "version", "--client", "--output", "json")
	if err != nil {
		return fmt.Errorf("kubectl version check failed: %s: %w", strings.TrimSpace(stderr), err)
	}

	var payload struct {
		ClientVersion struct {
			GitVersion string `json:"gitVersion"`
		} `json:"clientVersion"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		return fmt.Errorf("kubectl version output unreadable: %w", err)
	}

	version, err := semver.NewVersion(strings.TrimPrefix(payload.ClientVersion.GitVersion, "v"))
	if err != nil {
		return fmt.Errorf("kubectl version %q unreadable: %w", payload.ClientVersion.GitVersion, err)
	}

	constraint, err := semver.NewConstraint(minKubectlVersion)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("kubectl %s is too old, need %s", version, minKubectlVersion)
	}

	log.Debug().Str("path", k.path).Str("version", version.String()).Msg("using kubectl")
	return nil
}

func (k *Kubectl) Exists(ctx context.Context, res resource.Resource) (bool, error) {
	_, stderr, err := k.execFn(ctx, nil, k.getArgs(res)...)
	if err != nil {
		if isNotFound(stderr) {
			return false, nil
		}
		return false, k.fail("get", res, stderr, err)
	}
	return true, nil
}

func (k *Kubectl) Refresh(ctx context.Context, res resource.Resource) error {
	stdout, stderr, err := k.execFn(ctx, nil, k.getArgs(res)...)
	if err != nil {
		return k.fail("get", res, stderr, err)
	}

	remote := &unstructured.Unstructured{}
	if err := remote.UnmarshalJSON([]byte(stdout)); err != nil {
		return fmt.Errorf("get %s returned unreadable output: %w", res, err)
	}

	res.SetRemote(remote)
	return nil
}

func (k *Kubectl) Create(ctx context.Context, res resource.Resource) error {
	return k.submit(ctx, "create", res)
}

func (k *Kubectl) Update(ctx context.Context, res resource.Resource) error {
	return k.submit(ctx, "apply", res)
}

func (k *Kubectl) Delete(ctx context.Context, res resource.Resource) error {
	args := append([]string{"delete", kindArg(res.Kind()), res.Name(), "--ignore-not-found"}, scopeArgs(res)...)
	_, stderr, err := k.execFn(ctx, nil, args...)
	if err != nil {
		return k.fail("delete", res, stderr, err)
	}
	return nil
}

func (k *Kubectl) ListPods(ctx context.Context, namespace string, selector map[string]string) ([]*unstructured.Unstructured, error) {
	args := []string{"get", "pods", "--output", "json", "--namespace", namespace}
	if len(selector) > 0 {
		args = append(args, "--selector", labels.Set(selector).String())
	}

	stdout, stderr, err := k.execFn(ctx, nil, args...)
	if err != nil {
		log.Error().Str("stderr", stderr).Err(err).Msg("listing pods failed")
		return nil, fmt.Errorf("listing pods in %s failed: %s: %w", namespace, strings.TrimSpace(stderr), err)
	}

	obj := &unstructured.Unstructured{}
	if err := obj.UnmarshalJSON([]byte(stdout)); err != nil {
		return nil, fmt.Errorf("pod list output unreadable: %w", err)
	}

	list, err := obj.ToList()
	if err != nil {
		return nil, fmt.Errorf("pod list output unreadable: %w", err)
	}

	pods := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		pods = append(pods, &list.Items[i])
	}
	return pods, nil
}

func (k *Kubectl) Exec(ctx context.Context, pod resource.Resource, command []string) (string, error) {
	args := append([]string{"exec", pod.Name()}, scopeArgs(pod)...)
	args = append(args, "--")
	args = append(args, command...)

	stdout, stderr, err := k.execFn(ctx, nil, args...)
	output := stdout + stderr
	if err != nil {
		log.Error().Stringer("pod", pod).Str("output", output).Err(err).Msg("remote command failed")
		return output, fmt.Errorf("exec in %s failed: %w", pod, err)
	}
	return stdout, nil
}

// submit stages the local document in a temporary manifest file and
// hands it to the given kubectl verb. The file is removed on success
// and on failure alike.
func (k *Kubectl) submit(ctx context.Context, verb string, res resource.Resource) error {
	data, err := yaml.Marshal(res.Local().Object)
	if err != nil {
		return fmt.Errorf("serializing %s failed: %w", res, err)
	}

	tmp, err := os.CreateTemp("", "kankube-*.yml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	args := append([]string{verb, "--filename", tmp.Name()}, scopeArgs(res)...)
	if _, stderr, err := k.execFn(ctx, nil, args...); err != nil {
		return k.fail(verb, res, stderr, err)
	}
	return nil
}

func (k *Kubectl) getArgs(res resource.Resource) []string {
	return append([]string{"get", kindArg(res.Kind()), res.Name(), "--output", "json"}, scopeArgs(res)...)
}

func (k *Kubectl) fail(verb string, res resource.Resource, stderr string, err error) error {
	log.Error().Stringer("resource", res).Str("stderr", stderr).Err(err).Msgf("kubectl %s failed", verb)
	return fmt.Errorf("%s %s failed: %s: %w", verb, res, strings.TrimSpace(stderr), err)
}

func (k *Kubectl) runCommand(ctx context.Context, stdin []byte, args ...string) (string, string, error) {
	log.Debug().Strs("args", args).Msg("invoking kubectl")

	cmd := exec.CommandContext(ctx, k.path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	log.Debug().Str("stdout", stdout.String()).Str("stderr", stderr.String()).Msg("kubectl finished")

	return stdout.String(), stderr.String(), err
}

func kindArg(kind resource.Kind) string {
	return strings.ToLower(string(kind))
}

func scopeArgs(res resource.Resource) []string {
	if res.Namespaced() && res.Namespace() != "" {
		return []string{"--namespace", res.Namespace()}
	}
	return nil
}

func isNotFound(stderr string) bool {
	return strings.Contains(stderr, "NotFound") || strings.Contains(stderr, "not found")
}
