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

// Package status computes resource health from the status object
// reported by the cluster.
package status

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kankube-io/kankube/pkg/resource"
)

// Result is the health verdict for a single refreshed resource.
type Result struct {
	Healthy bool
	Detail  string
}

// Evaluate inspects the remote document of a refreshed resource and
// reports whether it is healthy. Kinds other than Deployment and Pod
// are always unhealthy (unsupported).
func Evaluate(res resource.Resource) Result {
	remote := res.Remote()
	if remote == nil {
		return Result{Detail: "no remote state"}
	}

	switch res.Kind() {
	case resource.KindDeployment:
		return deploymentStatus(remote)
	case resource.KindPod:
		return podStatus(remote)
	default:
		return Result{Detail: fmt.Sprintf("status not supported for kind %s", res.Kind())}
	}
}

// deploymentStatus compares the reported replica counts against each
// other and the observed generation against metadata.generation. The
// deployment is healthy only when every replica is available and
// updated at the latest generation.
func deploymentStatus(remote *unstructured.Unstructured) Result {
	if _, found, err := unstructured.NestedMap(remote.Object, "status"); err != nil || !found {
		return Result{Detail: "no status reported"}
	}

	total := statusCount(remote, "replicas")
	available := statusCount(remote, "availableReplicas")
	unavailable := statusCount(remote, "unavailableReplicas")
	updated := statusCount(remote, "updatedReplicas")
	observedGeneration := statusCount(remote, "observedGeneration")
	generation := remote.GetGeneration()

	detail := fmt.Sprintf("%d total, %d available, %d unavailable, %d updated at generation %d (%d)",
		total, available, unavailable, updated, observedGeneration, generation)

	healthy := observedGeneration == generation &&
		total == available &&
		total == updated &&
		unavailable == 0

	return Result{Healthy: healthy, Detail: detail}
}

// podStatus reports healthy for a running pod that is not being
// terminated.
func podStatus(remote *unstructured.Unstructured) Result {
	phase, _, err := unstructured.NestedString(remote.Object, "status", "phase")
	if err != nil || phase == "" {
		return Result{Detail: "no status reported"}
	}

	if phase != string(corev1.PodRunning) {
		return Result{Detail: fmt.Sprintf("phase %s", phase)}
	}
	if remote.GetDeletionTimestamp() != nil {
		return Result{Detail: "terminating"}
	}

	return Result{Healthy: true, Detail: fmt.Sprintf("phase %s", phase)}
}

// statusCount reads an integer field from the status object, treating
// a missing field as zero.
func statusCount(remote *unstructured.Unstructured, field string) int64 {
	value, found, err := unstructured.NestedInt64(remote.Object, "status", field)
	if err != nil || !found {
		return 0
	}
	return value
}
