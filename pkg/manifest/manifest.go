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

package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	yamlutil "k8s.io/apimachinery/pkg/util/yaml"

	"github.com/kankube-io/kankube/pkg/config"
	"github.com/kankube-io/kankube/pkg/resource"
)

// NotFoundError reports an explicitly named manifest file that could
// not be resolved on disk.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("manifest %s not found", e.Path)
}

var extensions = []string{".yml", ".yaml"}

// placeholder matches {key} tokens in raw manifest text.
var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load resolves filename to a manifest file, substitutes the resolved
// namespace's values into its text and parses every YAML document into
// a Resource, preserving document order.
//
// A filename without a YAML extension that resolves to no file is
// skipped with an empty result; a filename carrying the extension that
// resolves to no file is a NotFoundError. When namespace or cfg are
// zero they are resolved by walking up from the manifest's directory.
func Load(filename, namespace string, cfg *config.Config) ([]resource.Resource, error) {
	path, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	if !matchExt(path) {
		resolved := ""
		for _, ext := range extensions {
			if exists(path + ext) {
				resolved = path + ext
				break
			}
		}
		if resolved == "" {
			log.Info().Str("file", filename).Msg("ignoring file without manifest extension")
			return nil, nil
		}
		path = resolved
	}

	if !exists(path) {
		return nil, &NotFoundError{Path: path}
	}

	if cfg == nil {
		if cfg, err = config.Find(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	if namespace == "" {
		if namespace, err = config.FindNamespace(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if subs := cfg.Substitutions(namespace); subs != nil {
		if data, err = Substitute(data, subs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	resources, err := parse(data, namespace)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resources, nil
}

// Substitute replaces every {key} token in data with its value from
// subs. Substitution keys absent from the text are ignored; a token
// with no substitution entry is an error.
func Substitute(data []byte, subs map[string]string) ([]byte, error) {
	var missing []byte

	out := placeholder.ReplaceAllFunc(data, func(token []byte) []byte {
		key := string(token[1 : len(token)-1])
		value, ok := subs[key]
		if !ok {
			if missing == nil {
				missing = token
			}
			return token
		}
		return []byte(value)
	})

	if missing != nil {
		return nil, fmt.Errorf("no substitution for placeholder %s", missing)
	}
	return out, nil
}

func parse(data []byte, namespace string) ([]resource.Resource, error) {
	decoder := yamlutil.NewYAMLOrJSONDecoder(bytes.NewReader(data), 2048)

	var resources []resource.Resource
	for {
		obj := &unstructured.Unstructured{}
		if err := decoder.Decode(obj); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if len(obj.Object) == 0 {
			continue
		}

		res, err := resource.New(obj, namespace)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	return resources, nil
}

func matchExt(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
