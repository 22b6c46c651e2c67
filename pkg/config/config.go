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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

const (
	// ConfigFile is the well-known config filename discovered by
	// walking up the directory tree.
	ConfigFile = "kankube.yml"

	// NamespaceFile is the well-known namespace marker filename.
	NamespaceFile = ".namespace"

	// DefaultNamespace is used when no marker file is found.
	DefaultNamespace = "default"
)

// Config holds the per-namespace substitution maps loaded from a
// kankube.yml file. It is immutable after load.
type Config struct {
	NamespaceSubstitutions map[string]map[string]string `json:"namespaceSubstitutions,omitempty"`
}

// Error reports an invalid or unusable config file.
type Error struct {
	Path string
	Msg  string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("config: %s", e.Msg)
}

// Find walks upward from dir towards the filesystem root looking for a
// kankube.yml file. It returns nil without error when no config file
// exists on the path.
func Find(dir string) (*Config, error) {
	path, found, err := findUp(dir, ConfigFile)
	if err != nil || !found {
		return nil, err
	}
	return Read(path)
}

// Read loads the config from the given path. The file must contain a
// single YAML document.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if multiDocument(data) {
		return nil, &Error{Path: path, Msg: "expected a single YAML document"}
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Path: path, Msg: err.Error()}
	}

	return cfg, nil
}

// Substitutions returns the substitution map for the given namespace,
// or nil when the config carries no entry for it.
func (c *Config) Substitutions(namespace string) map[string]string {
	if c == nil {
		return nil
	}
	return c.NamespaceSubstitutions[namespace]
}

// FindNamespace walks upward from dir looking for a .namespace marker
// file and returns its trimmed contents, or "default" when no marker
// exists on the path.
func FindNamespace(dir string) (string, error) {
	path, found, err := findUp(dir, NamespaceFile)
	if err != nil || !found {
		return DefaultNamespace, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultNamespace, err
	}

	namespace := strings.TrimSpace(string(data))
	if namespace == "" {
		return DefaultNamespace, nil
	}
	return namespace, nil
}

// findUp returns the path of the first file named name found in dir or
// any of its parents, stopping at the filesystem root.
func findUp(dir, name string) (string, bool, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, err
	}

	for {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
			return candidate, true, nil
		} else if err != nil && !os.IsNotExist(err) {
			return "", false, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// multiDocument reports whether data contains more than one YAML
// document. A separator on the first line starts the first document
// and does not count.
func multiDocument(data []byte) bool {
	for i, line := range strings.Split(string(data), "\n") {
		if i > 0 && strings.TrimRight(line, " \t") == "---" {
			return true
		}
	}
	return false
}
