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
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/kankube-io/kankube/pkg/manifest"
	"github.com/kankube-io/kankube/pkg/resource"
)

// loadResources loads every manifest file and applies the --kind
// filter, preserving document order across files.
func loadResources(filenames []string) ([]resource.Resource, error) {
	var resources []resource.Resource
	for _, filename := range filenames {
		loaded, err := manifest.Load(filename, rootArgs.namespace, nil)
		if err != nil {
			return nil, err
		}
		resources = append(resources, loaded...)
	}

	return filterKinds(resources, rootArgs.kinds), nil
}

// filterKinds keeps the resources whose kind matches one of the given
// values, compared case-insensitively. An empty filter keeps all.
func filterKinds(resources []resource.Resource, kinds []string) []resource.Resource {
	if len(kinds) == 0 {
		return resources
	}

	wanted := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		wanted[strings.ToLower(kind)] = true
	}

	filtered := make([]resource.Resource, 0, len(resources))
	for _, res := range resources {
		if wanted[strings.ToLower(string(res.Kind()))] {
			filtered = append(filtered, res)
		}
	}
	return filtered
}

func printTable(writer io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
