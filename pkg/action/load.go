// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package action

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	kberrors "github.com/jllopis/actionkb/pkg/errors"
)

// DefinitionFile is the on-disk layout of an action definition file.
type DefinitionFile struct {
	Actions []Descriptor `json:"actions" yaml:"actions"`
}

// ParseJSON builds entries from a JSON definition payload.
func ParseJSON(data []byte) ([]*Entry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON payload")
	}
	var file DefinitionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse json definitions: %w", err)
	}
	return file.build()
}

// ParseYAML builds entries from a YAML definition payload.
func ParseYAML(data []byte) ([]*Entry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty YAML payload")
	}
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml definitions: %w", err)
	}
	return file.build()
}

func (f DefinitionFile) build() ([]*Entry, error) {
	out := make([]*Entry, 0, len(f.Actions))
	for i, d := range f.Actions {
		e, err := d.Build()
		if err != nil {
			return nil, kberrors.AsKBError(err).WithContext("index", i)
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadFile loads entries from a YAML or JSON file.
func LoadFile(path string) ([]*Entry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("definition path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []*Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		entries, err = ParseJSON(data)
	case ".yaml", ".yml":
		entries, err = ParseYAML(data)
	default:
		entries, err = parseAuto(data)
	}
	if err != nil {
		if ke, ok := err.(*kberrors.KBError); ok {
			return nil, ke.WithContext("file", path)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

func parseAuto(data []byte) ([]*Entry, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if entries, err := ParseJSON(data); err == nil {
			return entries, nil
		}
	}
	return ParseYAML(data)
}

// LoadDir loads every .yaml, .yml and .json file in root. Files are parsed
// concurrently; entries come back in lexical file order so insertion order
// (and with it postcondition precedence) is stable.
func LoadDir(root string) ([]*Entry, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(de.Name())) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, filepath.Join(root, de.Name()))
		}
	}
	sort.Strings(paths)

	results := make([][]*Entry, len(paths))
	var g errgroup.Group
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			entries, err := LoadFile(path)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []*Entry
	for _, entries := range results {
		out = append(out, entries...)
	}
	return out, nil
}

// LoadPaths loads each path as a file or a directory.
func LoadPaths(paths []string) ([]*Entry, error) {
	var out []*Entry
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		var entries []*Entry
		if info.IsDir() {
			entries, err = LoadDir(path)
		} else {
			entries, err = LoadFile(path)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// MarshalYAML serializes entries in the definition file layout.
func MarshalYAML(entries []*Entry) ([]byte, error) {
	return yaml.Marshal(DefinitionFile{Actions: Describe(entries)})
}
