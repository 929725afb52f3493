/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vasayxtx/go-glob"
	"gopkg.in/yaml.v3"

	"github.com/crptkit/docsubmit/docclient"
)

// DefaultIncludePatterns select document files when a directory is passed.
var DefaultIncludePatterns = []string{"*.json", "*.yaml", "*.yml"}

// fileFilter matches base names of files found in directories.
// Files passed explicitly are never filtered.
type fileFilter struct {
	include []func(string) bool
	exclude []func(string) bool
}

func newFileFilter(include, exclude []string) *fileFilter {
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	compile := func(patterns []string) []func(string) bool {
		compiled := make([]func(string) bool, 0, len(patterns))
		for _, p := range patterns {
			compiled = append(compiled, glob.Compile(p))
		}
		return compiled
	}
	return &fileFilter{include: compile(include), exclude: compile(exclude)}
}

func (f *fileFilter) match(name string) bool {
	for _, m := range f.exclude {
		if m(name) {
			return false
		}
	}
	for _, m := range f.include {
		if m(name) {
			return true
		}
	}
	return false
}

// collectDocumentFiles expands directories (recursively) and returns a sorted list of unique file paths.
func collectDocumentFiles(paths []string, filter *fileFilter) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() && filter.match(d.Name()) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk directory %s: %w", path, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadDocument reads a document from a JSON or YAML file. Unknown fields are rejected.
func loadDocument(path string) (*docclient.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := &docclient.Document{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(doc); err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("file is empty")
			}
			return nil, fmt.Errorf("parse YAML document: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err = dec.Decode(doc); err != nil {
			return nil, fmt.Errorf("parse JSON document: %w", err)
		}
	}
	return doc, nil
}
