package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ontoflow/ontoflow/pkg/handlers"
)

// ParseHandlerDefinition decodes a single handler definition from YAML and
// validates it. The returned definition is ready for registration.
func ParseHandlerDefinition(data []byte) (*handlers.Definition, error) {
	var def handlers.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse handler definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadHandlerDefinition reads a handler definition from a YAML file.
func LoadHandlerDefinition(path string) (*handlers.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read handler file: %w", err)
	}
	def, err := ParseHandlerDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadHandlerDefinitions reads every *.yaml and *.yml file in dir, in
// lexical order. A single broken file fails the whole load.
func LoadHandlerDefinitions(dir string) ([]*handlers.Definition, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan handler directory: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	defs := make([]*handlers.Definition, 0, len(paths))
	for _, path := range paths {
		def, err := LoadHandlerDefinition(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
