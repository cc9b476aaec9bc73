package devices

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/KevinKickass/OpenMachineIO/internal/types"
	"gopkg.in/yaml.v3"
)

var definitionExtensions = []string{".yaml", ".yml"}

// DefinitionLoader reads device definition files from a list of search
// paths. Definitions are validated once and cached by name.
type DefinitionLoader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
}

func NewDefinitionLoader(searchPaths []string) (*DefinitionLoader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &DefinitionLoader{
		validator:   validator,
		searchPaths: searchPaths,
	}, nil
}

// Load returns the definition stored as <name>.yaml (or .yml) in the first
// search path that has one.
func (l *DefinitionLoader) Load(name string) (*types.DeviceDefinition, error) {
	// Cache-Check
	if cached, ok := l.cache.Load(name); ok {
		return cached.(*types.DeviceDefinition), nil
	}

	data, foundPath := l.find(name)
	if data == nil {
		return nil, fmt.Errorf("definition %s (searched in: %v): %w", name, l.searchPaths, types.ErrNotFound)
	}

	def, err := l.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", foundPath, err)
	}

	l.cache.Store(name, def)

	return def, nil
}

func (l *DefinitionLoader) find(name string) ([]byte, string) {
	for _, searchPath := range l.searchPaths {
		for _, ext := range definitionExtensions {
			fullPath := filepath.Join(searchPath, name+ext)
			data, err := os.ReadFile(fullPath)
			if err == nil {
				return data, fullPath
			}
		}
	}
	return nil, ""
}

// decode validates the YAML document through its JSON form, so the schema
// sees exactly what the file says, then decodes it into the typed struct.
func (l *DefinitionLoader) decode(data []byte) (*types.DeviceDefinition, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert definition: %w", err)
	}

	if err := l.validator.Validate(asJSON); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var def types.DeviceDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
	}

	return &def, nil
}

