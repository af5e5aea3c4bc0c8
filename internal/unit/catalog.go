package unit

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk shape of a designer-authored definition file.
type Catalog struct {
	Definitions []*Definition `json:"definitions" yaml:"definitions"`
}

// LoadCatalog parses a YAML definition catalog and validates every entry.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog bytes, rejecting unknown fields so typos in
// designer files fail loudly instead of silently dropping tuning.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(catalog.Definitions))
	for _, def := range catalog.Definitions {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDefinition, def.ID)
		}
		seen[def.ID] = struct{}{}
	}
	return &catalog, nil
}

// RegisterAll inserts every catalog definition into the registry.
func (c *Catalog) RegisterAll(r *Registry) error {
	if c == nil {
		return nil
	}
	for _, def := range c.Definitions {
		if err := r.RegisterDefinition(def); err != nil {
			return err
		}
	}
	return nil
}
