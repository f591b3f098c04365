package scanner

import (
	"fmt"
	"os"

	"github.com/vitebski/schema-memory/pkg/models"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML document listing entity declarations
type Manifest struct {
	Entities []models.EntityDescriptor `yaml:"entities"`
}

// LoadManifest reads entity declarations from a YAML manifest file
func LoadManifest(path string) ([]models.EntityDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes entity declarations from YAML.
// Duplicate locations are kept; rejecting them is up to the registry.
func ParseManifest(data []byte) ([]models.EntityDescriptor, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	descriptors := make([]models.EntityDescriptor, 0, len(manifest.Entities))
	for i, entity := range manifest.Entities {
		entity.Location = norm.NFC.String(entity.Location)
		entity.Name = norm.NFC.String(entity.Name)
		if entity.Location == "" {
			return nil, fmt.Errorf("parse manifest: entity %d: location is required", i)
		}
		if entity.Name == "" {
			return nil, fmt.Errorf("parse manifest: entity %d (%s): name is required", i, entity.Location)
		}
		for j, field := range entity.Fields {
			if field.Name == "" {
				return nil, fmt.Errorf("parse manifest: entity %s: field %d: name is required", entity.Name, j)
			}
		}
		descriptors = append(descriptors, entity)
	}

	return descriptors, nil
}
