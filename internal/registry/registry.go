package registry

import (
	"sort"

	"github.com/vitebski/schema-memory/pkg/models"
)

// Registry holds the entity descriptors of the current run keyed by declaration location
type Registry struct {
	Entities map[string]models.EntityDescriptor
}

// NewRegistry builds a registry from the scanner output.
// Two descriptors sharing a location make rename tracking ambiguous and are rejected.
func NewRegistry(descriptors []models.EntityDescriptor) (*Registry, error) {
	entities := make(map[string]models.EntityDescriptor, len(descriptors))
	for _, descriptor := range descriptors {
		if existing, exists := entities[descriptor.Location]; exists {
			return nil, models.ErrAmbiguous(descriptor.Location, existing.Name, descriptor.Name)
		}
		entities[descriptor.Location] = descriptor
	}
	return &Registry{Entities: entities}, nil
}

// Len returns the number of registered entities
func (r *Registry) Len() int {
	return len(r.Entities)
}

// Locations returns every registered location in ascending order
func (r *Registry) Locations() []string {
	locations := make([]string, 0, len(r.Entities))
	for location := range r.Entities {
		locations = append(locations, location)
	}
	sort.Strings(locations)
	return locations
}

// Lookup returns the descriptor declared at a location
func (r *Registry) Lookup(location string) (models.EntityDescriptor, bool) {
	descriptor, ok := r.Entities[location]
	return descriptor, ok
}
