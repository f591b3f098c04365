package registry

import (
	"sort"
	"strings"

	"github.com/yourbasic/graph"
	"github.com/vitebski/schema-memory/pkg/models"
)

// ForeignKeyPrefix marks a field annotation that references another entity
const ForeignKeyPrefix = "fk:"

// ParseForeignKey decodes an annotation of the form "fk:<Entity>.<field>".
// The referenced field defaults to "id" when omitted.
func ParseForeignKey(entity string, field models.FieldDescriptor) (models.ForeignKey, bool) {
	annotation := strings.TrimSpace(field.Annotation)
	if !strings.HasPrefix(annotation, ForeignKeyPrefix) {
		return models.ForeignKey{}, false
	}

	target := strings.TrimSpace(strings.TrimPrefix(annotation, ForeignKeyPrefix))
	if target == "" {
		return models.ForeignKey{}, false
	}

	referencedEntity, referencedField := target, "id"
	if idx := strings.LastIndex(target, "."); idx >= 0 {
		referencedEntity, referencedField = target[:idx], target[idx+1:]
	}
	if referencedEntity == "" || referencedField == "" {
		return models.ForeignKey{}, false
	}

	return models.ForeignKey{
		Entity:           entity,
		Field:            field.Name,
		ReferencedEntity: referencedEntity,
		ReferencedField:  referencedField,
	}, true
}

// ForeignKeys returns the annotated relations of every entity, keyed by entity name
func (r *Registry) ForeignKeys() map[string][]models.ForeignKey {
	foreignKeys := make(map[string][]models.ForeignKey)
	for _, location := range r.Locations() {
		descriptor := r.Entities[location]
		for _, field := range descriptor.Fields {
			if fk, ok := ParseForeignKey(descriptor.Name, field); ok {
				foreignKeys[descriptor.Name] = append(foreignKeys[descriptor.Name], fk)
			}
		}
	}
	return foreignKeys
}

// DependencyOrder orders entity names so that referenced entities come before
// the entities referencing them. Entities caught in a reference cycle are
// returned in the circular set and appended at the end, sorted by name.
// Self references and references to unknown entities are ignored.
func (r *Registry) DependencyOrder() ([]string, map[string]bool) {
	// Unique entity names, sorted for a stable order
	nameSet := make(map[string]bool)
	for _, descriptor := range r.Entities {
		nameSet[descriptor.Name] = true
	}
	var names []string
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)

	// Index entities case-insensitively, the same way renames are tracked
	indexMap := make(map[string]int, len(names))
	for i, name := range names {
		if _, exists := indexMap[strings.ToLower(name)]; !exists {
			indexMap[strings.ToLower(name)] = i
		}
	}

	// Edges point from the referenced entity to the referencing one
	dependencyGraph := graph.New(len(names))
	dependsOn := make(map[int][]int)
	for entity, fks := range r.ForeignKeys() {
		srcIdx := indexMap[strings.ToLower(entity)]
		for _, fk := range fks {
			destIdx, ok := indexMap[strings.ToLower(fk.ReferencedEntity)]
			if !ok || destIdx == srcIdx {
				continue
			}
			dependencyGraph.Add(destIdx, srcIdx)
			dependsOn[srcIdx] = append(dependsOn[srcIdx], destIdx)
		}
	}

	// Any strongly connected component with more than one entity is a cycle
	circular := make(map[string]bool)
	for _, component := range graph.StrongComponents(dependencyGraph) {
		if len(component) < 2 {
			continue
		}
		for _, idx := range component {
			circular[names[idx]] = true
		}
	}

	// Place the first entity (by name) whose dependencies are all placed
	var ordered []string
	placed := make(map[int]bool)
	var pending []int
	for i, name := range names {
		if !circular[name] {
			pending = append(pending, i)
		}
	}
	for len(pending) > 0 {
		found := false
		for pos, idx := range pending {
			resolved := true
			for _, dep := range dependsOn[idx] {
				if !placed[dep] && !circular[names[dep]] {
					resolved = false
					break
				}
			}
			if resolved {
				ordered = append(ordered, names[idx])
				placed[idx] = true
				pending = append(pending[:pos], pending[pos+1:]...)
				found = true
				break
			}
		}
		if !found {
			ordered = append(ordered, names[pending[0]])
			placed[pending[0]] = true
			pending = pending[1:]
		}
	}

	var circularList []string
	for name := range circular {
		circularList = append(circularList, name)
	}
	sort.Strings(circularList)
	ordered = append(ordered, circularList...)

	return ordered, circular
}
