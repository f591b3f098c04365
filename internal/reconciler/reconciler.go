package reconciler

import (
	"github.com/vitebski/schema-memory/internal/registry"
	"github.com/vitebski/schema-memory/pkg/models"
)

// Reconcile diffs the registry against the catalog rows.
//
// For each registered (location, name), in ascending location order:
//   - a row with the same location and the same name is already consistent
//   - otherwise the first row sharing the location or the name is updated to
//     the new pair; a changed name is recorded as a rename
//   - otherwise the entity is new and is inserted
//
// Rows that were neither consistent nor the old side of an update are deleted.
//
// Every entity searches all fetched rows in the order given, so a row already
// matched by one entity can still be the old side of another entity's update.
// A simultaneous change of location and name is indistinguishable from a
// delete plus an insert.
func Reconcile(reg *registry.Registry, rows []models.CatalogRow) models.ReconciliationResult {
	result := models.ReconciliationResult{Renames: models.RenameMap{}}
	used := make([]bool, len(rows))

	for _, location := range reg.Locations() {
		descriptor, _ := reg.Lookup(location)
		name := descriptor.Name

		if idx := findRow(rows, func(row models.CatalogRow) bool {
			return row.Location == location && row.Name == name
		}); idx >= 0 {
			used[idx] = true
			continue
		}

		idx := findRow(rows, func(row models.CatalogRow) bool {
			return row.Location == location || row.Name == name
		})
		if idx < 0 {
			result.Inserts = append(result.Inserts, models.CatalogEntry{Location: location, Name: name})
			continue
		}

		old := rows[idx]
		used[idx] = true
		result.Updates = append(result.Updates, models.CatalogRow{ID: old.ID, Location: location, Name: name})
		if old.Name != name {
			result.Renames.Record(name, old.Name)
		}
	}

	// Whatever is left has disappeared from the declarations
	for i, row := range rows {
		if !used[i] {
			result.Deletes = append(result.Deletes, row)
		}
	}

	return result
}

// findRow returns the index of the first row accepted by match, or -1
func findRow(rows []models.CatalogRow, match func(models.CatalogRow) bool) int {
	for i, row := range rows {
		if match(row) {
			return i
		}
	}
	return -1
}
