package reconciler

import (
	"fmt"
	"strings"

	"github.com/vitebski/schema-memory/internal/catalog"
	"github.com/vitebski/schema-memory/internal/dialect"
	"github.com/vitebski/schema-memory/pkg/models"
)

// GenerateStatements turns a reconciliation result into the ordered list of
// catalog statements: one batched insert, then updates, then deletes.
func GenerateStatements(result models.ReconciliationResult) []models.PendingStatement {
	var statements []models.PendingStatement

	if len(result.Inserts) > 0 {
		rows := make([]models.CatalogEntry, len(result.Inserts))
		copy(rows, result.Inserts)
		statements = append(statements, models.PendingStatement{Kind: models.InsertStatement, Rows: rows})
	}

	for _, update := range result.Updates {
		statements = append(statements, models.PendingStatement{
			Kind:     models.UpdateStatement,
			ID:       update.ID,
			Location: update.Location,
			Name:     update.Name,
		})
	}

	for _, row := range result.Deletes {
		statements = append(statements, models.PendingStatement{
			Kind: models.DeleteStatement,
			ID:   row.ID,
			Name: row.Name,
		})
	}

	return statements
}

// Render returns the SQL text and bound parameters of a statement for a dialect
func Render(statement models.PendingStatement, d dialect.Dialect) (string, []interface{}, error) {
	switch statement.Kind {
	case models.InsertStatement:
		if len(statement.Rows) == 0 {
			return "", nil, fmt.Errorf("insert statement without rows")
		}
		values := make([]string, 0, len(statement.Rows))
		params := make([]interface{}, 0, 2*len(statement.Rows))
		for i, row := range statement.Rows {
			values = append(values, fmt.Sprintf("(%s, %s)", d.Placeholder(2*i+1), d.Placeholder(2*i+2)))
			params = append(params, row.Location, row.Name)
		}
		query := fmt.Sprintf("INSERT INTO %s (location, name) VALUES %s", catalog.TableName, strings.Join(values, ", "))
		return query, params, nil

	case models.UpdateStatement:
		query := fmt.Sprintf("UPDATE %s SET location = %s, name = %s WHERE id = %s",
			catalog.TableName, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
		return query, []interface{}{statement.Location, statement.Name, statement.ID}, nil

	case models.DeleteStatement:
		query := fmt.Sprintf("DELETE FROM %s WHERE id = %s AND name = %s",
			catalog.TableName, d.Placeholder(1), d.Placeholder(2))
		return query, []interface{}{statement.ID, statement.Name}, nil

	default:
		return "", nil, fmt.Errorf("unknown statement kind %d", statement.Kind)
	}
}
