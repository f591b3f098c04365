package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/schema-memory/internal/dialect"
	"github.com/vitebski/schema-memory/pkg/models"
)

// TableName is the name of the persisted catalog table
const TableName = "schema_memory"

// Executor runs SQL against the database holding the catalog
type Executor interface {
	ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error)
	ExecuteStatement(ctx context.Context, query string, params ...interface{}) (int64, error)
}

// Accessor bootstraps and reads the catalog table
type Accessor struct {
	DB      Executor
	Dialect dialect.Dialect
	Logger  *logrus.Logger
}

// NewAccessor creates a new catalog accessor
func NewAccessor(db Executor, d dialect.Dialect, logger *logrus.Logger) *Accessor {
	return &Accessor{
		DB:      db,
		Dialect: d,
		Logger:  logger,
	}
}

// CreateTableSQL returns the catalog DDL for a dialect.
// All variants describe the same logical table: id, location, name.
func CreateTableSQL(d dialect.Dialect) string {
	switch d {
	case dialect.Postgres:
		return "CREATE TABLE IF NOT EXISTS " + TableName + " (" +
			"id INTEGER PRIMARY KEY GENERATED ALWAYS AS IDENTITY, " +
			"location TEXT NOT NULL, " +
			"name TEXT NOT NULL)"
	case dialect.SQLite:
		return "CREATE TABLE IF NOT EXISTS " + TableName + " (" +
			"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
			"location TEXT NOT NULL, " +
			"name TEXT NOT NULL)"
	default:
		return "CREATE TABLE IF NOT EXISTS " + TableName + " (" +
			"id INT NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
			"location TEXT NOT NULL, " +
			"name TEXT NOT NULL)"
	}
}

// EnsureCatalogTable creates the catalog table if it does not exist and
// confirms that it can be read. This function is idempotent.
func (a *Accessor) EnsureCatalogTable(ctx context.Context) error {
	if _, err := a.DB.ExecuteStatement(ctx, CreateTableSQL(a.Dialect)); err != nil {
		if !isAlreadyExists(err) {
			a.Logger.Errorf("Error creating catalog table %s: %v", TableName, err)
			return models.ErrBootstrap(TableName, err)
		}
		a.Logger.Debugf("Catalog table %s already exists: %v", TableName, err)
	}

	confirmSQL := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", TableName)
	if _, err := a.DB.ExecuteQuery(ctx, confirmSQL); err != nil {
		a.Logger.Errorf("Error confirming catalog table %s: %v", TableName, err)
		return models.ErrBootstrap(TableName, err)
	}

	return nil
}

// FetchAll returns every catalog row ordered by id
func (a *Accessor) FetchAll(ctx context.Context) ([]models.CatalogRow, error) {
	query := fmt.Sprintf("SELECT id, location, name FROM %s ORDER BY id", TableName)
	result, err := a.DB.ExecuteQuery(ctx, query)
	if err != nil {
		a.Logger.Errorf("Error reading catalog table %s: %v", TableName, err)
		return nil, models.ErrRead(TableName, err)
	}

	rows := make([]models.CatalogRow, 0, len(result))
	for i, raw := range result {
		id, err := decodeID(raw["id"])
		if err != nil {
			return nil, models.ErrDecode(i, "id", err)
		}
		location, err := decodeText(raw["location"])
		if err != nil {
			return nil, models.ErrDecode(i, "location", err)
		}
		name, err := decodeText(raw["name"])
		if err != nil {
			return nil, models.ErrDecode(i, "name", err)
		}

		rows = append(rows, models.CatalogRow{ID: id, Location: location, Name: name})
	}

	a.Logger.Debugf("Fetched %d catalog rows", len(rows))
	return rows, nil
}

// decodeID converts the driver representation of the id column
func decodeID(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case string:
		// MySQL returns integers as text when no parameters are bound
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, errors.New("unexpected NULL value")
	default:
		return 0, fmt.Errorf("unexpected type %T", value)
	}
}

// decodeText converts the driver representation of a text column
func decodeText(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", errors.New("unexpected NULL value")
	default:
		return "", fmt.Errorf("unexpected type %T", value)
	}
}

// isAlreadyExists reports whether a bootstrap error only means that the
// table was created concurrently or before
func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// duplicate_table, duplicate_object, unique_violation on pg_type
		return pgErr.Code == "42P07" || pgErr.Code == "42710" || pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1050
	}

	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
