package dialect

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL flavour of the target database
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// Supported lists every dialect the tool can talk to
var Supported = []Dialect{Postgres, MySQL, SQLite}

// Parse converts a user supplied name into a Dialect
func Parse(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q: must be one of %v", name, Supported)
	}
}

// DriverName returns the database/sql driver registered for the dialect
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite3"
	default:
		return "mysql"
	}
}

// DefaultPort returns the port used when none is configured
func (d Dialect) DefaultPort() string {
	switch d {
	case Postgres:
		return "5432"
	case MySQL:
		return "3306"
	default:
		return ""
	}
}

// NeedsServer reports whether the dialect connects over the network
func (d Dialect) NeedsServer() bool {
	return d != SQLite
}

// Placeholder returns the bind parameter marker for the n-th (1-based) argument
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
