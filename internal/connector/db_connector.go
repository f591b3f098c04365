package connector

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/schema-memory/internal/dialect"
)

// Query is a single SQL statement with its bound parameters
type Query struct {
	SQL    string
	Params []interface{}
}

// DatabaseConnector handles database connection and query execution
type DatabaseConnector struct {
	Dialect  dialect.Dialect
	Host     string
	User     string
	Password string
	Database string
	Port     string
	DSN      string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a new database connector.
// Empty parameters are filled from SCHEMA_MEMORY_* environment variables.
func NewDatabaseConnector(d dialect.Dialect, host, user, password, database, port string, logger *logrus.Logger) *DatabaseConnector {
	if host == "" {
		host = getEnvOrDefault("SCHEMA_MEMORY_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("SCHEMA_MEMORY_USER", "root")
	}
	if password == "" {
		password = getEnvOrDefault("SCHEMA_MEMORY_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("SCHEMA_MEMORY_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("SCHEMA_MEMORY_PORT", d.DefaultPort())
	}

	return &DatabaseConnector{
		Dialect:  d,
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		DSN:      getEnvOrDefault("SCHEMA_MEMORY_DSN", ""),
		Logger:   logger,
	}
}

// NewWithDB wraps an already opened database handle
func NewWithDB(d dialect.Dialect, db *sql.DB, logger *logrus.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Dialect: d,
		DB:      db,
		Logger:  logger,
	}
}

// DataSourceName builds the driver specific DSN from the connection parameters
func (dc *DatabaseConnector) DataSourceName() string {
	if dc.DSN != "" {
		return dc.DSN
	}

	switch dc.Dialect {
	case dialect.Postgres:
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(dc.User, dc.Password),
			Host:     net.JoinHostPort(dc.Host, dc.Port),
			Path:     "/" + dc.Database,
			RawQuery: "sslmode=" + getEnvOrDefault("SCHEMA_MEMORY_SSLMODE", "disable"),
		}
		return dsn.String()
	case dialect.SQLite:
		return dc.Database
	default:
		cfg := mysql.NewConfig()
		cfg.User = dc.User
		cfg.Passwd = dc.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(dc.Host, dc.Port)
		cfg.DBName = dc.Database
		cfg.ParseTime = true
		return cfg.FormatDSN()
	}
}

// Connect establishes a connection to the configured database
func (dc *DatabaseConnector) Connect() error {
	if dc.Database == "" && dc.DSN == "" {
		return fmt.Errorf("database name must be provided either as an argument or as SCHEMA_MEMORY_DATABASE environment variable")
	}

	db, err := sql.Open(dc.Dialect.DriverName(), dc.DataSourceName())
	if err != nil {
		dc.Logger.Errorf("Error connecting to %s database: %v", dc.Dialect, err)
		return err
	}

	if dc.Dialect == dialect.SQLite {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Dialect, err)
		db.Close()
		return err
	}

	if dc.Dialect == dialect.SQLite {
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			dc.Logger.Errorf("Error configuring SQLite database: %v", err)
			db.Close()
			return err
		}
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s database: %s", dc.Dialect, dc.Database)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Infof("%s connection closed", dc.Dialect)
		}
	}
}

// SQLDialect returns the dialect statements must be rendered for
func (dc *DatabaseConnector) SQLDialect() dialect.Dialect {
	return dc.Dialect
}

// ExecuteQuery executes a SQL query and returns the results
func (dc *DatabaseConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return nil, err
		}
	}

	rows, err := dc.DB.QueryContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			// Convert []byte to string for text fields
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(ctx context.Context, query string, params ...interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	result, err := dc.DB.ExecContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		dc.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}

	return affected, nil
}

// ExecuteBatch executes a list of statements inside a single transaction.
// The transaction is rolled back on the first failing statement.
func (dc *DatabaseConnector) ExecuteBatch(ctx context.Context, queries []Query) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	tx, err := dc.DB.BeginTx(ctx, nil)
	if err != nil {
		dc.Logger.Errorf("Error starting transaction: %v", err)
		return 0, err
	}

	var totalAffected int64

	for i, query := range queries {
		result, err := tx.ExecContext(ctx, query.SQL, query.Params...)
		if err != nil {
			dc.Logger.Errorf("Error executing batch statement %d: %v", i+1, err)
			tx.Rollback()
			return 0, fmt.Errorf("statement %d (%s): %w", i+1, query.SQL, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			dc.Logger.Errorf("Error getting affected rows: %v", err)
			tx.Rollback()
			return 0, err
		}

		totalAffected += affected
	}

	if err := tx.Commit(); err != nil {
		dc.Logger.Errorf("Error committing transaction: %v", err)
		tx.Rollback()
		return 0, err
	}

	return totalAffected, nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
