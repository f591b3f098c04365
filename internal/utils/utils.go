package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/schema-memory/internal/dialect"
	"github.com/vitebski/schema-memory/internal/reconciler"
	"github.com/vitebski/schema-memory/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("SCHEMA_MEMORY_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// RequiredVariables returns the environment variables a dialect cannot work without
func RequiredVariables(d dialect.Dialect) []string {
	if d.NeedsServer() {
		return []string{"SCHEMA_MEMORY_HOST", "SCHEMA_MEMORY_USER", "SCHEMA_MEMORY_DATABASE"}
	}
	return []string{"SCHEMA_MEMORY_DATABASE"}
}

// LoadEnvironmentVariables loads environment variables from .env file.
// Variables already set in the environment are not overridden.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}
}

// CheckRequiredVariables reports whether every variable required by the dialect is present
func CheckRequiredVariables(d dialect.Dialect, logger *logrus.Logger) bool {
	// A full DSN replaces the individual connection variables
	if os.Getenv("SCHEMA_MEMORY_DSN") != "" {
		return true
	}

	var missingVars []string
	for _, v := range RequiredVariables(d) {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Debugf("Missing environment variables: %s", strings.Join(missingVars, ", "))
		logger.Debug("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	// Log all available SCHEMA_MEMORY_* environment variables (for debugging)
	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "SCHEMA_MEMORY_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					if parts[0] == "SCHEMA_MEMORY_PASSWORD" || parts[0] == "SCHEMA_MEMORY_DSN" {
						logger.Debugf("%s=********", parts[0])
					} else {
						logger.Debugf("%s=%s", parts[0], parts[1])
					}
				}
			}
		}
	}

	return true
}

// ValidateConnectionParams validates database connection parameters
func ValidateConnectionParams(d dialect.Dialect, host, user, password, database, port, dsn string, logger *logrus.Logger) bool {
	if dsn != "" {
		return true
	}

	if database == "" {
		logger.Error("Database name is required")
		return false
	}

	if !d.NeedsServer() {
		return true
	}

	if host == "" {
		logger.Error("Database host is required")
		return false
	}

	if user == "" {
		logger.Error("Database user is required")
		return false
	}

	if password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if _, err := strconv.Atoi(port); err != nil {
		logger.Errorf("Invalid port number: %s", port)
		return false
	}

	return true
}

// PrintReconciliationReport prints the pending catalog statements and the detected renames
func PrintReconciliationReport(w io.Writer, statements []models.PendingStatement, renames models.RenameMap, d dialect.Dialect) {
	counts := make(map[models.StatementKind]int)
	for _, statement := range statements {
		counts[statement.Kind]++
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, "SCHEMA MEMORY RECONCILIATION")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Insert statements: %d\n", counts[models.InsertStatement])
	fmt.Fprintf(w, "Update statements: %d\n", counts[models.UpdateStatement])
	fmt.Fprintf(w, "Delete statements: %d\n", counts[models.DeleteStatement])

	if len(renames) > 0 {
		var newNames []string
		for newName := range renames {
			newNames = append(newNames, newName)
		}
		sort.Strings(newNames)

		fmt.Fprintln(w, "\nRenamed entities:")
		for _, newName := range newNames {
			fmt.Fprintf(w, "  - %s -> %s\n", renames[newName], newName)
		}
	}

	if len(statements) > 0 {
		fmt.Fprintln(w, "\nPending statements:")
		for i, statement := range statements {
			query, params, err := reconciler.Render(statement, d)
			if err != nil {
				fmt.Fprintf(w, "  %3d. <invalid %s statement: %v>\n", i+1, statement.Kind, err)
				continue
			}
			fmt.Fprintf(w, "  %3d. %s %v\n", i+1, query, params)
		}
	} else {
		fmt.Fprintln(w, "\n✅ Catalog is up to date")
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// PrintDependencyOrder prints entities in dependency order, flagging circular ones
func PrintDependencyOrder(w io.Writer, ordered []string, circular map[string]bool) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, "ENTITY DEPENDENCY ORDER")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for i, entity := range ordered {
		category := "Ordered"
		if circular[entity] {
			category = "Circular"
		}
		fmt.Fprintf(w, "  %3d. %s (%s)\n", i+1, entity, category)
	}

	if len(circular) > 0 {
		fmt.Fprintf(w, "\n⚠️  %d entities are part of a reference cycle\n", len(circular))
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
}
