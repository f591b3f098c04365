package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/schema-memory/internal/connector"
	"github.com/vitebski/schema-memory/internal/dialect"
	"github.com/vitebski/schema-memory/internal/memory"
	"github.com/vitebski/schema-memory/internal/registry"
	"github.com/vitebski/schema-memory/internal/scanner"
	"github.com/vitebski/schema-memory/internal/utils"
	"github.com/vitebski/schema-memory/pkg/models"
)

type options struct {
	dialect   string
	host      string
	user      string
	password  string
	database  string
	port      string
	dsn       string
	manifest  string
	sourceDir string
	envFile   string
	logLevel  string
	dryRun    bool
	showOrder bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "schema-memory",
		Short: "Keep a database catalog of declared entities in step with the source tree",
		Long: `Schema Memory

Reconciles the entities declared in a source tree or manifest with the
schema_memory catalog table, detecting renames and relocations so that
entity identity survives across runs.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	rootCmd.Flags().StringVarP(&opts.dialect, "dialect", "D", "", "Database dialect (postgres, mysql, sqlite)")
	rootCmd.Flags().StringVarP(&opts.host, "host", "H", "", "Database host (default: localhost)")
	rootCmd.Flags().StringVarP(&opts.user, "user", "u", "", "Database user (default: root)")
	rootCmd.Flags().StringVarP(&opts.password, "password", "p", "", "Database password")
	rootCmd.Flags().StringVarP(&opts.database, "database", "d", "", "Database name, or file path for sqlite")
	rootCmd.Flags().StringVarP(&opts.port, "port", "P", "", "Database port (default: dialect port)")
	rootCmd.Flags().StringVar(&opts.dsn, "dsn", "", "Full data source name, overrides the individual connection flags")
	rootCmd.Flags().StringVarP(&opts.manifest, "manifest", "f", "", "YAML manifest listing entity declarations")
	rootCmd.Flags().StringVarP(&opts.sourceDir, "source-dir", "s", "", "Go source tree to scan for //schema:entity structs")
	rootCmd.Flags().StringVarP(&opts.envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Print the pending catalog statements without applying them")
	rootCmd.Flags().BoolVarP(&opts.showOrder, "show-order", "o", false, "Print the entities in foreign key dependency order")
	rootCmd.MarkFlagsMutuallyExclusive("manifest", "source-dir")
	rootCmd.MarkFlagsOneRequired("manifest", "source-dir")

	return rootCmd
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Setup logging
	logger := utils.SetupLogging(opts.logLevel)

	// Load environment variables before anything reads them
	utils.LoadEnvironmentVariables(opts.envFile, logger)
	if opts.logLevel == "" {
		logger = utils.SetupLogging("")
	}

	d, err := resolveDialect(opts.dialect)
	if err != nil {
		return err
	}
	utils.CheckRequiredVariables(d, logger)

	// Get connection parameters from environment if not provided
	if opts.dsn == "" {
		opts.dsn = os.Getenv("SCHEMA_MEMORY_DSN")
	}
	if opts.host == "" {
		opts.host = os.Getenv("SCHEMA_MEMORY_HOST")
	}
	if opts.user == "" {
		opts.user = os.Getenv("SCHEMA_MEMORY_USER")
	}
	if opts.password == "" {
		opts.password = os.Getenv("SCHEMA_MEMORY_PASSWORD")
	}
	if opts.database == "" {
		opts.database = os.Getenv("SCHEMA_MEMORY_DATABASE")
	}
	if opts.port == "" {
		opts.port = os.Getenv("SCHEMA_MEMORY_PORT")
		if opts.port == "" {
			opts.port = d.DefaultPort()
		}
	}

	// Validate connection parameters
	if !utils.ValidateConnectionParams(d, opts.host, opts.user, opts.password, opts.database, opts.port, opts.dsn, logger) {
		return fmt.Errorf("invalid connection parameters")
	}

	descriptors, err := loadDescriptors(opts, logger)
	if err != nil {
		return err
	}

	if opts.showOrder {
		reg, err := registry.NewRegistry(descriptors)
		if err != nil {
			return err
		}
		ordered, circular := reg.DependencyOrder()
		utils.PrintDependencyOrder(os.Stdout, ordered, circular)
	}

	// Create database connector
	db := connector.NewDatabaseConnector(d, opts.host, opts.user, opts.password, opts.database, opts.port, logger)
	if opts.dsn != "" {
		db.DSN = opts.dsn
	}
	if err := db.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Disconnect()

	schemaMemory := memory.New(db, logger)
	renames, err := schemaMemory.Reconcile(ctx, descriptors)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	statements := schemaMemory.DrainQueue()
	utils.PrintReconciliationReport(os.Stdout, statements, renames, d)

	if opts.dryRun {
		logger.Info("Dry-run mode, exiting without applying catalog statements")
		return nil
	}

	if _, err := schemaMemory.Execute(ctx, statements); err != nil {
		return err
	}
	return nil
}

func resolveDialect(name string) (dialect.Dialect, error) {
	if name == "" {
		name = os.Getenv("SCHEMA_MEMORY_DIALECT")
	}
	if name == "" {
		return dialect.Postgres, nil
	}
	return dialect.Parse(name)
}

func loadDescriptors(opts *options, logger *logrus.Logger) ([]models.EntityDescriptor, error) {
	if opts.manifest != "" {
		descriptors, err := scanner.LoadManifest(opts.manifest)
		if err != nil {
			return nil, err
		}
		logger.Infof("Loaded %d entity declarations from %s", len(descriptors), opts.manifest)
		return descriptors, nil
	}

	descriptors, err := scanner.ScanSource(opts.sourceDir)
	if err != nil {
		return nil, err
	}
	logger.Infof("Found %d entity declarations under %s", len(descriptors), opts.sourceDir)
	return descriptors, nil
}
