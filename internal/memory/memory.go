package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/schema-memory/internal/catalog"
	"github.com/vitebski/schema-memory/internal/connector"
	"github.com/vitebski/schema-memory/internal/dialect"
	"github.com/vitebski/schema-memory/internal/reconciler"
	"github.com/vitebski/schema-memory/internal/registry"
	"github.com/vitebski/schema-memory/pkg/models"
)

// Executor runs catalog reads and the drained statement batch
type Executor interface {
	catalog.Executor
	ExecuteBatch(ctx context.Context, queries []connector.Query) (int64, error)
	SQLDialect() dialect.Dialect
}

// SchemaMemory keeps the catalog in step with the declared entities
type SchemaMemory struct {
	DB      Executor
	Catalog *catalog.Accessor
	Logger  *logrus.Logger

	mu    sync.Mutex
	queue *reconciler.ApplyQueue
}

// New creates a schema memory on top of an executor
func New(db Executor, logger *logrus.Logger) *SchemaMemory {
	return &SchemaMemory{
		DB:      db,
		Catalog: catalog.NewAccessor(db, db.SQLDialect(), logger),
		Logger:  logger,
		queue:   reconciler.NewApplyQueue(),
	}
}

// Reconcile runs a full reconciliation pass for the given declarations and
// leaves the resulting statements in the apply queue. Any failure aborts the
// run and leaves the queue empty.
func (m *SchemaMemory) Reconcile(ctx context.Context, descriptors []models.EntityDescriptor) (models.RenameMap, error) {
	log := m.Logger.WithField("run", uuid.NewString())

	m.mu.Lock()
	m.queue = reconciler.NewApplyQueue()
	m.mu.Unlock()

	reg, err := registry.NewRegistry(descriptors)
	if err != nil {
		log.Errorf("Rejected entity declarations: %v", err)
		return nil, err
	}
	log.Infof("Registered %d entities", reg.Len())

	if err := m.Catalog.EnsureCatalogTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.Catalog.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded %d catalog rows", len(rows))

	result := reconciler.Reconcile(reg, rows)
	for newName, oldName := range result.Renames {
		log.Infof("Entity %s was renamed to %s", oldName, newName)
	}

	queue := reconciler.NewApplyQueue()
	queue.Push(reconciler.GenerateStatements(result)...)

	m.mu.Lock()
	m.queue = queue
	m.mu.Unlock()

	log.Infof("Reconciliation finished: %d inserts, %d updates, %d deletes",
		len(result.Inserts), len(result.Updates), len(result.Deletes))
	return result.Renames, nil
}

// DrainQueue returns the statements of the last reconciliation and empties the queue
func (m *SchemaMemory) DrainQueue() []models.PendingStatement {
	m.mu.Lock()
	queue := m.queue
	m.mu.Unlock()

	return queue.Drain()
}

// Apply drains the queue and executes it in a single transaction
func (m *SchemaMemory) Apply(ctx context.Context) (int64, error) {
	return m.Execute(ctx, m.DrainQueue())
}

// Execute renders statements for the executor's dialect and runs them in a single transaction
func (m *SchemaMemory) Execute(ctx context.Context, statements []models.PendingStatement) (int64, error) {
	if len(statements) == 0 {
		m.Logger.Info("Catalog is up to date, nothing to apply")
		return 0, nil
	}

	d := m.DB.SQLDialect()
	queries := make([]connector.Query, 0, len(statements))
	for _, statement := range statements {
		query, params, err := reconciler.Render(statement, d)
		if err != nil {
			return 0, fmt.Errorf("render %s statement: %w", statement.Kind, err)
		}
		queries = append(queries, connector.Query{SQL: query, Params: params})
	}

	affected, err := m.DB.ExecuteBatch(ctx, queries)
	if err != nil {
		return 0, fmt.Errorf("apply catalog statements: %w", err)
	}

	m.Logger.Infof("Applied %d catalog statements (%d rows affected)", len(queries), affected)
	return affected, nil
}
