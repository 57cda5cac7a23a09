package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/recipebox/pkg/observability"
)

// DB is the data-access handle shared by the record stores. It is opened at process start,
// passed to the API, and closed at shutdown.
type DB struct {
	sql     *sql.DB
	dialect Dialect
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Open connects to the configured database and verifies the connection
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialect, _ := ParseDialect(cfg.Driver)

	sqlDB, err := sql.Open(dialect.DriverName(), dialect.dsn(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// One connection keeps :memory: databases alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}

	return New(sqlDB, dialect), nil
}

// New wraps an existing connection pool
func New(sqlDB *sql.DB, dialect Dialect) *DB {
	return &DB{
		sql:     sqlDB,
		dialect: dialect,
		tracer:  observability.Tracer(),
	}
}

// WithMetrics records storage operations on m
func (db *DB) WithMetrics(m *observability.Metrics) *DB {
	db.metrics = m
	return db
}

// SQL returns the underlying pool
func (db *DB) SQL() *sql.DB {
	return db.sql
}

// Dialect returns the SQL dialect of the connection
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping verifies the connection
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.sql.Close()
}

// Users returns the user store
func (db *DB) Users() Users { return &UserStore{db: db} }

// Recipes returns the recipe store
func (db *DB) Recipes() Recipes { return &RecipeStore{db: db} }

// Steps returns the step store
func (db *DB) Steps() Steps { return &StepStore{db: db} }

// Ingredients returns the ingredient store
func (db *DB) Ingredients() Ingredients { return &IngredientStore{db: db} }

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, committing on success and rolling back on error or panic
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// observe starts a span for a storage operation. The returned func ends it and records metrics.
func (db *DB) observe(ctx context.Context, operation string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := db.tracer.Start(ctx, "storage."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", string(db.dialect)),
			attribute.String("db.operation", operation),
		),
	)

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		db.metrics.ObserveStorage(ctx, operation, start, err)
	}
}
