// Package storage is the recipebox data-access layer over database/sql.
//
// # Dialects
//
// PostgreSQL (lib/pq) is the production database and SQLite (go-sqlite3) serves local
// development and tests. Queries are shared: both drivers accept $N placeholders and
// INSERT ... RETURNING. Only DDL differs per dialect.
//
// # Usage
//
//	db, err := storage.Open(ctx, cfg.Database)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, logger); err != nil {
//		return err
//	}
//
//	recipe := &recipes.Recipe{Name: "Pancakes", User: userID, Steps: steps}
//	err = db.Recipes().Create(ctx, recipe)
//
// # Transactions
//
// Writes touching several rows (nested recipe create and update, recipe delete, user delete)
// run in a single transaction and are rolled back on any error.
//
// # Errors
//
// Stores return ErrNotFound, ErrConflict, or ErrInvalidReference wrapped with context.
// Unique and foreign-key violations from either driver are translated to the latter two.
package storage
