package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/platinummonkey/recipebox/pkg/observability"
)

// Migration is a versioned schema change
type Migration struct {
	Version     int
	Description string
	// Statements returns the DDL for a dialect, run in order inside one transaction
	Statements func(d Dialect) []string
}

// GetMigrations returns all schema migrations in version order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			Statements: func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
						id %s,
						username VARCHAR(150) NOT NULL UNIQUE,
						email VARCHAR(254) NOT NULL DEFAULT '',
						password_hash VARCHAR(128) NOT NULL DEFAULT ''
					)`, d.primaryKey()),
					`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
				}
			},
		},
		{
			Version:     2,
			Description: "Create recipes table",
			Statements: func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS recipes (
						id %s,
						name VARCHAR(255) NOT NULL,
						user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
					)`, d.primaryKey()),
					`CREATE INDEX IF NOT EXISTS idx_recipes_user_id ON recipes(user_id)`,
				}
			},
		},
		{
			Version:     3,
			Description: "Create steps and ingredients tables",
			Statements: func(d Dialect) []string {
				return []string{
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS steps (
						id %s,
						recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
						step_text VARCHAR(255) NOT NULL
					)`, d.primaryKey()),
					`CREATE INDEX IF NOT EXISTS idx_steps_recipe_id ON steps(recipe_id)`,
					fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ingredients (
						id %s,
						recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
						text VARCHAR(255) NOT NULL
					)`, d.primaryKey()),
					`CREATE INDEX IF NOT EXISTS idx_ingredients_recipe_id ON ingredients(recipe_id)`,
				}
			},
		},
	}
}

// Migrate applies every migration not yet recorded in schema_migrations
func (db *DB) Migrate(ctx context.Context, logger *observability.Logger) error {
	_, err := db.sql.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	migrations := GetMigrations()
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		logger.WithFields(map[string]interface{}{
			"version":     m.Version,
			"description": m.Description,
		}).Info("Applying migration")

		err := db.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.Statements(db.dialect) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
				m.Version, m.Description,
			)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
