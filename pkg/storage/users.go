package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/recipebox/pkg/recipes"
)

// UserStore persists users
type UserStore struct {
	db *DB
}

// Create inserts a user and sets its id. A duplicate username returns ErrConflict.
func (s *UserStore) Create(ctx context.Context, user *recipes.User) (err error) {
	ctx, done := s.db.observe(ctx, "users.create")
	defer done(&err)

	err = s.db.sql.QueryRowContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id",
		user.Username, user.Email, user.PasswordHash,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}

	s.db.metrics.RecordCreated("user", 1)
	return nil
}

// Get fetches a user by id
func (s *UserStore) Get(ctx context.Context, id int64) (_ *recipes.User, err error) {
	ctx, done := s.db.observe(ctx, "users.get")
	defer done(&err)

	var user recipes.User
	err = s.db.sql.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash FROM users WHERE id = $1", id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List returns a page of users in id order and the total count
func (s *UserStore) List(ctx context.Context, page Page) (_ []recipes.User, total int, err error) {
	ctx, done := s.db.observe(ctx, "users.list")
	defer done(&err)

	if err = s.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT id, username, email, password_hash FROM users ORDER BY id LIMIT $1 OFFSET $2",
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []recipes.User{}
	for rows.Next() {
		var user recipes.User
		if err = rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

// Exists reports whether a user with id exists
func (s *UserStore) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, s.db.sql, "users", id)
}

// Delete removes the user, their recipes, and those recipes' children in one transaction
func (s *UserStore) Delete(ctx context.Context, id int64) (err error) {
	ctx, done := s.db.observe(ctx, "users.delete")
	defer done(&err)

	var recipeCount int64
	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		ownedRecipes := "SELECT id FROM recipes WHERE user_id = $1"
		if _, err := tx.ExecContext(ctx, "DELETE FROM steps WHERE recipe_id IN ("+ownedRecipes+")", id); err != nil {
			return fmt.Errorf("failed to delete steps: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM ingredients WHERE recipe_id IN ("+ownedRecipes+")", id); err != nil {
			return fmt.Errorf("failed to delete ingredients: %w", err)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM recipes WHERE user_id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete recipes: %w", err)
		}
		if recipeCount, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to count deleted recipes: %w", err)
		}

		return deleteByID(ctx, tx, "users", "user", id)
	})
	if err != nil {
		return err
	}

	s.db.metrics.RecordDeleted("user", 1)
	s.db.metrics.RecordDeleted("recipe", int(recipeCount))
	return nil
}

// exists checks for a row by id in table
func exists(ctx context.Context, q querier, table string, id int64) (bool, error) {
	var found int64
	err := q.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE id = $1", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", table, err)
	}
	return true, nil
}

// deleteByID deletes one row by id, returning ErrNotFound when nothing matched
func deleteByID(ctx context.Context, q querier, table, kind string, id int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}
