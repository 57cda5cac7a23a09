package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/recipebox/pkg/recipes"
)

// StepStore persists steps as a flat collection
type StepStore struct {
	db *DB
}

// Create inserts a step. An unknown recipe returns ErrInvalidReference.
func (s *StepStore) Create(ctx context.Context, step *recipes.Step) (err error) {
	ctx, done := s.db.observe(ctx, "steps.create")
	defer done(&err)

	err = s.db.sql.QueryRowContext(ctx,
		"INSERT INTO steps (recipe_id, step_text) VALUES ($1, $2) RETURNING id",
		step.Recipe, step.StepText,
	).Scan(&step.ID)
	if err != nil {
		return fmt.Errorf("failed to create step: %w", translateError(err))
	}

	s.db.metrics.RecordCreated("step", 1)
	return nil
}

// Get fetches a step by id
func (s *StepStore) Get(ctx context.Context, id int64) (_ *recipes.Step, err error) {
	ctx, done := s.db.observe(ctx, "steps.get")
	defer done(&err)

	var step recipes.Step
	err = s.db.sql.QueryRowContext(ctx,
		"SELECT id, recipe_id, step_text FROM steps WHERE id = $1", id,
	).Scan(&step.ID, &step.Recipe, &step.StepText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("step", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	return &step, nil
}

// List returns a page of steps in id order and the total count
func (s *StepStore) List(ctx context.Context, page Page) (_ []recipes.Step, total int, err error) {
	ctx, done := s.db.observe(ctx, "steps.list")
	defer done(&err)

	if err = s.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM steps").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count steps: %w", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT id, recipe_id, step_text FROM steps ORDER BY id LIMIT $1 OFFSET $2",
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	steps := []recipes.Step{}
	for rows.Next() {
		var step recipes.Step
		if err = rows.Scan(&step.ID, &step.Recipe, &step.StepText); err != nil {
			return nil, 0, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate steps: %w", err)
	}

	return steps, total, nil
}

// Update writes the step's recipe and text
func (s *StepStore) Update(ctx context.Context, step *recipes.Step) (err error) {
	ctx, done := s.db.observe(ctx, "steps.update")
	defer done(&err)

	res, err := s.db.sql.ExecContext(ctx,
		"UPDATE steps SET recipe_id = $1, step_text = $2 WHERE id = $3",
		step.Recipe, step.StepText, step.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", translateError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	if n == 0 {
		return notFound("step", step.ID)
	}
	return nil
}

// Delete removes a step
func (s *StepStore) Delete(ctx context.Context, id int64) (err error) {
	ctx, done := s.db.observe(ctx, "steps.delete")
	defer done(&err)

	if err = deleteByID(ctx, s.db.sql, "steps", "step", id); err != nil {
		return err
	}
	s.db.metrics.RecordDeleted("step", 1)
	return nil
}
