package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/recipebox/pkg/recipes"
)

// IngredientStore persists ingredients as a flat collection
type IngredientStore struct {
	db *DB
}

// Create inserts an ingredient. An unknown recipe returns ErrInvalidReference.
func (s *IngredientStore) Create(ctx context.Context, ingredient *recipes.Ingredient) (err error) {
	ctx, done := s.db.observe(ctx, "ingredients.create")
	defer done(&err)

	err = s.db.sql.QueryRowContext(ctx,
		"INSERT INTO ingredients (recipe_id, text) VALUES ($1, $2) RETURNING id",
		ingredient.Recipe, ingredient.Text,
	).Scan(&ingredient.ID)
	if err != nil {
		return fmt.Errorf("failed to create ingredient: %w", translateError(err))
	}

	s.db.metrics.RecordCreated("ingredient", 1)
	return nil
}

// Get fetches an ingredient by id
func (s *IngredientStore) Get(ctx context.Context, id int64) (_ *recipes.Ingredient, err error) {
	ctx, done := s.db.observe(ctx, "ingredients.get")
	defer done(&err)

	var ingredient recipes.Ingredient
	err = s.db.sql.QueryRowContext(ctx,
		"SELECT id, recipe_id, text FROM ingredients WHERE id = $1", id,
	).Scan(&ingredient.ID, &ingredient.Recipe, &ingredient.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("ingredient", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ingredient, nil
}

// List returns a page of ingredients in id order and the total count
func (s *IngredientStore) List(ctx context.Context, page Page) (_ []recipes.Ingredient, total int, err error) {
	ctx, done := s.db.observe(ctx, "ingredients.list")
	defer done(&err)

	if err = s.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM ingredients").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ingredients: %w", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT id, recipe_id, text FROM ingredients ORDER BY id LIMIT $1 OFFSET $2",
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := []recipes.Ingredient{}
	for rows.Next() {
		var ingredient recipes.Ingredient
		if err = rows.Scan(&ingredient.ID, &ingredient.Recipe, &ingredient.Text); err != nil {
			return nil, 0, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ingredient)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate ingredients: %w", err)
	}

	return ingredients, total, nil
}

// Update writes the ingredient's recipe and text
func (s *IngredientStore) Update(ctx context.Context, ingredient *recipes.Ingredient) (err error) {
	ctx, done := s.db.observe(ctx, "ingredients.update")
	defer done(&err)

	res, err := s.db.sql.ExecContext(ctx,
		"UPDATE ingredients SET recipe_id = $1, text = $2 WHERE id = $3",
		ingredient.Recipe, ingredient.Text, ingredient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ingredient: %w", translateError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update ingredient: %w", err)
	}
	if n == 0 {
		return notFound("ingredient", ingredient.ID)
	}
	return nil
}

// Delete removes an ingredient
func (s *IngredientStore) Delete(ctx context.Context, id int64) (err error) {
	ctx, done := s.db.observe(ctx, "ingredients.delete")
	defer done(&err)

	if err = deleteByID(ctx, s.db.sql, "ingredients", "ingredient", id); err != nil {
		return err
	}
	s.db.metrics.RecordDeleted("ingredient", 1)
	return nil
}
