package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/recipebox/pkg/recipes"
)

// RecipeStore persists recipes and their embedded steps and ingredients
type RecipeStore struct {
	db *DB
}

// Create inserts the recipe, then its steps, then its ingredients, in payload order and in
// one transaction. Ids are written back into recipe.
func (s *RecipeStore) Create(ctx context.Context, recipe *recipes.Recipe) (err error) {
	ctx, done := s.db.observe(ctx, "recipes.create")
	defer done(&err)

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"INSERT INTO recipes (name, user_id) VALUES ($1, $2) RETURNING id",
			recipe.Name, recipe.User,
		).Scan(&recipe.ID)
		if err != nil {
			return fmt.Errorf("failed to create recipe: %w", translateError(err))
		}

		for i := range recipe.Steps {
			err := tx.QueryRowContext(ctx,
				"INSERT INTO steps (recipe_id, step_text) VALUES ($1, $2) RETURNING id",
				recipe.ID, recipe.Steps[i].StepText,
			).Scan(&recipe.Steps[i].ID)
			if err != nil {
				return fmt.Errorf("failed to create step %d: %w", i, translateError(err))
			}
		}

		for i := range recipe.Ingredients {
			err := tx.QueryRowContext(ctx,
				"INSERT INTO ingredients (recipe_id, text) VALUES ($1, $2) RETURNING id",
				recipe.ID, recipe.Ingredients[i].Text,
			).Scan(&recipe.Ingredients[i].ID)
			if err != nil {
				return fmt.Errorf("failed to create ingredient %d: %w", i, translateError(err))
			}
		}

		return nil
	})
	if err != nil {
		recipe.ID = 0
		return err
	}

	recipe.Normalize()
	s.db.metrics.RecordCreated("recipe", 1)
	s.db.metrics.RecordCreated("step", len(recipe.Steps))
	s.db.metrics.RecordCreated("ingredient", len(recipe.Ingredients))
	return nil
}

// Get fetches a recipe with its children
func (s *RecipeStore) Get(ctx context.Context, id int64) (_ *recipes.Recipe, err error) {
	ctx, done := s.db.observe(ctx, "recipes.get")
	defer done(&err)

	return s.get(ctx, id)
}

func (s *RecipeStore) get(ctx context.Context, id int64) (*recipes.Recipe, error) {
	var recipe recipes.Recipe
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT id, name, user_id FROM recipes WHERE id = $1", id,
	).Scan(&recipe.ID, &recipe.Name, &recipe.User)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("recipe", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	list := []recipes.Recipe{recipe}
	if err := s.loadChildren(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns a page of recipes in id order and the total number matching filter
func (s *RecipeStore) List(ctx context.Context, filter RecipeFilter, page Page) (_ []recipes.Recipe, total int, err error) {
	ctx, done := s.db.observe(ctx, "recipes.list")
	defer done(&err)

	where, args := filter.where()

	countQuery := "SELECT COUNT(*) FROM recipes r JOIN users u ON u.id = r.user_id" + where
	if err = s.db.sql.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT r.id, r.name, r.user_id FROM recipes r JOIN users u ON u.id = r.user_id%s ORDER BY r.id LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2,
	)
	rows, err := s.db.sql.QueryContext(ctx, query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	list := []recipes.Recipe{}
	for rows.Next() {
		var recipe recipes.Recipe
		if err = rows.Scan(&recipe.ID, &recipe.Name, &recipe.User); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan recipe: %w", err)
		}
		list = append(list, recipe)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	if err = s.loadChildren(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// where builds the filter clause and its arguments
func (f RecipeFilter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.UserID != 0 {
		args = append(args, f.UserID)
		clauses = append(clauses, fmt.Sprintf("r.user_id = $%d", len(args)))
	}

	for _, term := range f.SearchTerms {
		term = strings.ToLower(term)
		args = append(args, term, term)
		clauses = append(clauses, fmt.Sprintf("(LOWER(u.username) = $%d OR LOWER(u.email) = $%d)", len(args)-1, len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// loadChildren fills Steps and Ingredients for every recipe with one query per child kind
func (s *RecipeStore) loadChildren(ctx context.Context, list []recipes.Recipe) error {
	index := make(map[int64]*recipes.Recipe, len(list))
	ids := make([]interface{}, 0, len(list))
	for i := range list {
		list[i].Normalize()
		index[list[i].ID] = &list[i]
		ids = append(ids, list[i].ID)
	}
	if len(ids) == 0 {
		return nil
	}
	in := placeholders(1, len(ids))

	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT id, recipe_id, step_text FROM steps WHERE recipe_id IN ("+in+") ORDER BY id", ids...)
	if err != nil {
		return fmt.Errorf("failed to load steps: %w", err)
	}
	for rows.Next() {
		var step recipes.StepEntry
		var recipeID int64
		if err := rows.Scan(&step.ID, &recipeID, &step.StepText); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan step: %w", err)
		}
		if r, ok := index[recipeID]; ok {
			r.Steps = append(r.Steps, step)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("failed to iterate steps: %w", err)
	}

	rows, err = s.db.sql.QueryContext(ctx,
		"SELECT id, recipe_id, text FROM ingredients WHERE recipe_id IN ("+in+") ORDER BY id", ids...)
	if err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}
	for rows.Next() {
		var ingredient recipes.IngredientEntry
		var recipeID int64
		if err := rows.Scan(&ingredient.ID, &recipeID, &ingredient.Text); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan ingredient: %w", err)
		}
		if r, ok := index[recipeID]; ok {
			r.Ingredients = append(r.Ingredients, ingredient)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("failed to iterate ingredients: %w", err)
	}

	return nil
}

// Exists reports whether a recipe with id exists
func (s *RecipeStore) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, s.db.sql, "recipes", id)
}

// Update applies the new name and rewrites each named child. Steps are looked up among this
// recipe's steps and ingredients among this recipe's ingredients; an id outside that scope
// returns ErrNotFound and nothing is written.
func (s *RecipeStore) Update(ctx context.Context, id int64, update recipes.RecipeUpdate) (_ *recipes.Recipe, err error) {
	ctx, done := s.db.observe(ctx, "recipes.update")
	defer done(&err)

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, "recipes", id)
		if err != nil {
			return err
		}
		if !found {
			return notFound("recipe", id)
		}

		if update.Name != nil {
			if _, err := tx.ExecContext(ctx, "UPDATE recipes SET name = $1 WHERE id = $2", *update.Name, id); err != nil {
				return fmt.Errorf("failed to update recipe: %w", err)
			}
		}

		for _, step := range update.Steps {
			if err := updateChild(ctx, tx,
				"UPDATE steps SET step_text = $1 WHERE id = $2 AND recipe_id = $3",
				"step", step.StepText, step.ID, id); err != nil {
				return err
			}
		}

		for _, ingredient := range update.Ingredients {
			if err := updateChild(ctx, tx,
				"UPDATE ingredients SET text = $1 WHERE id = $2 AND recipe_id = $3",
				"ingredient", ingredient.Text, ingredient.ID, id); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.get(ctx, id)
}

func updateChild(ctx context.Context, tx *sql.Tx, query, kind, text string, childID, recipeID int64) error {
	res, err := tx.ExecContext(ctx, query, text, childID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", kind, childID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", kind, childID, err)
	}
	if n == 0 {
		return notFound(kind, childID)
	}
	return nil
}

// Delete removes the recipe and all of its steps and ingredients in one transaction
func (s *RecipeStore) Delete(ctx context.Context, id int64) (err error) {
	ctx, done := s.db.observe(ctx, "recipes.delete")
	defer done(&err)

	var stepCount, ingredientCount int64
	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM steps WHERE recipe_id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete steps: %w", err)
		}
		stepCount, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, "DELETE FROM ingredients WHERE recipe_id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete ingredients: %w", err)
		}
		ingredientCount, _ = res.RowsAffected()

		return deleteByID(ctx, tx, "recipes", "recipe", id)
	})
	if err != nil {
		return err
	}

	s.db.metrics.RecordDeleted("recipe", 1)
	s.db.metrics.RecordDeleted("step", int(stepCount))
	s.db.metrics.RecordDeleted("ingredient", int(ingredientCount))
	return nil
}
