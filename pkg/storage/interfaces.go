package storage

import (
	"context"

	"github.com/platinummonkey/recipebox/pkg/recipes"
)

// Page selects a window of an id-ordered list
type Page struct {
	Limit  int
	Offset int
}

// RecipeFilter narrows a recipe listing
type RecipeFilter struct {
	// UserID keeps only recipes owned by this user when non-zero
	UserID int64

	// SearchTerms must each equal, ignoring case, the owner's username or email
	SearchTerms []string
}

// Users stores recipe owners
type Users interface {
	Create(ctx context.Context, user *recipes.User) error
	Get(ctx context.Context, id int64) (*recipes.User, error)
	List(ctx context.Context, page Page) ([]recipes.User, int, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// Delete removes the user and every recipe they own
	Delete(ctx context.Context, id int64) error
}

// Recipes stores recipes together with their steps and ingredients
type Recipes interface {
	// Create inserts the recipe and its children in one transaction, filling in ids
	Create(ctx context.Context, recipe *recipes.Recipe) error
	Get(ctx context.Context, id int64) (*recipes.Recipe, error)
	List(ctx context.Context, filter RecipeFilter, page Page) ([]recipes.Recipe, int, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// Update renames the recipe and rewrites the named children, each scoped to this recipe
	Update(ctx context.Context, id int64, update recipes.RecipeUpdate) (*recipes.Recipe, error)
	// Delete removes the recipe with all of its steps and ingredients
	Delete(ctx context.Context, id int64) error
}

// Steps stores steps as a flat collection
type Steps interface {
	Create(ctx context.Context, step *recipes.Step) error
	Get(ctx context.Context, id int64) (*recipes.Step, error)
	List(ctx context.Context, page Page) ([]recipes.Step, int, error)
	Update(ctx context.Context, step *recipes.Step) error
	Delete(ctx context.Context, id int64) error
}

// Ingredients stores ingredients as a flat collection
type Ingredients interface {
	Create(ctx context.Context, ingredient *recipes.Ingredient) error
	Get(ctx context.Context, id int64) (*recipes.Ingredient, error)
	List(ctx context.Context, page Page) ([]recipes.Ingredient, int, error)
	Update(ctx context.Context, ingredient *recipes.Ingredient) error
	Delete(ctx context.Context, id int64) error
}

// Storage hands out the record stores and reports connection health
type Storage interface {
	Users() Users
	Recipes() Recipes
	Steps() Steps
	Ingredients() Ingredients
	Ping(ctx context.Context) error
}

var _ Storage = (*DB)(nil)
