package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/recipebox/pkg/observability"
	"github.com/platinummonkey/recipebox/pkg/recipes"
)

func pancakes(owner int64) *recipes.Recipe {
	return &recipes.Recipe{
		Name: "Pancakes",
		User: owner,
		Steps: []recipes.StepEntry{
			{StepText: "Mix flour and milk"},
			{StepText: "Rest the batter"},
			{StepText: "Fry"},
		},
		Ingredients: []recipes.IngredientEntry{
			{Text: "Flour"},
			{Text: "Milk"},
		},
	}
}

func TestRecipeStore_Create(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice", "")

	t.Run("children inserted in order", func(t *testing.T) {
		recipe := pancakes(user.ID)
		require.NoError(t, db.Recipes().Create(ctx, recipe))
		assert.NotZero(t, recipe.ID)

		got, err := db.Recipes().Get(ctx, recipe.ID)
		require.NoError(t, err)
		assert.Equal(t, recipe, got)
		require.Len(t, got.Steps, 3)
		assert.Equal(t, "Mix flour and milk", got.Steps[0].StepText)
		assert.Equal(t, "Fry", got.Steps[2].StepText)
		assert.Less(t, got.Steps[0].ID, got.Steps[1].ID)

		var stepsForRecipe int
		require.NoError(t, db.SQL().QueryRow("SELECT COUNT(*) FROM steps WHERE recipe_id = $1", recipe.ID).Scan(&stepsForRecipe))
		assert.Equal(t, 3, stepsForRecipe)
	})

	t.Run("no children gives empty lists", func(t *testing.T) {
		recipe := &recipes.Recipe{Name: "Toast", User: user.ID}
		require.NoError(t, db.Recipes().Create(ctx, recipe))

		got, err := db.Recipes().Get(ctx, recipe.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.Steps)
		assert.Empty(t, got.Steps)
		assert.NotNil(t, got.Ingredients)
		assert.Empty(t, got.Ingredients)
	})

	t.Run("unknown owner is an invalid reference", func(t *testing.T) {
		before := countRows(t, db, "recipes")
		err := db.Recipes().Create(ctx, pancakes(999))
		assert.ErrorIs(t, err, ErrInvalidReference)
		assert.Equal(t, before, countRows(t, db, "recipes"))
	})
}

func TestRecipeStore_CreateRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO recipes").
		WithArgs("Pancakes", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO steps").
		WithArgs(int64(10), "Mix flour and milk").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery("INSERT INTO steps").
		WithArgs(int64(10), "Rest the batter").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	db := New(sqlDB, DialectPostgres).WithMetrics(metrics)

	recipe := pancakes(1)
	err = db.Recipes().Create(context.Background(), recipe)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create step 1")
	assert.Zero(t, recipe.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("recipes.create", "error")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RecordsCreatedTotal.WithLabelValues("recipe")))
}

func TestRecipeStore_List(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice", "alice@example.com")
	bob := createUser(t, db, "bob", "Bob@Example.com")

	var aliceIDs []int64
	for i := 0; i < 5; i++ {
		r := pancakes(alice.ID)
		require.NoError(t, db.Recipes().Create(ctx, r))
		aliceIDs = append(aliceIDs, r.ID)
	}
	bobRecipe := &recipes.Recipe{Name: "Omelette", User: bob.ID}
	require.NoError(t, db.Recipes().Create(ctx, bobRecipe))

	t.Run("total independent of page size", func(t *testing.T) {
		for _, size := range []int{1, 2, 10} {
			list, total, err := db.Recipes().List(ctx, RecipeFilter{}, Page{Limit: size})
			require.NoError(t, err)
			assert.Equal(t, 6, total)
			assert.LessOrEqual(t, len(list), size)
		}
	})

	t.Run("pages are id ordered with children", func(t *testing.T) {
		list, _, err := db.Recipes().List(ctx, RecipeFilter{}, Page{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, aliceIDs[2], list[0].ID)
		assert.Equal(t, aliceIDs[3], list[1].ID)
		assert.Len(t, list[0].Steps, 3)
		assert.Len(t, list[1].Ingredients, 2)
	})

	t.Run("filter by user", func(t *testing.T) {
		list, total, err := db.Recipes().List(ctx, RecipeFilter{UserID: bob.ID}, Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		assert.Equal(t, bobRecipe.ID, list[0].ID)
		assert.Empty(t, list[0].Steps)
	})

	t.Run("search matches username or email ignoring case", func(t *testing.T) {
		cases := []struct {
			terms []string
			want  int
		}{
			{[]string{"ALICE"}, 5},
			{[]string{"alice@example.com"}, 5},
			{[]string{"bob@example.com"}, 1},
			{[]string{"ali"}, 0},
			{[]string{"alice", "bob"}, 0},
			{[]string{"bob", "BOB@example.COM"}, 1},
		}
		for _, c := range cases {
			_, total, err := db.Recipes().List(ctx, RecipeFilter{SearchTerms: c.terms}, Page{Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, c.want, total, "terms %v", c.terms)
		}
	})

	t.Run("filter and search combine", func(t *testing.T) {
		_, total, err := db.Recipes().List(ctx, RecipeFilter{UserID: alice.ID, SearchTerms: []string{"bob"}}, Page{Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		list, total, err := db.Recipes().List(ctx, RecipeFilter{}, Page{Limit: 10, Offset: 100})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Empty(t, list)
	})
}

func TestRecipeFilter_Where(t *testing.T) {
	where, args := RecipeFilter{}.where()
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = RecipeFilter{UserID: 3, SearchTerms: []string{"Ann"}}.where()
	assert.Equal(t, " WHERE r.user_id = $1 AND (LOWER(u.username) = $2 OR LOWER(u.email) = $3)", where)
	assert.Equal(t, []interface{}{int64(3), "ann", "ann"}, args)
}

func TestRecipeStore_Update(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice", "")

	recipe := pancakes(user.ID)
	require.NoError(t, db.Recipes().Create(ctx, recipe))
	other := pancakes(user.ID)
	require.NoError(t, db.Recipes().Create(ctx, other))

	t.Run("name only leaves children", func(t *testing.T) {
		name := "Crepes"
		got, err := db.Recipes().Update(ctx, recipe.ID, recipes.RecipeUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Crepes", got.Name)
		assert.Equal(t, recipe.Steps, got.Steps)
		assert.Equal(t, recipe.Ingredients, got.Ingredients)
	})

	t.Run("named step changes alone", func(t *testing.T) {
		target := recipe.Steps[1]
		got, err := db.Recipes().Update(ctx, recipe.ID, recipes.RecipeUpdate{
			Steps: []recipes.StepEntry{{ID: target.ID, StepText: "Rest for ten minutes"}},
		})
		require.NoError(t, err)
		assert.Equal(t, recipe.Steps[0], got.Steps[0])
		assert.Equal(t, "Rest for ten minutes", got.Steps[1].StepText)
		assert.Equal(t, recipe.Steps[2], got.Steps[2])
	})

	t.Run("ingredient ids resolve among ingredients", func(t *testing.T) {
		got, err := db.Recipes().Update(ctx, recipe.ID, recipes.RecipeUpdate{
			Ingredients: []recipes.IngredientEntry{{ID: recipe.Ingredients[0].ID, Text: "Buckwheat flour"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Buckwheat flour", got.Ingredients[0].Text)
		assert.Equal(t, "Rest for ten minutes", got.Steps[1].StepText, "steps untouched")

		// A step id that is not also an ingredient id of this recipe must not resolve
		stepOnlyID := recipe.Steps[2].ID
		require.NotContains(t, []int64{recipe.Ingredients[0].ID, recipe.Ingredients[1].ID}, stepOnlyID)
		_, err = db.Recipes().Update(ctx, recipe.ID, recipes.RecipeUpdate{
			Ingredients: []recipes.IngredientEntry{{ID: stepOnlyID, Text: "Salt"}},
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("child of another recipe rolls everything back", func(t *testing.T) {
		name := "Should not stick"
		_, err := db.Recipes().Update(ctx, recipe.ID, recipes.RecipeUpdate{
			Name:  &name,
			Steps: []recipes.StepEntry{{ID: recipe.Steps[0].ID, StepText: "changed"}, {ID: other.Steps[0].ID, StepText: "stolen"}},
		})
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := db.Recipes().Get(ctx, recipe.ID)
		require.NoError(t, err)
		assert.Equal(t, "Crepes", got.Name)
		assert.Equal(t, "Mix flour and milk", got.Steps[0].StepText)

		untouched, err := db.Recipes().Get(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mix flour and milk", untouched.Steps[0].StepText)
	})

	t.Run("unknown recipe", func(t *testing.T) {
		_, err := db.Recipes().Update(ctx, 999, recipes.RecipeUpdate{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRecipeStore_Delete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "alice", "")

	recipe := pancakes(user.ID)
	require.NoError(t, db.Recipes().Create(ctx, recipe))

	require.NoError(t, db.Recipes().Delete(ctx, recipe.ID))

	assert.Zero(t, countRows(t, db, "recipes"))
	assert.Zero(t, countRows(t, db, "steps"))
	assert.Zero(t, countRows(t, db, "ingredients"))

	_, err := db.Recipes().Get(ctx, recipe.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.Recipes().Delete(ctx, recipe.ID), ErrNotFound)
}

func TestRecipeStore_DeleteRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM steps").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM ingredients").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM recipes").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = New(sqlDB, DialectPostgres).Recipes().Delete(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
