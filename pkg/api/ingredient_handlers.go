package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/recipebox/pkg/httputil"
	"github.com/platinummonkey/recipebox/pkg/recipes"
	"github.com/platinummonkey/recipebox/pkg/storage"
)

// IngredientHandlers serves ingredients as a flat collection
type IngredientHandlers struct {
	store storage.Storage
}

// NewIngredientHandlers creates a new ingredient handlers instance
func NewIngredientHandlers(store storage.Storage) *IngredientHandlers {
	return &IngredientHandlers{store: store}
}

// RegisterRoutes registers ingredient routes
func (h *IngredientHandlers) RegisterRoutes(router *mux.Router) {
	handle(router, "/ingredients", h.listIngredients, http.MethodGet)
	handle(router, "/ingredients", h.createIngredient, http.MethodPost)
	handle(router, "/ingredients/{id}", h.getIngredient, http.MethodGet)
	handle(router, "/ingredients/{id}", h.replaceIngredient, http.MethodPut)
	handle(router, "/ingredients/{id}", h.patchIngredient, http.MethodPatch)
	handle(router, "/ingredients/{id}", h.deleteIngredient, http.MethodDelete)
}

// listIngredients handles GET /ingredients
func (h *IngredientHandlers) listIngredients(w http.ResponseWriter, r *http.Request) {
	p, page, err := listPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ingredients, total, err := h.store.Ingredients().List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := httputil.NewPage(r, p, total, ingredients)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, body)
}

// createIngredient handles POST /ingredients
func (h *IngredientHandlers) createIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in recipes.IngredientInputFlat
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	errs := recipes.ValidateIngredient(in, recipes.ModeCreate)
	if err := checkReference(ctx, errs, "recipe", in.Recipe, h.store.Recipes().Exists); err != nil {
		writeError(w, r, err)
		return
	}
	if len(errs) > 0 {
		httputil.WriteValidationError(w, errs)
		return
	}

	ingredient := &recipes.Ingredient{}
	in.Apply(ingredient)
	if err := h.store.Ingredients().Create(ctx, ingredient); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, ingredient)
}

// getIngredient handles GET /ingredients/{id}
func (h *IngredientHandlers) getIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	ingredient, err := h.store.Ingredients().Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, ingredient)
}

// replaceIngredient handles PUT /ingredients/{id}
func (h *IngredientHandlers) replaceIngredient(w http.ResponseWriter, r *http.Request) {
	h.updateIngredient(w, r, recipes.ModeReplace)
}

// patchIngredient handles PATCH /ingredients/{id}
func (h *IngredientHandlers) patchIngredient(w http.ResponseWriter, r *http.Request) {
	h.updateIngredient(w, r, recipes.ModePartial)
}

func (h *IngredientHandlers) updateIngredient(w http.ResponseWriter, r *http.Request, mode recipes.Mode) {
	ctx := r.Context()

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	ingredient, err := h.store.Ingredients().Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in recipes.IngredientInputFlat
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	errs := recipes.ValidateIngredient(in, mode)
	if err := checkReference(ctx, errs, "recipe", in.Recipe, h.store.Recipes().Exists); err != nil {
		writeError(w, r, err)
		return
	}
	if len(errs) > 0 {
		httputil.WriteValidationError(w, errs)
		return
	}

	in.Apply(ingredient)
	if err := h.store.Ingredients().Update(ctx, ingredient); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, ingredient)
}

// deleteIngredient handles DELETE /ingredients/{id}
func (h *IngredientHandlers) deleteIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Ingredients().Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
