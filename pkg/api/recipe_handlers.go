package api

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/recipebox/pkg/httputil"
	"github.com/platinummonkey/recipebox/pkg/recipes"
	"github.com/platinummonkey/recipebox/pkg/storage"
)

// RecipeHandlers serves the recipes collection with nested steps and ingredients
type RecipeHandlers struct {
	store storage.Storage
}

// NewRecipeHandlers creates a new recipe handlers instance
func NewRecipeHandlers(store storage.Storage) *RecipeHandlers {
	return &RecipeHandlers{store: store}
}

// RegisterRoutes registers recipe routes
func (h *RecipeHandlers) RegisterRoutes(router *mux.Router) {
	handle(router, "/recipes", h.listRecipes, http.MethodGet)
	handle(router, "/recipes", h.createRecipe, http.MethodPost)
	handle(router, "/recipes/{id}", h.getRecipe, http.MethodGet)
	handle(router, "/recipes/{id}", h.replaceRecipe, http.MethodPut)
	handle(router, "/recipes/{id}", h.patchRecipe, http.MethodPatch)
	handle(router, "/recipes/{id}", h.deleteRecipe, http.MethodDelete)
}

// listRecipes handles GET /recipes?user=&search=&page=&page_size=
func (h *RecipeHandlers) listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, page, err := listPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter := storage.RecipeFilter{
		SearchTerms: searchTerms(r.URL.Query().Get("search")),
	}

	if r.URL.Query().Get("user") != "" {
		id, err := httputil.ParseQueryInt64(r, "user", 0)
		if err == nil && id > 0 {
			var ok bool
			if ok, err = h.store.Users().Exists(ctx, id); err != nil {
				writeError(w, r, err)
				return
			}
			if ok {
				filter.UserID = id
			}
		}
		if filter.UserID == 0 {
			httputil.WriteValidationError(w, map[string]string{"user": recipes.MsgInvalidChoice})
			return
		}
	}

	list, total, err := h.store.Recipes().List(ctx, filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := httputil.NewPage(r, p, total, list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, body)
}

// searchTerms splits a search parameter on whitespace and commas
func searchTerms(raw string) []string {
	return strings.FieldsFunc(raw, func(c rune) bool {
		return unicode.IsSpace(c) || c == ','
	})
}

// createRecipe handles POST /recipes
func (h *RecipeHandlers) createRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in recipes.RecipeInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	errs := recipes.ValidateRecipe(in, recipes.ModeCreate)
	if err := checkReference(ctx, errs, "user", in.User, h.store.Users().Exists); err != nil {
		writeError(w, r, err)
		return
	}
	if len(errs) > 0 {
		httputil.WriteValidationError(w, errs)
		return
	}

	recipe := in.NewRecipe()
	if err := h.store.Recipes().Create(ctx, recipe); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, recipe)
}

// getRecipe handles GET /recipes/{id}
func (h *RecipeHandlers) getRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	recipe, err := h.store.Recipes().Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, recipe)
}

// replaceRecipe handles PUT /recipes/{id}
func (h *RecipeHandlers) replaceRecipe(w http.ResponseWriter, r *http.Request) {
	h.updateRecipe(w, r, recipes.ModeReplace)
}

// patchRecipe handles PATCH /recipes/{id}
func (h *RecipeHandlers) patchRecipe(w http.ResponseWriter, r *http.Request) {
	h.updateRecipe(w, r, recipes.ModePartial)
}

// updateRecipe renames the recipe and rewrites the listed children. The owner is validated but
// never changed.
func (h *RecipeHandlers) updateRecipe(w http.ResponseWriter, r *http.Request, mode recipes.Mode) {
	ctx := r.Context()

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	exists, err := h.store.Recipes().Exists(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !exists {
		httputil.WriteNotFoundError(w, msgNotFound)
		return
	}

	var in recipes.RecipeInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	errs := recipes.ValidateRecipe(in, mode)
	if err := checkReference(ctx, errs, "user", in.User, h.store.Users().Exists); err != nil {
		writeError(w, r, err)
		return
	}
	if len(errs) > 0 {
		httputil.WriteValidationError(w, errs)
		return
	}

	recipe, err := h.store.Recipes().Update(ctx, id, in.Update())
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, recipe)
}

// deleteRecipe handles DELETE /recipes/{id}
func (h *RecipeHandlers) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Recipes().Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
