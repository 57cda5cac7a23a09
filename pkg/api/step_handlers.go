package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/recipebox/pkg/httputil"
	"github.com/platinummonkey/recipebox/pkg/recipes"
	"github.com/platinummonkey/recipebox/pkg/storage"
)

// StepHandlers serves steps as a flat collection
type StepHandlers struct {
	store storage.Storage
}

// NewStepHandlers creates a new step handlers instance
func NewStepHandlers(store storage.Storage) *StepHandlers {
	return &StepHandlers{store: store}
}

// RegisterRoutes registers step routes
func (h *StepHandlers) RegisterRoutes(router *mux.Router) {
	handle(router, "/steps", h.listSteps, http.MethodGet)
	handle(router, "/steps", h.createStep, http.MethodPost)
	handle(router, "/steps/{id}", h.getStep, http.MethodGet)
	handle(router, "/steps/{id}", h.replaceStep, http.MethodPut)
	handle(router, "/steps/{id}", h.patchStep, http.MethodPatch)
	handle(router, "/steps/{id}", h.deleteStep, http.MethodDelete)
}

// listSteps handles GET /steps
func (h *StepHandlers) listSteps(w http.ResponseWriter, r *http.Request) {
	p, page, err := listPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	steps, total, err := h.store.Steps().List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := httputil.NewPage(r, p, total, steps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, body)
}

// createStep handles POST /steps
func (h *StepHandlers) createStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in recipes.StepInputFlat
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	errs := recipes.ValidateStep(in, recipes.ModeCreate)
	if err := checkReference(ctx, errs, "recipe", in.Recipe, h.store.Recipes().Exists); err != nil {
		writeError(w, r, err)
		return
	}
	if len(errs) > 0 {
		httputil.WriteValidationError(w, errs)
		return
	}

	step := &recipes.Step{}
	in.Apply(step)
	if err := h.store.Steps().Create(ctx, step); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, step)
}

// getStep handles GET /steps/{id}
func (h *StepHandlers) getStep(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	step, err := h.store.Steps().Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, step)
}

// replaceStep handles PUT /steps/{id}
func (h *StepHandlers) replaceStep(w http.ResponseWriter, r *http.Request) {
	h.updateStep(w, r, recipes.ModeReplace)
}

// patchStep handles PATCH /steps/{id}
func (h *StepHandlers) patchStep(w http.ResponseWriter, r *http.Request) {
	h.updateStep(w, r, recipes.ModePartial)
}

func (h *StepHandlers) updateStep(w http.ResponseWriter, r *http.Request, mode recipes.Mode) {
	ctx := r.Context()

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	step, err := h.store.Steps().Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in recipes.StepInputFlat
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	errs := recipes.ValidateStep(in, mode)
	if err := checkReference(ctx, errs, "recipe", in.Recipe, h.store.Recipes().Exists); err != nil {
		writeError(w, r, err)
		return
	}
	if len(errs) > 0 {
		httputil.WriteValidationError(w, errs)
		return
	}

	in.Apply(step)
	if err := h.store.Steps().Update(ctx, step); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, step)
}

// deleteStep handles DELETE /steps/{id}
func (h *StepHandlers) deleteStep(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Steps().Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
