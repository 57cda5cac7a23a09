package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/recipebox/pkg/httputil"
	"github.com/platinummonkey/recipebox/pkg/recipes"
	"github.com/platinummonkey/recipebox/pkg/storage"
)

// UserHandlers serves the recipe owners
type UserHandlers struct {
	store        storage.Storage
	passwordCost int
}

// NewUserHandlers creates a new user handlers instance hashing passwords at cost
func NewUserHandlers(store storage.Storage, cost int) *UserHandlers {
	return &UserHandlers{store: store, passwordCost: cost}
}

// RegisterRoutes registers user routes
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	handle(router, "/users", h.listUsers, http.MethodGet)
	handle(router, "/users", h.createUser, http.MethodPost)
	handle(router, "/users/{id}", h.getUser, http.MethodGet)
	handle(router, "/users/{id}", h.deleteUser, http.MethodDelete)
}

// listUsers handles GET /users
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	p, page, err := listPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	users, total, err := h.store.Users().List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := httputil.NewPage(r, p, total, users)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, body)
}

// createUser handles POST /users
func (h *UserHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var in recipes.UserInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	if errs := recipes.ValidateUser(in); len(errs) > 0 {
		httputil.WriteValidationError(w, errs)
		return
	}

	user := &recipes.User{Username: *in.Username}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), h.passwordCost)
		if err != nil {
			writeError(w, r, err)
			return
		}
		user.PasswordHash = string(hash)
	}

	if err := h.store.Users().Create(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			httputil.WriteValidationError(w, map[string]string{"username": recipes.MsgUsernameTaken})
			return
		}
		writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, user)
}

// getUser handles GET /users/{id}
func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.Users().Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

// deleteUser handles DELETE /users/{id}, removing the user's recipes with it
func (h *UserHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Users().Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
