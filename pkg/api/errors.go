package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/platinummonkey/recipebox/pkg/httputil"
	"github.com/platinummonkey/recipebox/pkg/observability"
	"github.com/platinummonkey/recipebox/pkg/recipes"
	"github.com/platinummonkey/recipebox/pkg/storage"
)

const msgNotFound = "Not found."

// writeError maps storage and validation errors onto responses. Anything else is logged
// with the request id and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs recipes.ValidationErrors

	switch {
	case errors.As(err, &verrs):
		httputil.WriteValidationError(w, verrs)
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteNotFoundError(w, msgNotFound)
	case errors.Is(err, httputil.ErrInvalidPage):
		httputil.WriteError(w, http.StatusNotFound, httputil.ErrInvalidPage)
	case errors.Is(err, storage.ErrInvalidReference):
		httputil.WriteBadRequest(w, "Referenced object does not exist.")
	case errors.Is(err, storage.ErrConflict):
		httputil.WriteBadRequest(w, "Conflicts with an existing record.")
	case errors.Is(err, context.DeadlineExceeded):
		observability.FromContext(r.Context()).WithError(err).Warn("Request timed out")
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "Request timed out.")
	default:
		observability.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		httputil.WriteInternalError(w)
	}
}

// checkReference adds an invalid pk message for field when id names a missing record.
// Fields that already failed validation are not looked up.
func checkReference(ctx context.Context, errs recipes.ValidationErrors, field string, id *int64, exists func(context.Context, int64) (bool, error)) error {
	if id == nil {
		return nil
	}
	if _, failed := errs[field]; failed {
		return nil
	}

	ok, err := exists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		errs.Add(field, recipes.InvalidPKMessage(*id))
	}
	return nil
}

// listPage reads the pagination parameters and converts them to a storage page
func listPage(r *http.Request) (httputil.Pagination, storage.Page, error) {
	p, err := httputil.ParsePagination(r)
	if err != nil {
		return p, storage.Page{}, err
	}
	return p, storage.Page{Limit: p.Limit(), Offset: p.Offset()}, nil
}
