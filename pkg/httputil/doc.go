// Package httputil provides HTTP utilities shared by the recipebox API handlers.
//
// # Responses
//
// Every error body has the same shape:
//
//	{"error": "Validation failed", "details": {"name": "This field is required."}}
//
// Handlers use the Write* helpers rather than encoding errors themselves:
//
//	httputil.WriteValidationError(w, verrs)
//	httputil.WriteNotFoundError(w, "Not found.")
//	httputil.WriteCreated(w, recipe)
//
// # Requests
//
// ParseJSONOrError decodes a body and writes the 400 itself. A value of the wrong JSON type
// is reported against its field:
//
//	var in recipes.RecipeInput
//	if !httputil.ParseJSONOrError(w, r, &in) {
//		return
//	}
//
// # Pagination
//
// List endpoints accept page and page_size and answer with a Page body carrying the total
// count and absolute next/previous links:
//
//	p, err := httputil.ParsePagination(r)
//	...
//	page, err := httputil.NewPage(r, p, total, results)
//
// # Middleware
//
// RequestIDMiddleware, LoggingMiddleware, RecoveryMiddleware, CORSMiddleware,
// ContentTypeMiddleware, MaxBytesMiddleware and TimeoutMiddleware compose with Chain.
package httputil
