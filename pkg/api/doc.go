// Package api provides the HTTP JSON API for recipebox.
//
// # Overview
//
// The API exposes four collections over gorilla/mux, each reachable with or without a
// trailing slash:
//
//   - /recipes: recipes with their steps and ingredients embedded, filterable by user and
//     searchable by the owner's username or email
//   - /steps and /ingredients: the children as flat collections carrying a recipe reference
//   - /users: recipe owners
//
// Lists are paginated with page and page_size and answer {count, next, previous, results}.
//
// # Nested writes
//
// POST /recipes takes the recipe with optional steps and ingredients lists and stores them in
// one transaction. PUT and PATCH rename the recipe and rewrite the text of the children named
// by id; each id is looked up among this recipe's children of the same kind, and an unknown id
// rolls the whole update back with a 404.
//
// # Usage
//
//	db, _ := storage.Open(ctx, cfg.Database)
//	server := api.NewServer(db, api.Options{Logger: logger, Metrics: metrics})
//	server.RegisterRoutes(swagger.NewSwaggerHandlers())
//	http.ListenAndServe(":8000", server)
//
// # Errors
//
// Every error body is {"error": "...", "details": {...}} with details present for field
// validation failures. Storage sentinels map to 404 (not found) and 400 (invalid reference or
// conflict); anything unexpected is logged with the request id and returned as a 500.
package api
