// Package recipes defines the recipe, step, ingredient, and user records, the JSON documents
// served for them, the request payloads, and payload validation.
//
// Payload fields are pointers so a partial update can tell an absent field from an empty one:
//
//	var in recipes.RecipeInput
//	json.NewDecoder(r.Body).Decode(&in)
//	if err := recipes.ValidateRecipe(in, recipes.ModePartial).Err(); err != nil {
//		// err is a recipes.ValidationErrors keyed by field
//	}
//
// Validation is collected per field rather than stopping at the first failure, and nested
// entries are keyed by position, for example "steps[1].step_text".
package recipes
