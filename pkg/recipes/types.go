package recipes

// Maximum text lengths, matching the database column sizes
const (
	MaxRecipeNameLength     = 255
	MaxStepTextLength       = 255
	MaxIngredientTextLength = 255
	MaxUsernameLength       = 150
	MaxEmailLength          = 254
)

// User owns recipes. PasswordHash is never serialized.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Recipe is the recipe document with its steps and ingredients embedded in creation order.
// Steps and Ingredients are always encoded as arrays.
type Recipe struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	User        int64             `json:"user"`
	Steps       []StepEntry       `json:"steps"`
	Ingredients []IngredientEntry `json:"ingredients"`
}

// StepEntry is a step embedded in a recipe document
type StepEntry struct {
	ID       int64  `json:"id"`
	StepText string `json:"step_text"`
}

// IngredientEntry is an ingredient embedded in a recipe document
type IngredientEntry struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Step is the flat step document served by the steps collection
type Step struct {
	ID       int64  `json:"id"`
	Recipe   int64  `json:"recipe"`
	StepText string `json:"step_text"`
}

// Ingredient is the flat ingredient document served by the ingredients collection
type Ingredient struct {
	ID     int64  `json:"id"`
	Recipe int64  `json:"recipe"`
	Text   string `json:"text"`
}

// Normalize replaces nil child lists with empty ones
func (r *Recipe) Normalize() {
	if r.Steps == nil {
		r.Steps = []StepEntry{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []IngredientEntry{}
	}
}

// RecipeInput is the nested recipe payload. Pointer fields distinguish absent from zero.
type RecipeInput struct {
	Name        *string           `json:"name"`
	User        *int64            `json:"user"`
	Steps       []StepInput       `json:"steps"`
	Ingredients []IngredientInput `json:"ingredients"`
}

// StepInput is a nested step entry. ID selects the step on update and is ignored on create.
type StepInput struct {
	ID       *int64  `json:"id"`
	StepText *string `json:"step_text"`
}

// IngredientInput is a nested ingredient entry. ID selects the ingredient on update and is ignored on create.
type IngredientInput struct {
	ID   *int64  `json:"id"`
	Text *string `json:"text"`
}

// StepInputFlat is the payload of the steps collection
type StepInputFlat struct {
	Recipe   *int64  `json:"recipe"`
	StepText *string `json:"step_text"`
}

// IngredientInputFlat is the payload of the ingredients collection
type IngredientInputFlat struct {
	Recipe *int64  `json:"recipe"`
	Text   *string `json:"text"`
}

// UserInput is the payload of the users collection
type UserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// NewRecipe builds the record to insert from a validated create payload.
// Nested ids are ignored.
func (in RecipeInput) NewRecipe() *Recipe {
	r := &Recipe{
		Name: deref(in.Name),
		User: derefInt(in.User),
	}
	for _, s := range in.Steps {
		r.Steps = append(r.Steps, StepEntry{StepText: deref(s.StepText)})
	}
	for _, i := range in.Ingredients {
		r.Ingredients = append(r.Ingredients, IngredientEntry{Text: deref(i.Text)})
	}
	r.Normalize()
	return r
}

// RecipeUpdate is a validated nested update: an optional new name and the children to rewrite
type RecipeUpdate struct {
	Name        *string
	Steps       []StepEntry
	Ingredients []IngredientEntry
}

// Update builds the update from a validated update payload
func (in RecipeInput) Update() RecipeUpdate {
	u := RecipeUpdate{Name: in.Name}
	for _, s := range in.Steps {
		u.Steps = append(u.Steps, StepEntry{ID: derefInt(s.ID), StepText: deref(s.StepText)})
	}
	for _, i := range in.Ingredients {
		u.Ingredients = append(u.Ingredients, IngredientEntry{ID: derefInt(i.ID), Text: deref(i.Text)})
	}
	return u
}

// Apply merges a flat step payload over an existing step
func (in StepInputFlat) Apply(s *Step) {
	if in.Recipe != nil {
		s.Recipe = *in.Recipe
	}
	if in.StepText != nil {
		s.StepText = *in.StepText
	}
}

// Apply merges a flat ingredient payload over an existing ingredient
func (in IngredientInputFlat) Apply(i *Ingredient) {
	if in.Recipe != nil {
		i.Recipe = *in.Recipe
	}
	if in.Text != nil {
		i.Text = *in.Text
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}
