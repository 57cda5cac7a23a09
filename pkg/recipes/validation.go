package recipes

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Mode selects which fields a payload must carry
type Mode int

const (
	// ModeCreate requires every required field
	ModeCreate Mode = iota
	// ModeReplace is a full update (PUT): required fields must be present
	ModeReplace
	// ModePartial is a partial update (PATCH): only supplied fields are checked
	ModePartial
)

// Field level messages
const (
	MsgRequired        = "This field is required."
	MsgBlank           = "This field may not be blank."
	MsgInvalidUsername = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgInvalidEmail    = "Enter a valid email address."
	MsgUsernameTaken   = "A user with that username already exists."
	MsgInvalidChoice   = "Select a valid choice. That choice is not one of the available choices."
)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

var usernamePattern = regexp.MustCompile(`^[\pL\pN_.@+\-]+$`)

// MaxLengthMessage is the message for text longer than max characters
func MaxLengthMessage(max int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", max)
}

// InvalidPKMessage is the message for a reference to a record that does not exist
func InvalidPKMessage(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

// ValidationErrors maps field keys to messages. Nested keys look like steps[1].step_text.
type ValidationErrors map[string]string

// Add records msg for field unless the field already has a message
func (v ValidationErrors) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// Err returns v as an error, or nil when empty
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// checkText validates a required text field
func (v ValidationErrors) checkText(field string, value *string, max int, required bool) {
	if value == nil {
		if required {
			v.Add(field, MsgRequired)
		}
		return
	}
	if strings.TrimSpace(*value) == "" {
		v.Add(field, MsgBlank)
		return
	}
	if utf8.RuneCountInString(*value) > max {
		v.Add(field, MaxLengthMessage(max))
	}
}

func (v ValidationErrors) checkRef(field string, value *int64, required bool) {
	if value == nil {
		if required {
			v.Add(field, MsgRequired)
		}
		return
	}
	if *value <= 0 {
		v.Add(field, InvalidPKMessage(*value))
	}
}

// ValidateRecipe checks a nested recipe payload. Reference existence is checked by the caller.
func ValidateRecipe(in RecipeInput, mode Mode) ValidationErrors {
	errs := ValidationErrors{}
	required := mode != ModePartial

	errs.checkText("name", in.Name, MaxRecipeNameLength, required)
	errs.checkRef("user", in.User, required)

	for i, s := range in.Steps {
		prefix := fmt.Sprintf("steps[%d].", i)
		if mode != ModeCreate && s.ID == nil {
			errs.Add(prefix+"id", MsgRequired)
		}
		errs.checkText(prefix+"step_text", s.StepText, MaxStepTextLength, true)
	}

	for i, ing := range in.Ingredients {
		prefix := fmt.Sprintf("ingredients[%d].", i)
		if mode != ModeCreate && ing.ID == nil {
			errs.Add(prefix+"id", MsgRequired)
		}
		errs.checkText(prefix+"text", ing.Text, MaxIngredientTextLength, true)
	}

	return errs
}

// ValidateStep checks a flat step payload
func ValidateStep(in StepInputFlat, mode Mode) ValidationErrors {
	errs := ValidationErrors{}
	required := mode != ModePartial

	errs.checkRef("recipe", in.Recipe, required)
	errs.checkText("step_text", in.StepText, MaxStepTextLength, required)

	return errs
}

// ValidateIngredient checks a flat ingredient payload
func ValidateIngredient(in IngredientInputFlat, mode Mode) ValidationErrors {
	errs := ValidationErrors{}
	required := mode != ModePartial

	errs.checkRef("recipe", in.Recipe, required)
	errs.checkText("text", in.Text, MaxIngredientTextLength, required)

	return errs
}

// ValidateUser checks a user create payload
func ValidateUser(in UserInput) ValidationErrors {
	errs := ValidationErrors{}

	errs.checkText("username", in.Username, MaxUsernameLength, true)
	if _, failed := errs["username"]; !failed && !usernamePattern.MatchString(*in.Username) {
		errs.Add("username", MsgInvalidUsername)
	}

	if in.Email != nil && *in.Email != "" {
		email := *in.Email
		if utf8.RuneCountInString(email) > MaxEmailLength {
			errs.Add("email", MaxLengthMessage(MaxEmailLength))
		} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			errs.Add("email", MsgInvalidEmail)
		}
	}

	if in.Password != nil && len(*in.Password) > MaxPasswordBytes {
		errs.Add("password", MaxLengthMessage(MaxPasswordBytes))
	}

	return errs
}
