package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// FieldTypeError reports a JSON value of the wrong type for a field
type FieldTypeError struct {
	Field    string
	Expected string
	Received string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("Incorrect type. Expected %s, received %s.", e.Expected, e.Received)
}

// ErrBodyTooLarge is returned when the body exceeds the MaxBytesMiddleware limit
var ErrBodyTooLarge = errors.New("request body too large")

// ErrTrailingData is returned when the body holds more than one JSON value
var ErrTrailingData = errors.New("JSON parse error - unexpected data after JSON value")

// ParseJSON decodes a single JSON value from the request body into dest. An empty body
// decodes as {}.
func ParseJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return decodeError(err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return ErrTrailingData
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &FieldTypeError{
			Field:    typeErr.Field,
			Expected: typeErr.Type.String(),
			Received: typeErr.Value,
		}
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}

	return fmt.Errorf("JSON parse error - %w", err)
}

// ParseJSONOrError decodes JSON and writes a 400 (413 for oversized bodies) on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	err := ParseJSON(r, dest)
	if err == nil {
		return true
	}

	if errors.Is(err, ErrBodyTooLarge) {
		WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "Request body too large.")
		return false
	}

	var typeErr *FieldTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		WriteValidationError(w, map[string]string{typeErr.Field: typeErr.Error()})
		return false
	}

	WriteBadRequest(w, err.Error())
	return false
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	vars := mux.Vars(r)
	str := vars[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError extracts an int64 path parameter and writes a 400 on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParseQueryInt parses an integer query parameter or returns defaultVal when absent
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryInt64 parses an int64 query parameter or returns defaultVal when absent
func ParseQueryInt64(r *http.Request, key string, defaultVal int64) (int64, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}
