package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks request bodies. Field names in messages are the JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Request bodies. Pointer fields distinguish "missing" from the zero value.
type (
	edidRequest struct {
		Version string `json:"version" validate:"required,oneof=1.4 2.0"`
	}

	supportRequest struct {
		Enabled *bool `json:"enabled" validate:"required"`
	}

	brightnessRequest struct {
		Brightness *int `json:"brightness" validate:"required,min=0,max=100"`
		// Persist defaults to true.
		Persist *bool `json:"persist,omitempty"`
	}

	stateRequest struct {
		State string `json:"state" validate:"required"`
	}

	colorRequest struct {
		Color string `json:"color" validate:"required"`
	}

	timeFormatRequest struct {
		Format string `json:"format" validate:"required,oneof=12_HOUR 24_HOUR"`
	}

	clockRequest struct {
		Enabled *bool `json:"enabled" validate:"required"`
	}
)

// decodeBody decodes and validates the JSON body of r into v. On failure it
// writes a 400 response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders validator errors as one readable line.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	messages := make([]string, len(fieldErrs))
	for i, e := range fieldErrs {
		messages[i] = fieldMessage(e)
	}
	return strings.Join(messages, "; ")
}

func fieldMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}
