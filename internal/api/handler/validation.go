// internal/api/handler/validation.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"tcoin-wallet/internal/util"
)

const maxBodyBytes = 1 << 16

var validate = newValidator()

// newValidator reports fields by their JSON names.
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

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// decodeRequest reads a JSON body into dst and validates its struct tags.
// Malformed JSON yields ErrInvalidInput; tag failures yield ValidationErrors.
func decodeRequest(r *http.Request, dst interface{}) ([]ValidationError, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON body", util.ErrInvalidInput)
	}

	err := validate.Struct(dst)
	if err == nil {
		return nil, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidInput, err)
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return out, nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "gte":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "ne":
		return fe.Field() + " must not be " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}

// bind decodes and validates a request, writing the 400 response itself
// when the request is rejected. It reports whether the handler may go on.
func (h responder) bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	fieldErrs, err := decodeRequest(r, dst)
	if err != nil {
		h.respondWithError(w, err)
		return false
	}
	if len(fieldErrs) > 0 {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"details": fieldErrs,
		})
		return false
	}
	return true
}
