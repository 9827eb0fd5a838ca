// Package bind decodes and shape-checks JSON request bodies.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names in errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// JSON decodes r's body into dst and runs its validate tags. Tags only check
// the request shape; business rules stay in the ledger.
func JSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return Struct(dst)
}

func Struct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		msgs = append(msgs, e.Field()+": "+message(e))
	}

	return errors.New(strings.Join(msgs, "; "))
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "uuid":
		return "must be a UUID"
	default:
		return "is invalid"
	}
}
