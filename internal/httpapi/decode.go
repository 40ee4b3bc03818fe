package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"vllmpoc/pkg/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeChatRequest parses and validates a chat request body. Any error is a
// schema violation, except *http.MaxBytesError for oversized bodies.
func decodeChatRequest(body io.Reader) (types.ChatRequest, error) {
	var req types.ChatRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return req, bodyError(err)
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after JSON value")
		}
		return req, bodyError(err)
	}
	if err := validate.Struct(req); err != nil {
		return req, validationError(err)
	}
	return req, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("invalid request body: %w", err)
}

// validationError renders validator failures as "field: reason" pairs.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "ChatRequest.")
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+": field required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s: must be one of [%s]", field, fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s: must be >= %s", field, fe.Param()))
		case "lte":
			parts = append(parts, fmt.Sprintf("%s: must be <= %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
