package app

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// validationMessages overrides the message for a field and tag, keyed as
// "field.tag" using the JSON field name.
var validationMessages = map[string]string{
	"name.required": "The name cannot be empty nor null!",
	"name.max":      "The name cannot be longer than 255 characters!",
	"id.required":   "The id cannot be null!",
}

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() requestValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return requestValidator{validate: validate}
}

// Validate satisfies the [echo.Validator] interface.
func (rv requestValidator) Validate(i any) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return echo.ErrInternalServerError.WithInternal(err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		msg, ok := validationMessages[fieldErr.Field()+"."+fieldErr.Tag()]
		if !ok {
			msg = fieldErr.Error()
		}
		msgs = append(msgs, msg)
	}
	return echo.NewHTTPError(http.StatusBadRequest, strings.Join(msgs, "; ")).WithInternal(err)
}

// bindValid binds the request body into req and validates it.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

var _ echo.Validator = requestValidator{}
