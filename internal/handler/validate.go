package handler

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/dukerupert/ephemera/internal/model"
)

var validate = newValidator()

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// flexTimeLayouts are the accepted expires_at formats. Values without a zone
// are read as UTC.
var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseFlexTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range flexTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("flextime", func(fl validator.FieldLevel) bool {
		_, err := parseFlexTime(fl.Field().String())
		return err == nil
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "notblank":
		return "This field may not be blank."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "flextime":
		return "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	default:
		return fmt.Sprintf("Failed on the %q check.", fe.Tag())
	}
}

// validateStruct runs the struct tags of v. When fields is non-empty only
// those Go field names are checked. Failures come back as a
// *model.ValidationError keyed by JSON name.
func validateStruct(v any, fields ...string) *model.ValidationError {
	var err error
	if len(fields) > 0 {
		err = validate.StructPartial(v, fields...)
	} else {
		err = validate.Struct(v)
	}

	ve := model.NewValidationError()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			ve.Add(fe.Field(), fieldMessage(fe))
		}
	}
	return ve
}
