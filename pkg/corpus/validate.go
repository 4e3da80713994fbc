package corpus

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/stubdex/pkg/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

var rubyVersion = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		})
		_ = validate.RegisterValidation("rubyversion", func(fl validator.FieldLevel) bool {
			return rubyVersion.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
			return doublestar.ValidatePattern(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the configuration, reporting every invalid field.
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate corpus config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(errors.ErrCodeInvalidConfig, "invalid corpus config: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "rubyversion":
		return fmt.Sprintf("%s %q is not a version like 3.4", field, fe.Value())
	case "glob":
		return fmt.Sprintf("%s %q is not a valid glob", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s %q must be one of: %s", field, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param())
	}
}
