// Package validation checks request bodies and renders field errors in plain English.
package validation

import (
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const alphanumUnderscoreTag = "alphanum_"

var alphanumUnderscore = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validator implements echo.Validator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(alphanumUnderscoreTag, func(fl validator.FieldLevel) bool {
		return alphanumUnderscore.MatchString(fl.Field().String())
	})
	_ = validate.RegisterTranslation(alphanumUnderscoreTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " may only contain letters, numbers and underscores"
		},
	)

	return &Validator{validate: validate, translator: translator}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

// Fields maps each failing JSON field to its message.
func (v *Validator) Fields(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = fe.Translate(v.translator)
	}
	return fields
}

// Message joins the field messages into one sentence list, ordered by field name.
func (v *Validator) Message(errs validator.ValidationErrors) string {
	fields := v.Fields(errs)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, len(names))
	for i, name := range names {
		msgs[i] = fields[name]
	}
	return strings.Join(msgs, "; ")
}
