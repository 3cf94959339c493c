package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

var (
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Validator wraps validator.Validate with English messages keyed by JSON field name.
type Validator struct {
	*validator.Validate
	translator ut.Translator
}

// New builds a validator with the custom "phone", "isodate" and "notblank"
// tags registered.
func New() *Validator {
	v := validator.New()
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	out := &Validator{Validate: v, translator: trans}
	out.register("phone", "{0} must be a valid phone number", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	out.register("isodate", "{0} must be a date formatted YYYY-MM-DD", func(fl validator.FieldLevel) bool {
		return dateRegex.MatchString(fl.Field().String())
	})
	out.register("notblank", "{0} must not be blank", validators.NotBlank)
	return out
}

func (v *Validator) register(tag, text string, fn validator.Func) {
	_ = v.RegisterValidation(tag, fn)
	_ = v.RegisterTranslation(tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		},
	)
}

// Translate maps validation failures to field -> message.
func (v *Validator) Translate(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fe.Namespace()
		if idx := strings.Index(key, "."); idx >= 0 {
			key = key[idx+1:]
		}
		out[key] = fe.Translate(v.translator)
	}
	return out
}

// Check validates s and returns a VALIDATION_ERROR carrying per-field details.
func (v *Validator) Check(s interface{}, message string) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	if message == "" {
		message = appErrors.ErrValidation.Message
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message).
		WithDetails(v.Translate(err))
}
