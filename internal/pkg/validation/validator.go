// Package validation wraps go-playground/validator with English messages and JSON field
// names. The same instance validates gin request bodies and service inputs, so both
// report errors the same way.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/campusops/erp/internal/pkg/apperrors"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const tagName = "binding"

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// custom tags and their messages
var customTags = []struct {
	tag  string
	text string
	fn   validator.Func
}{
	{"isodate", "{0} must be a date in YYYY-MM-DD format", isoDate},
	{"clock", "{0} must be a time in HH:MM format", clock},
}

// FieldError is one failed rule, keyed by the JSON field name
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries every failed rule of a struct. It unwraps to apperrors.ErrValidationFailed.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return apperrors.ErrValidationFailed
}

// Validator validates structs tagged with `binding:"..."`
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Default returns the process-wide validator
func Default() *Validator {
	defaultOnce.Do(func() { defaultV = New() })
	return defaultV
}

// New builds a validator with English translations and the custom tags registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(tagName)

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	for _, ct := range customTags {
		_ = v.RegisterValidation(ct.tag, ct.fn)
		registerTranslation(v, trans, ct.tag, ct.text)
	}
	return &Validator{validate: v, trans: trans}
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns an *Error listing every failed rule
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fe.Translate(v.trans)})
	}
	return out
}

// Struct validates s with the default validator
func Struct(s interface{}) error {
	return Default().Struct(s)
}

// ginValidator plugs the validator into gin's binding
type ginValidator struct {
	v *Validator
}

func (g ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	return g.v.Struct(obj)
}

func (g ginValidator) Engine() any {
	return g.v.validate
}

// RegisterWithGin makes gin's ShouldBind* use the default validator
func RegisterWithGin() {
	binding.Validator = ginValidator{v: Default()}
}

func isoDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func clock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || clockPattern.MatchString(s)
}
