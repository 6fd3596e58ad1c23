package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/curricuforge/internal/model"
)

// DetailKey holds the error of a payload that could not be decoded at all.
const DetailKey = "detail"

// trans is the singleton English translator for validation errors.
var (
	trans     ut.Translator
	setupOnce sync.Once
)

// customRule is a validation tag registered on top of the built-in set.
type customRule struct {
	tag     string
	fn      govalidator.Func
	message string
}

var customRules = []customRule{
	{
		tag:     "notblank",
		fn:      validators.NotBlank,
		message: "{0} must not be blank",
	},
	{
		tag: "curriculum_level",
		fn: func(fl govalidator.FieldLevel) bool {
			_, ok := model.ParseLevel(fl.Field().String())
			return ok
		},
		message: "{0} must be one of: " + joinOptions(model.Levels),
	},
	{
		tag: "optimization_preference",
		fn: func(fl govalidator.FieldLevel) bool {
			_, ok := model.ParseOptimizationPreference(fl.Field().String())
			return ok
		},
		message: "{0} must be one of: " + joinOptions(model.OptimizationPreferences),
	},
}

// Setup registers the validator with English translations on Gin's binding engine.
// Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}

		// Use JSON tag name for field names in error messages.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Register English translations.
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		for _, rule := range customRules {
			_ = v.RegisterValidation(rule.tag, rule.fn)
			_ = v.RegisterTranslation(rule.tag, trans, registerMessage(rule.tag, rule.message), translateField)
		}
	})
}

func registerMessage(tag, message string) govalidator.RegisterTranslationsFunc {
	return func(ut ut.Translator) error {
		return ut.Add(tag, message, true)
	}
}

func translateField(ut ut.Translator, fe govalidator.FieldError) string {
	msg, err := ut.T(fe.Tag(), fe.Field())
	if err != nil {
		return fe.Error()
	}
	return msg
}

func joinOptions[T ~string](opts []T) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = string(o)
	}
	return strings.Join(parts, ", ")
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with DetailKey.
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans == nil {
				fields[fe.Field()] = fe.Error()
				continue
			}
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields[DetailKey] = err.Error()
	return fields
}

// IsMalformed reports whether fields describe an undecodable payload
// rather than failed field rules.
func IsMalformed(fields map[string]string) bool {
	_, ok := fields[DetailKey]
	return ok
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindForm is Bind for urlencoded or multipart form posts.
func BindForm(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindWith(dst, binding.Form); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Validate runs the binding rules against a value that did not come from a
// request, e.g. CLI input.
func Validate(v interface{}) map[string]string {
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
