package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := Validate.RegisterValidation("difficulty", validateDifficulty); err != nil {
		panic(fmt.Sprintf("failed to register difficulty validator: %v", err))
	}
	if err := Validate.RegisterValidation("mood", validateMood); err != nil {
		panic(fmt.Sprintf("failed to register mood validator: %v", err))
	}
}

func validateDifficulty(fl validator.FieldLevel) bool {
	_, ok := models.ParseDifficulty(fl.Field().String())
	return ok
}

func validateMood(fl validator.FieldLevel) bool {
	_, ok := models.ParseMood(fl.Field().String())
	return ok
}

// Struct validates s and converts the first failure into a user-facing validation error.
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewValidationError(err.Error())
	}
	return models.NewValidationError(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "difficulty":
		return fmt.Sprintf("invalid difficulty: %v (must be EASY, MODERATE or HARD)", fe.Value())
	case "mood":
		return fmt.Sprintf("invalid mood: %v (must be HAPPY, OKAY or STRESSED)", fe.Value())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
