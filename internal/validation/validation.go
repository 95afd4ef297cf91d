// Package validation registers the admission-specific validator rules used in
// request `binding` tags.
package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var personNameRe = regexp.MustCompile(`^[a-zA-Z\s]+$`)

const passwordSpecials = "@$!%*?&"

var once sync.Once

// RegisterWithGin installs the custom rules on gin's default validator engine.
// Safe to call more than once.
func RegisterWithGin() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := Register(v); err != nil {
			panic(err)
		}
	})
}

func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"personname":     personName,
		"strongpassword": strongPassword,
		"role":           role,
		"program":        program,
		"grade":          grade,
		"studymode":      studyMode,
		"decision":       decision,
		"notblank":       notBlank,
		"courses":        courses,
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	v.RegisterCustomTypeFunc(flexFloatValue, application.FlexFloat{})

	return nil
}

func personName(fl validator.FieldLevel) bool {
	return personNameRe.MatchString(fl.Field().String())
}

// strongPassword requires an upper, a lower, a digit and one of @$!%*?&.
func strongPassword(fl validator.FieldLevel) bool {
	var upper, lower, digit, special bool

	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	return upper && lower && digit && special
}

func role(fl validator.FieldLevel) bool {
	return user.Role(fl.Field().String()).IsValid()
}

func program(fl validator.FieldLevel) bool {
	return application.IsKnownProgram(fl.Field().String())
}

func grade(fl validator.FieldLevel) bool {
	return application.IsExpectedGrade(fl.Field().String())
}

func studyMode(fl validator.FieldLevel) bool {
	return application.StudyMode(fl.Field().String()).IsValid()
}

// decision accepts only the statuses an admin may set.
func decision(fl validator.FieldLevel) bool {
	s := application.Status(fl.Field().String())
	return s == application.StatusAccepted || s == application.StatusRejected
}

// courses runs on the trimmed names so padding can't fake distinct entries.
func courses(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	trimmed, ok := application.TrimCourses(raw)
	return ok && len(trimmed) >= application.MinCourses
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func flexFloatValue(field reflect.Value) interface{} {
	f, ok := field.Interface().(application.FlexFloat)
	if !ok || f.Value == nil {
		return 0.0
	}
	return *f.Value
}
