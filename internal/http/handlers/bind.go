package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/geocoder89/admissionhub/internal/domain/application"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes and validates the body into out. On failure it has already
// written a 400 whose message names the first offending field.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	details, fields := parseBindError(err, out)

	message := "Invalid request body"
	if len(fields) > 0 {
		message = fields[0].Field + " " + fields[0].Message
	}

	RespondBadRequest(ctx, message, details)
	return false
}

func parseBindError(err error, out interface{}) (gin.H, []FieldError) {
	rootType := baseStructType(out)

	var validatorError validator.ValidationErrors
	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   jsonPathFromValidatorError(rootType, fieldError),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param, fieldError.Kind()),
			})
		}
		return gin.H{"fields": fields}, fields
	}

	// GPA / start date strings that don't parse
	var formatError *application.FormatError
	if errors.As(err, &formatError) {
		fields := []FieldError{{
			Field:   formatError.Field,
			Rule:    "format",
			Message: "has an invalid format",
		}}
		return gin.H{"fields": fields}, fields
	}

	var syntaxError *json.SyntaxError
	if errors.As(err, &syntaxError) {
		return gin.H{"json": "invalid_json_syntax"}, nil
	}

	var unmatchedTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmatchedTypeError) {
		field := jsonPathFromDotPath(rootType, unmatchedTypeError.Field)
		if field == "" {
			field = strings.TrimSpace(unmatchedTypeError.Field)
		}

		fields := []FieldError{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
		}}

		return gin.H{
			"json":   "invalid_json_type",
			"field":  field,
			"fields": fields,
		}, fields
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}, nil
	}

	return gin.H{"reason": err.Error()}, nil
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func jsonPathFromValidatorError(rootType reflect.Type, fieldError validator.FieldError) string {
	// Namespace format is usually "<StructName>.<Field>[.<NestedField>...]".
	namespace := fieldError.StructNamespace()
	if namespace == "" {
		namespace = fieldError.Namespace()
	}

	if namespace == "" {
		return fieldError.Field()
	}

	parts := strings.Split(namespace, ".")
	if len(parts) == 0 {
		return fieldError.Field()
	}

	if rootType != nil && rootType.Name() != "" && parts[0] == rootType.Name() {
		parts = parts[1:]
	}

	path := mapStructPathToJSONPath(rootType, parts)
	if path != "" {
		return path
	}

	return fieldError.Field()
}

func jsonPathFromDotPath(rootType reflect.Type, dotPath string) string {
	dotPath = strings.TrimSpace(dotPath)
	if dotPath == "" {
		return ""
	}

	return mapStructPathToJSONPath(rootType, strings.Split(dotPath, "."))
}

func mapStructPathToJSONPath(rootType reflect.Type, parts []string) string {
	if len(parts) == 0 {
		return ""
	}

	current := rootType
	out := make([]string, 0, len(parts))

	for _, rawPart := range parts {
		if rawPart == "" {
			continue
		}

		fieldName, indexSuffix := splitFieldIndex(rawPart)
		jsonName := fieldName

		nextType := reflect.Type(nil)
		if current != nil {
			for current.Kind() == reflect.Pointer {
				current = current.Elem()
			}

			if current.Kind() == reflect.Struct {
				if sf, ok := current.FieldByName(fieldName); ok {
					jsonName = jsonNameFromStructField(sf)
					nextType = sf.Type
				}
			}
		}

		out = append(out, jsonName+indexSuffix)

		if nextType != nil {
			current = unwindCollection(nextType)
		} else {
			current = nil
		}
	}

	return strings.Join(out, ".")
}

func splitFieldIndex(part string) (string, string) {
	idx := strings.Index(part, "[")
	if idx == -1 {
		return part, ""
	}

	return part[:idx], part[idx:]
}

func jsonNameFromStructField(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func unwindCollection(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}

	return nil
}

func validationMessage(rule, param string, kind reflect.Kind) string {
	collection := kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map

	switch rule {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		if collection {
			return "must contain at least " + param + " items"
		}
		return "must be at least " + param + " characters"
	case "max":
		if collection {
			return "must contain at most " + param + " items"
		}
		return "must be at most " + param + " characters"
	case "gte":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	case "courses":
		return "must be distinct and not blank"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "personname":
		return "can only contain letters and spaces"
	case "strongpassword":
		return "must contain an uppercase letter, a lowercase letter, a number and a special character"
	case "role":
		return "must be STUDENT or ADMIN"
	case "program":
		return "must be a known program"
	case "grade":
		return "must be a valid expected grade"
	case "studymode":
		return "must be FULLTIME, PARTTIME, ONLINE or HYBRID"
	case "decision":
		return "must be ACCEPTED or REJECTED"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
