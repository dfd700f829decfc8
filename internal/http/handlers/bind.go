package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes and validates the body into out. On failure it writes the
// error response and returns false.
func BindJSON(ctx *gin.Context, out any) bool {
	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
		return false
	}

	RespondBadRequest(ctx, CodeValidation, "Invalid request body", parseBindError(err, out))
	return false
}

func parseBindError(err error, out any) any {
	rootType := baseStructType(out)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]FieldError, 0, len(validationErrs))

		for _, fe := range validationErrs {
			fields = append(fields, FieldError{
				Field:   jsonPathFromValidatorError(rootType, fe),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := mapStructPathToJSONPath(rootType, strings.Split(strings.TrimSpace(typeErr.Field), "."))
		if field == "" {
			field = strings.TrimSpace(typeErr.Field)
		}

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
			}},
		}
	}

	return gin.H{"json": "invalid_json"}
}

func baseStructType(v any) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// jsonPathFromValidatorError turns "ReplaceRequest.Nests[0].HatchDate" into
// "nests[0].hatchDate".
func jsonPathFromValidatorError(rootType reflect.Type, fe validator.FieldError) string {
	namespace := fe.StructNamespace()
	if namespace == "" {
		return fe.Field()
	}

	parts := strings.Split(namespace, ".")
	if rootType != nil && len(parts) > 0 && parts[0] == rootType.Name() {
		parts = parts[1:]
	}

	if path := mapStructPathToJSONPath(rootType, parts); path != "" {
		return path
	}
	return fe.Field()
}

func mapStructPathToJSONPath(rootType reflect.Type, parts []string) string {
	current := rootType
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			continue
		}

		name, index, _ := strings.Cut(part, "[")
		if index != "" {
			index = "[" + index
		}

		jsonName := name
		var next reflect.Type

		if current != nil && current.Kind() == reflect.Struct {
			if sf, ok := current.FieldByName(name); ok {
				jsonName = jsonNameOf(sf)
				next = sf.Type
			}
		}

		out = append(out, jsonName+index)
		current = elemStruct(next)
	}

	return strings.Join(out, ".")
}

func jsonNameOf(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

func elemStruct(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		case reflect.Struct:
			return t
		default:
			return nil
		}
	}
	return nil
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "datetime":
		if param == "2006-01-02" {
			return "must be a date in YYYY-MM-DD format"
		}
		return "must match the layout " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
