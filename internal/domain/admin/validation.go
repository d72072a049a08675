package admin

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"adminnext/internal/infrastructure/storage/sqldb"
	"adminnext/internal/metadata"
)

// Validator checks a submitted payload before it is written.
//
// Validate returns the cleaned values on success, or a field -> message map.
type Validator interface {
	Validate(payload map[string]any) (metadata.Row, map[string]string)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(payload map[string]any) (metadata.Row, map[string]string)

func (f ValidatorFunc) Validate(payload map[string]any) (metadata.Row, map[string]string) {
	return f(payload)
}

// StructValidator validates payloads against the `validate` tags of T.
//
// Payload keys are matched to fields by their `db` tag. Values are decoded with weak
// typing, so form strings like "42" or "true" fill numeric and boolean fields.
type StructValidator[T any] struct {
	validate *validator.Validate
}

// NewStructValidator creates a validator for schema type T.
func NewStructValidator[T any]() *StructValidator[T] {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return &StructValidator[T]{validate: v}
}

// Validate decodes payload into T, runs the validation rules and returns the submitted
// fields converted to the schema types. Keys unknown to T are passed through untouched.
func (v *StructValidator[T]) Validate(payload map[string]any) (metadata.Row, map[string]string) {
	var dst T
	if err := decodeInto(payload, &dst); err != nil {
		return nil, v.decodeErrors(payload, err)
	}

	if err := v.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, map[string]string{"__all__": err.Error()}
		}
		errs := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			errs[fe.Field()] = validationMessage(fe)
		}
		return nil, errs
	}

	out := make(metadata.Row, len(payload))
	for k, val := range sqldb.StructToMap(dst) {
		if _, ok := payload[k]; ok {
			out[k] = plainValue(val)
		}
	}
	for k, val := range payload {
		if _, ok := out[k]; !ok {
			out[k] = val
		}
	}
	return out, nil
}

// decodeErrors finds the keys that failed to decode by retrying them one at a time.
func (v *StructValidator[T]) decodeErrors(payload map[string]any, cause error) map[string]string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := make(map[string]string)
	for _, k := range keys {
		var probe T
		if err := decodeInto(map[string]any{k: payload[k]}, &probe); err != nil {
			errs[k] = "invalid value"
		}
	}
	if len(errs) == 0 {
		errs["__all__"] = cause.Error()
	}
	return errs
}

func decodeInto(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "url", "http_url":
		return "value is not a valid URL"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be greater than or equal to " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be less than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}

// plainValue converts named scalar types (type Status string) to their base types,
// which is what column coercion expects.
func plainValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}
