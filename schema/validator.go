package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/yacchi/assigner/jsonptr"
	"github.com/yacchi/assigner/mapdoc"
)

// Validator validates configuration documents against a schema.
// It is safe for concurrent use and never modifies the data it checks.
type Validator struct {
	schema *Schema

	maxErrors int

	patternCache sync.Map // map[string]*regexp.Regexp
}

// NewValidator returns a validator for schema that stops collecting after
// a hundred failures.
func NewValidator(schema *Schema) *Validator {
	return &Validator{
		schema:    schema,
		maxErrors: 100,
	}
}

// Schema returns the schema the validator checks against.
func (v *Validator) Schema() *Schema {
	return v.schema
}

// Validate checks data against the schema. The returned error, if any, is a
// *ValidationErrors.
func (v *Validator) Validate(data map[string]any) error {
	if v.schema == nil {
		return nil
	}

	errs := &ValidationErrors{}
	v.validateValue("", data, v.schema, errs)
	return errs.AsError()
}

// ValidateValue checks an arbitrary value, such as a single roster entry,
// against schema.
func (v *Validator) ValidateValue(path string, value any, schema *Schema) error {
	errs := &ValidationErrors{}
	v.validateValue(path, value, schema, errs)
	return errs.AsError()
}

func (v *Validator) full(errs *ValidationErrors) bool {
	return v.maxErrors > 0 && errs.Len() >= v.maxErrors
}

func (v *Validator) validateValue(path string, value any, schema *Schema, errs *ValidationErrors) {
	if schema == nil || v.full(errs) {
		return
	}

	if len(schema.AnyOf) > 0 {
		v.validateAnyOf(path, value, schema.AnyOf, errs)
	}

	if len(schema.OneOf) > 0 {
		v.validateOneOf(path, value, schema.OneOf, errs)
	}

	if schema.Const != nil && !valuesEqual(value, schema.Const) {
		errs.AddError(NewConstError(path, value, schema.Const))
	}

	if len(schema.Enum) > 0 {
		v.validateEnum(path, value, schema.Enum, errs)
	}

	if !schema.Type.IsEmpty() {
		v.validateType(path, value, schema, errs)
	} else if obj, ok := value.(map[string]any); ok && (schema.Properties != nil || len(schema.Required) > 0 || schema.AdditionalProperties != nil) {
		// Untyped arms of a tagged union still constrain their properties.
		v.validateObject(path, obj, schema, errs)
	}
}

func (v *Validator) validateAnyOf(path string, value any, schemas []*Schema, errs *ValidationErrors) {
	var closest *ValidationErrors
	for _, s := range schemas {
		testErrs := &ValidationErrors{}
		v.validateValue(path, value, s, testErrs)
		if !testErrs.HasErrors() {
			return
		}
		if closest == nil || testErrs.Len() < closest.Len() {
			closest = testErrs
		}
	}
	errs.Add(path, "value does not match any of the allowed schemas")
	errs.Merge(closest)
}

// validateOneOf reports the failures of the closest arm when no arm
// matches, so that a tagged union explains which field of the intended
// variant is wrong.
func (v *Validator) validateOneOf(path string, value any, schemas []*Schema, errs *ValidationErrors) {
	matchCount := 0
	var closest *ValidationErrors
	for _, s := range schemas {
		testErrs := &ValidationErrors{}
		v.validateValue(path, value, s, testErrs)
		if !testErrs.HasErrors() {
			matchCount++
			continue
		}
		if closest == nil || testErrs.Len() < closest.Len() {
			closest = testErrs
		}
	}

	switch {
	case matchCount == 0:
		errs.Add(path, "value does not match any of the allowed schemas")
		errs.Merge(closest)
	case matchCount > 1:
		errs.Add(path, "value matches more than one schema (must match exactly one)")
	}
}

func (v *Validator) validateType(path string, value any, schema *Schema, errs *ValidationErrors) {
	for _, typ := range schema.Type {
		if !matchesType(value, typ) {
			continue
		}
		switch typ {
		case TypeNameString:
			v.validateString(path, value.(string), schema, errs)
		case TypeNameArray:
			v.validateArray(path, value.([]any), schema, errs)
		case TypeNameObject:
			v.validateObject(path, value.(map[string]any), schema, errs)
		}
		return
	}

	errs.AddError(NewTypeError(path, schema.Type.String(), value))
}

func matchesType(value any, typ string) bool {
	switch typ {
	case TypeNameString:
		_, ok := value.(string)
		return ok
	case TypeNameNumber:
		return isNumber(value)
	case TypeNameInteger:
		return isInteger(value)
	case TypeNameBoolean:
		_, ok := value.(bool)
		return ok
	case TypeNameArray:
		_, ok := value.([]any)
		return ok
	case TypeNameObject:
		_, ok := value.(map[string]any)
		return ok
	case TypeNameNull:
		return value == nil
	default:
		return false
	}
}

func (v *Validator) validateString(path string, value string, schema *Schema, errs *ValidationErrors) {
	if schema.MinLength != nil && len(value) < *schema.MinLength {
		errs.Add(path, fmt.Sprintf("string length %d is less than minimum %d", len(value), *schema.MinLength))
	}

	if schema.Pattern != "" && !v.matchPattern(value, schema.Pattern) {
		errs.AddError(NewPatternError(path, value, schema.Pattern))
	}
}

func (v *Validator) validateArray(path string, arr []any, schema *Schema, errs *ValidationErrors) {
	if schema.Items == nil {
		return
	}
	for i, item := range arr {
		v.validateValue(jsonptr.Append(path, i), item, schema.Items, errs)
	}
}

func (v *Validator) validateObject(path string, obj map[string]any, schema *Schema, errs *ValidationErrors) {
	for _, req := range schema.Required {
		if v.full(errs) {
			return
		}
		if _, exists := obj[req]; !exists {
			errs.AddError(NewRequiredError(jsonptr.Append(path, req)))
		}
	}

	// Sorted for stable diagnostics.
	for _, name := range mapdoc.Keys(obj) {
		if v.full(errs) {
			return
		}
		propPath := jsonptr.Append(path, name)
		if propSchema, ok := schema.Properties[name]; ok {
			v.validateValue(propPath, obj[name], propSchema, errs)
		} else if !schema.AllowsAdditionalProperties() {
			errs.AddError(NewUnknownPropertyError(propPath))
		}
	}
}

func (v *Validator) validateEnum(path string, value any, allowed []any, errs *ValidationErrors) {
	for _, a := range allowed {
		if valuesEqual(value, a) {
			return
		}
	}
	errs.AddError(NewEnumError(path, value, allowed))
}

// matchPattern checks if a string matches a regex pattern. An invalid
// pattern never matches.
func (v *Validator) matchPattern(value, pattern string) bool {
	if cached, ok := v.patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(value)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	v.patternCache.Store(pattern, re)
	return re.MatchString(value)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func isInteger(v any) bool {
	_, ok := mapdoc.Int(v)
	return ok
}

func valuesEqual(a, b any) bool {
	if ai, ok := mapdoc.Int(a); ok {
		bi, ok := mapdoc.Int(b)
		return ok && ai == bi
	}
	return reflect.DeepEqual(a, b)
}
