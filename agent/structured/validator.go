package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/BaSui01/claritycast/types"
)

// SchemaValidator validates JSON data against a JSONSchema.
type SchemaValidator interface {
	Validate(data []byte, schema *JSONSchema) error
}

// ParseError represents a validation error with field path.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors struct {
	Errors []ParseError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Issues converts the violations into the shared types.Issue form.
func (e *ValidationErrors) Issues() []types.Issue {
	return toIssues(e.Errors)
}

func toIssues(errs []ParseError) []types.Issue {
	if len(errs) == 0 {
		return nil
	}
	out := make([]types.Issue, len(errs))
	for i, pe := range errs {
		out[i] = types.Issue{Path: pe.Path, Message: pe.Message}
	}
	return out
}

// DefaultValidator is the default implementation of SchemaValidator.
// Violations are reported in a stable order: object keys sorted, array
// items by index.
type DefaultValidator struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// NewValidator creates a new DefaultValidator.
func NewValidator() *DefaultValidator {
	return &DefaultValidator{
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Validate validates JSON data against a schema.
func (v *DefaultValidator) Validate(data []byte, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return &ValidationErrors{
			Errors: []ParseError{{Path: "", Message: fmt.Sprintf("invalid JSON: %v", err)}},
		}
	}

	return v.ValidateValue(value, schema)
}

// ValidateValue validates an already decoded value.
func (v *DefaultValidator) ValidateValue(value any, schema *JSONSchema) error {
	r := &report{v: v}
	r.value(value, schema, "")
	if len(r.errs) > 0 {
		return &ValidationErrors{Errors: r.errs}
	}
	return nil
}

// report 单次校验的违规收集器
type report struct {
	v    *DefaultValidator
	errs []ParseError
}

func (r *report) addf(path, format string, args ...any) {
	r.errs = append(r.errs, ParseError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *report) mismatch(path, want string, got any) {
	r.addf(path, "expected %s, got %s", want, jsonTypeName(got))
}

func (r *report) value(value any, schema *JSONSchema, path string) {
	if schema == nil {
		return
	}

	// const 优先，命中即结束
	if schema.Const != nil {
		if !equalValues(value, schema.Const) {
			r.addf(path, "value must be %v", schema.Const)
		}
		return
	}
	if len(schema.Enum) > 0 && !slices.ContainsFunc(schema.Enum, func(e any) bool { return equalValues(value, e) }) {
		r.addf(path, "value must be one of: %v", schema.Enum)
		return
	}

	switch schema.Type {
	case TypeString:
		r.str(value, schema, path)
	case TypeNumber, TypeInteger:
		r.number(value, schema, path)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			r.mismatch(path, "boolean", value)
		}
	case TypeNull:
		if value != nil {
			r.mismatch(path, "null", value)
		}
	case TypeObject:
		r.object(value, schema, path)
	case TypeArray:
		r.array(value, schema, path)
	}
}

func (r *report) str(value any, schema *JSONSchema, path string) {
	s, ok := value.(string)
	if !ok {
		r.mismatch(path, "string", value)
		return
	}

	n := utf8.RuneCountInString(s)
	switch {
	case schema.MinLength != nil && n < *schema.MinLength:
		// 过短时不再检查 pattern
		r.addf(path, "string length %d is less than minimum %d", n, *schema.MinLength)
		return
	case schema.MaxLength != nil && n > *schema.MaxLength:
		r.addf(path, "string length %d exceeds maximum %d", n, *schema.MaxLength)
	}

	if schema.Pattern == "" {
		return
	}
	re, err := r.v.compile(schema.Pattern)
	switch {
	case err != nil:
		r.addf(path, "invalid pattern %q: %v", schema.Pattern, err)
	case !re.MatchString(s):
		r.addf(path, "string does not match pattern %q", schema.Pattern)
	}
}

func (r *report) number(value any, schema *JSONSchema, path string) {
	num, ok := toFloat64(value)
	if !ok {
		r.mismatch(path, string(schema.Type), value)
		return
	}
	if schema.Type == TypeInteger && num != math.Trunc(num) {
		r.addf(path, "expected integer, got %v", num)
	}
}

func (r *report) object(value any, schema *JSONSchema, path string) {
	obj, ok := value.(map[string]any)
	if !ok {
		r.mismatch(path, "object", value)
		return
	}

	for _, name := range schema.Required {
		switch val, exists := obj[name]; {
		case !exists:
			r.addf(joinPath(path, name), "required field is missing")
		case val == nil:
			r.addf(joinPath(path, name), "required field must not be null")
		}
	}

	closed := schema.AdditionalProperties != nil && !*schema.AdditionalProperties
	for _, name := range slices.Sorted(maps.Keys(obj)) {
		val := obj[name]
		propSchema, known := schema.Properties[name]
		switch {
		case !known && closed:
			r.addf(joinPath(path, name), "additional property not allowed")
		case !known:
		case val == nil && schema.IsRequired(name):
			// 已作为 required 报告
		default:
			r.value(val, propSchema, joinPath(path, name))
		}
	}
}

func (r *report) array(value any, schema *JSONSchema, path string) {
	arr, ok := value.([]any)
	if !ok {
		r.mismatch(path, "array", value)
		return
	}

	n := len(arr)
	switch {
	case schema.MinItems != nil && schema.MaxItems != nil && *schema.MinItems == *schema.MaxItems:
		if n != *schema.MinItems {
			r.addf(path, "array has %d items, must have exactly %d", n, *schema.MinItems)
		}
	case schema.MinItems != nil && n < *schema.MinItems:
		r.addf(path, "array has %d items, minimum is %d", n, *schema.MinItems)
	case schema.MaxItems != nil && n > *schema.MaxItems:
		r.addf(path, "array has %d items, maximum is %d", n, *schema.MaxItems)
	}

	if schema.UniqueItems != nil && *schema.UniqueItems {
		seen := make(map[string]struct{}, n)
		for i, item := range arr {
			key := valueKey(item)
			if _, dup := seen[key]; dup {
				r.addf(indexPath(path, i), "duplicate item in array with uniqueItems constraint")
			}
			seen[key] = struct{}{}
		}
	}

	if schema.Items != nil {
		for i, item := range arr {
			r.value(item, schema.Items, indexPath(path, i))
		}
	}
}

func (v *DefaultValidator) compile(pattern string) (*regexp.Regexp, error) {
	v.mu.RLock()
	re, ok := v.patterns[pattern]
	v.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.patterns[pattern] = re
	v.mu.Unlock()
	return re, nil
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64, int32:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func toFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func equalValues(a, b any) bool {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		return aNum == bNum
	}

	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return aStr == bStr
	}

	aBool, aIsBool := a.(bool)
	bBool, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return aBool == bBool
	}

	if a == nil && b == nil {
		return true
	}

	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)
	return string(aJSON) == string(bJSON)
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}

func valueKey(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}
