package builder

import (
	"fmt"
	"sort"
	"strings"

	errs "github.com/carlosnayan/agentdb/internal/errors"
	"github.com/carlosnayan/agentdb/schema"
)

// ValidationError reports an invalid argument detected before any SQL is sent
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes errors.Is(err, errs.ErrValidation) hold
func (e ValidationError) Unwrap() error {
	return errs.ErrValidation
}

// ValidationErrors is a list of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) Unwrap() error {
	return errs.ErrValidation
}

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// checkScalars verifies that every name is a scalar field of m
func checkScalars(m *schema.Model, what string, names []string) error {
	for _, name := range names {
		if _, ok := m.Field(name); !ok {
			return invalid(name, "unknown field in %s of %s", what, m.Name)
		}
	}
	return nil
}

// checkData validates a create or update payload: only scalar fields, no
// nested writes
func checkData(m *schema.Model, data Record) error {
	var problems ValidationErrors
	for _, key := range sortedKeys(data) {
		if _, ok := m.Field(key); ok {
			continue
		}
		if _, ok := m.Relation(key); ok {
			problems = append(problems, ValidationError{Field: key, Message: "nested writes are not supported, set the foreign key field instead"})
			continue
		}
		problems = append(problems, ValidationError{Field: key, Message: "unknown field on " + m.Name})
	}
	if len(problems) > 0 {
		return problems
	}
	return nil
}

// checkRequired reports required fields missing from a create payload
func checkRequired(m *schema.Model, data Record) error {
	var problems ValidationErrors
	for _, f := range m.Fields {
		if !f.Required() {
			continue
		}
		if v, ok := data[f.Name]; !ok || v == nil {
			problems = append(problems, ValidationError{Field: f.Name, Message: "is required"})
		}
	}
	if len(problems) > 0 {
		return problems
	}
	return nil
}

// checkLimit validates the Limit of UpdateMany and DeleteMany
func checkLimit(limit *int) error {
	if limit != nil && *limit < 0 {
		return invalid("limit", "must not be negative")
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
