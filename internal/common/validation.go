package common

import (
	"fmt"
	"strings"
)

// FieldError is one rejected config key.
type FieldError struct {
	Field   string
	Value   any
	Problem string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s=%v %s", e.Field, e.Value, e.Problem)
}

// ValidationRule returns a non-empty problem when value is unacceptable.
type ValidationRule func(value any) string

// Validator accumulates FieldErrors so a config reports every bad key at once.
type Validator struct {
	problems []FieldError
}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) Field(name string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if p := rule(value); p != "" {
			v.problems = append(v.problems, FieldError{Field: name, Value: value, Problem: p})
			break
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.problems) > 0 }

func (v *Validator) Errors() []FieldError { return v.problems }

func (v *Validator) ErrorMessage() string {
	parts := make([]string, len(v.problems))
	for i, p := range v.problems {
		parts[i] = p.Error()
	}
	return strings.Join(parts, "; ")
}

// Err wraps the collected problems in ErrValidation, or returns nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

// Required rejects empty or blank strings.
func Required(value any) string {
	switch s := value.(type) {
	case nil:
		return "is required"
	case string:
		if strings.TrimSpace(s) == "" {
			return "is required"
		}
	}
	return ""
}

func OneOf(allowed ...string) ValidationRule {
	return func(value any) string {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		return "must be one of " + strings.Join(allowed, "|")
	}
}

// IntRange accepts ints in [lo, hi]; used for DPI and JPEG quality.
func IntRange(lo, hi int) ValidationRule {
	return func(value any) string {
		n, ok := value.(int)
		switch {
		case !ok:
			return "must be an integer"
		case n < lo || n > hi:
			return fmt.Sprintf("must be in [%d, %d]", lo, hi)
		}
		return ""
	}
}

// Fractions checks a crop quadruple {x0, y0, x1, y1}: each in (0,1] with x0<x1 and y0<y1.
func Fractions(value any) string {
	k, ok := value.([4]float64)
	if !ok {
		return "must be four fractions"
	}
	for _, f := range k {
		if f <= 0 || f > 1 {
			return "fractions must be in (0,1]"
		}
	}
	if k[0] >= k[2] || k[1] >= k[3] {
		return "lower corner must precede upper corner"
	}
	return ""
}
