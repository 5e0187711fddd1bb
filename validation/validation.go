package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error carries field-level violations. A document that fails validation is
// rejected before a number is ever allocated.
type Error struct {
	Violations Violations
}

func (e *Error) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Violations))
	for f := range e.Violations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Violations[f]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// NewError wraps non-empty violations; returns nil when there is nothing to
// report so callers can `return validation.NewError(v)` directly.
func NewError(v Violations) error {
	if v.Empty() {
		return nil
	}
	return &Error{Violations: v}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func Email(field, value string, v Violations) {
	if !emailPattern.MatchString(strings.TrimSpace(value)) {
		v[field] = "invalid_email"
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v[field] = "must_not_be_negative"
	}
}

func NonNegativeAmount(field string, minor int64, v Violations) {
	if minor < 0 {
		v[field] = "must_not_be_negative"
	}
}
