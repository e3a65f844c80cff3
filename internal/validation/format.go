// Package validation holds helpers shared by the enum-like domain types.
package validation

import (
	"fmt"
	"strings"
)

// FormatValidValues joins string-like values for error messages.
func FormatValidValues[T ~string](values []T) string {
	formatted := make([]string, 0, len(values))
	for _, value := range values {
		formatted = append(formatted, string(value))
	}
	return strings.Join(formatted, ", ")
}

// OneOf returns nil when value is listed in valid. Otherwise it wraps base
// with the offending value and the accepted set.
func OneOf[T ~string](base error, value T, valid []T) error {
	for _, candidate := range valid {
		if candidate == value {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (valid: %s)", base, string(value), FormatValidValues(valid))
}
