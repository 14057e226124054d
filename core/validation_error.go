package core

import (
	"sort"
	"strings"
)

// ValidationError maps field names to their validation failure messages.
// It renders as 422 with per-field details.
type ValidationError map[string][]string

// Error implements the error interface.
func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Add appends a message for a field, allocating the map entry on first use.
func (e ValidationError) Add(field, message string) {
	e[field] = append(e[field], message)
}
