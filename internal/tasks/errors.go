package tasks

import "strings"

// ValidationError reports payload rule violations, one entry per failed rule.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Details, ", ")
}
