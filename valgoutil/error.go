package valgoutil

import (
	"slices"
	"strings"

	"github.com/cohesivestack/valgo"
)

// GetDetails flattens a validation error into one "field: message" line per
// invalid field, ordered by field name. Multiple messages for the same field
// are joined with "; ".
func GetDetails(err *valgo.Error) []string {
	if err == nil || len(err.Errors()) == 0 {
		return []string{}
	}

	fields := err.Errors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	details := make([]string, 0, len(names))
	for _, name := range names {
		msgs := slices.Clone(fields[name].Messages())
		slices.Sort(msgs)
		details = append(details, name+": "+strings.Join(msgs, "; "))
	}
	return details
}
