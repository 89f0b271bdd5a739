package rules

import (
	"context"

	"github.com/raphaelpaiva/loro/pkg/event"
)

// Registry maps computed-response names from the rules file to functions.
type Registry map[string]ComputedFunc

// Echo is a builtin computed response returning the first capture group of
// the matching regex, or the whole match when the pattern has no groups.
func Echo(_ context.Context, match []string, _ *event.Event) (string, error) {
	if len(match) > 1 {
		return match[1], nil
	}
	if len(match) > 0 {
		return match[0], nil
	}
	return "", nil
}
