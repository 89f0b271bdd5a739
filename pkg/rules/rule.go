// Package rules implements the ordered, hot-reloadable rule engine: an
// immutable snapshot of compiled rules evaluated first-match against each
// event, producing an optional reply envelope.
package rules

import (
	"context"
	"errors"
	"math/rand"
	"regexp"

	"github.com/raphaelpaiva/loro/pkg/event"
)

// ErrEmptyResponse marks a resolution that produced no text; the engine
// treats the rule as a non-match and moves on.
var ErrEmptyResponse = errors.New("rules: empty response")

// ComputedFunc produces a response from the regex submatches (index 0 is
// the full match) and the triggering event. It may perform I/O.
type ComputedFunc func(ctx context.Context, match []string, ev *event.Event) (string, error)

// Response is a tagged variant: exactly one of Static, Choices, or
// Computed is set.
type Response struct {
	Static   string
	Choices  []string
	Computed ComputedFunc

	// fn name from the rules file, kept for logging.
	fnName string
}

// Resolve produces the response text. Choices pick uniformly at random.
func (r Response) Resolve(ctx context.Context, match []string, ev *event.Event) (string, error) {
	switch {
	case r.Computed != nil:
		return r.Computed(ctx, match, ev)
	case len(r.Choices) > 0:
		return r.Choices[rand.Intn(len(r.Choices))], nil
	default:
		return r.Static, nil
	}
}

// Rule is one ordered entry of the rule list. Immutable once compiled.
type Rule struct {
	Name       string
	Groups     []string
	DenyGroups []string
	Senders    []string
	Regex      *regexp.Regexp
	Response   Response
	Debug      bool
}

// Match reports whether ev satisfies the rule's predicates and returns the
// regex submatches when a regex is declared. A rule without a regex matches
// any event that passes the group/sender gate.
func (r *Rule) Match(ev *event.Event) (bool, []string) {
	if !r.allowed(ev) {
		return false, nil
	}

	if r.Regex == nil {
		return true, nil
	}
	if ev.Body == "" {
		return false, nil
	}
	match := r.Regex.FindStringSubmatch(Normalize(ev.Body))
	return match != nil, match
}

// allowed evaluates the group/sender gate. A deny list always wins. With
// both allow lists declared, either may admit the event; with one, only it
// decides; with none, everything passes.
func (r *Rule) allowed(ev *event.Event) bool {
	if len(r.DenyGroups) > 0 && ev.IsGroupMsg && contains(r.DenyGroups, ev.GroupInfo.ID) {
		return false
	}

	groupOK := ev.IsGroupMsg && contains(r.Groups, ev.GroupInfo.ID)
	senderOK := contains(r.Senders, ev.Sender.ID)

	switch {
	case len(r.Groups) > 0 && len(r.Senders) > 0:
		return groupOK || senderOK
	case len(r.Groups) > 0:
		return groupOK
	case len(r.Senders) > 0:
		return senderOK
	default:
		return true
	}
}

// CatchAll reports whether the rule matches every event: no regex and no
// allow lists. Deliberate catch-alls are legitimate as the final rule but
// hazardous anywhere above it.
func (r *Rule) CatchAll() bool {
	return r.Regex == nil && len(r.Groups) == 0 && len(r.Senders) == 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
