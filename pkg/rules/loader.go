package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/titanous/json5"
)

// ErrNoRules is returned when the rules file holds an empty list. A load
// must never replace a working snapshot with nothing.
var ErrNoRules = errors.New("rules: no rules defined")

// ruleSpec is the on-disk shape of one rule (JSON5).
type ruleSpec struct {
	Name       string   `json:"name"`
	Groups     []string `json:"groups"`
	DenyGroups []string `json:"denyGroups"`
	Senders    []string `json:"senders"`
	Regex      string   `json:"regex"`
	Response   any      `json:"response"`
	Debug      bool     `json:"debug"`
}

// Loader turns a rules file into a Snapshot.
type Loader struct {
	Registry Registry
	Logger   *slog.Logger
}

// Load reads and compiles path into a fresh Snapshot. Any error leaves the
// caller's current snapshot untouched.
func (l *Loader) Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var specs []ruleSpec
	if err := json5.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, ErrNoRules
	}

	rules := make([]*Rule, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		rule, err := l.compile(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, spec.Name, err)
		}
		if _, dup := seen[rule.Name]; dup {
			return nil, fmt.Errorf("rule %d: duplicate name %q", i+1, rule.Name)
		}
		seen[rule.Name] = struct{}{}
		rules = append(rules, rule)
	}

	if rules[0].CatchAll() && len(rules) > 1 && l.Logger != nil {
		l.Logger.Warn("first rule is a catch-all, later rules are unreachable",
			slog.String("rule", rules[0].Name))
	}

	return &Snapshot{Rules: rules}, nil
}

func (l *Loader) compile(spec ruleSpec) (*Rule, error) {
	if spec.Name == "" {
		return nil, errors.New("missing name")
	}

	rule := &Rule{
		Name:       spec.Name,
		Groups:     spec.Groups,
		DenyGroups: spec.DenyGroups,
		Senders:    spec.Senders,
		Debug:      spec.Debug,
	}

	if spec.Regex != "" {
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, fmt.Errorf("regex: %w", err)
		}
		rule.Regex = re
	}

	resp, err := l.compileResponse(spec.Response)
	if err != nil {
		return nil, err
	}
	rule.Response = resp
	return rule, nil
}

// compileResponse maps the file value onto the Response variant:
// string, list of strings, or {fn: "name"}.
func (l *Loader) compileResponse(raw any) (Response, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return Response{}, errors.New("response: empty string")
		}
		return Response{Static: v}, nil

	case []any:
		if len(v) == 0 {
			return Response{}, errors.New("response: empty list")
		}
		choices := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return Response{}, fmt.Errorf("response: list entry %v is not a string", item)
			}
			choices = append(choices, s)
		}
		return Response{Choices: choices}, nil

	case map[string]any:
		name, _ := v["fn"].(string)
		if name == "" {
			return Response{}, errors.New("response: object must name a fn")
		}
		fn, ok := l.Registry[name]
		if !ok {
			return Response{}, fmt.Errorf("response: unknown fn %q", name)
		}
		return Response{Computed: fn, fnName: name}, nil

	case nil:
		return Response{}, errors.New("missing response")

	default:
		return Response{}, fmt.Errorf("response: unsupported type %T", raw)
	}
}
