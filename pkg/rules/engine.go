package rules

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/raphaelpaiva/loro/pkg/event"
)

// ImagePrefix marks a resolved response as an image reply. The remainder
// of the text after the prefix is the image payload reference.
const ImagePrefix = "img:"

// Snapshot is one immutable, fully-loaded rule list. Matching passes read
// a snapshot without locking; reloads swap in a new one.
type Snapshot struct {
	Rules []*Rule
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// ValidGroups gates which group chats receive replies directly.
	ValidGroups []string
	// DisabledChats are skipped without evaluating any rule.
	DisabledChats []string
	Logger        *slog.Logger
}

// Engine evaluates events against the active rule snapshot, first match
// wins. Safe for concurrent evaluation; each pass uses the snapshot active
// when it began.
type Engine struct {
	snap        atomic.Pointer[Snapshot]
	validGroups []string
	disabled    map[string]struct{}
	log         *slog.Logger
}

func NewEngine(initial *Snapshot, opts EngineOptions) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	disabled := make(map[string]struct{}, len(opts.DisabledChats))
	for _, chat := range opts.DisabledChats {
		disabled[chat] = struct{}{}
	}
	e := &Engine{
		validGroups: opts.ValidGroups,
		disabled:    disabled,
		log:         log,
	}
	e.snap.Store(initial)
	return e
}

// Swap atomically replaces the active snapshot.
func (e *Engine) Swap(s *Snapshot) {
	e.snap.Store(s)
	e.log.Info("rules loaded", slog.Int("count", len(s.Rules)))
	for _, r := range s.Rules {
		e.log.Debug("rule active", slog.String("rule", r.Name))
	}
}

// Snapshot returns the currently active rule list.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Evaluate runs one matching pass over ev. It returns the reply envelope
// of the first matching rule, or nil when no rule matched. A resolution
// failure or empty resolution demotes the rule to a non-match and the pass
// continues; Evaluate itself only fails on malformed input upstream.
func (e *Engine) Evaluate(ctx context.Context, ev *event.Event) *event.Envelope {
	if _, off := e.disabled[ev.ChatID()]; off {
		e.log.Debug("chat disabled", slog.String("chat", ev.ChatID()), slog.String("id", ev.ID))
		return nil
	}

	snap := e.snap.Load()
	for _, rule := range snap.Rules {
		matched, match := rule.Match(ev)
		if !matched {
			if rule.Debug {
				e.log.Debug("rule rejected event",
					slog.String("rule", rule.Name),
					slog.String("id", ev.ID),
				)
			}
			continue
		}

		text, err := rule.Response.Resolve(ctx, match, ev)
		if err != nil {
			e.log.Error("response resolution failed",
				slog.String("rule", rule.Name),
				slog.String("id", ev.ID),
				slog.Any("error", err),
			)
			continue
		}
		if text == "" {
			continue
		}

		e.log.Info("rule matched",
			slog.String("rule", rule.Name),
			slog.String("id", ev.ID),
		)
		return e.envelope(ev, text)
	}

	e.log.Info("no rule matched, discarding", slog.String("id", ev.ID))
	return nil
}

func (e *Engine) envelope(ev *event.Event, text string) *event.Envelope {
	env := &event.Envelope{
		To:      ev.ResolveDestination(e.validGroups),
		Content: text,
		ReplyTo: ev.ID,
		Type:    event.ReplyChat,
	}
	if rest, ok := strings.CutPrefix(text, ImagePrefix); ok {
		env.Content = rest
		env.Type = event.ReplyImage
	}
	return env
}
