package rules

import (
	"context"
	"log/slog"

	"github.com/raphaelpaiva/loro/pkg/dispatch"
	"github.com/raphaelpaiva/loro/pkg/event"
)

// Processor glues the engine to the dispatcher for the consumer shell.
type Processor struct {
	engine     *Engine
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
}

func NewProcessor(engine *Engine, dispatcher *dispatch.Dispatcher, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{engine: engine, dispatcher: dispatcher, log: log}
}

// Handle evaluates one event and dispatches the reply, if any. Dispatch is
// best effort: a failed reply publish is logged but the event is still
// acknowledged, so a broken send path never wedges the input queue.
func (p *Processor) Handle(ctx context.Context, ev *event.Event) error {
	env := p.engine.Evaluate(ctx, ev)
	if env == nil {
		return nil
	}
	if err := p.dispatcher.Send(ctx, env); err != nil {
		p.log.Error("reply dispatch failed",
			slog.String("id", ev.ID),
			slog.Any("error", err),
		)
	}
	return nil
}
