// Package sorter is the topic router: it consumes raw events from the
// pre-process queue, classifies them, and republishes each one to the
// topic exchange under its computed label. The bind table fans labeled
// events out to every interested queue.
package sorter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelpaiva/loro/pkg/broker"
	"github.com/raphaelpaiva/loro/pkg/classify"
	"github.com/raphaelpaiva/loro/pkg/config"
	"github.com/raphaelpaiva/loro/pkg/event"
	"github.com/raphaelpaiva/loro/pkg/worker"
)

type Sorter struct {
	classifier *classify.Classifier
	exchange   string
	binds      []config.Bind
	log        *slog.Logger

	publish func(ctx context.Context, exchange, key string, msg broker.Message) error
}

func New(client *broker.Client, classifier *classify.Classifier, exchange string, binds []config.Bind, log *slog.Logger) *Sorter {
	if log == nil {
		log = slog.Default()
	}
	return &Sorter{
		classifier: classifier,
		exchange:   exchange,
		binds:      binds,
		log:        log,
		publish:    client.PublishMsg,
	}
}

// Bind declares the topic exchange and the full {queue, pattern} table.
// Idempotent; runs again after every reconnect.
func (s *Sorter) Bind(c *broker.Client) error {
	if err := c.DeclareExchange(s.exchange); err != nil {
		return fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}
	for _, b := range s.binds {
		if err := c.DeclareQueue(b.Queue); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.Queue, err)
		}
		if err := c.BindQueue(b.Queue, b.Pattern, s.exchange); err != nil {
			return fmt.Errorf("bind %s to %s: %w", b.Queue, b.Pattern, err)
		}
	}
	return nil
}

// Route classifies one raw event and republishes the original bytes under
// the computed label. Publish failures propagate so the shell nacks.
func (s *Sorter) Route(ctx context.Context, body []byte) error {
	ev, err := event.Decode(body)
	if err != nil {
		return fmt.Errorf("%w: decode event (%d bytes): %v", worker.ErrPoison, len(body), err)
	}

	c := s.classifier.Classify(ev)
	label := c.Label()
	s.log.Info("routing event",
		slog.String("id", ev.ID),
		slog.String("type", ev.Type),
		slog.String("label", label),
	)

	if err := s.publish(ctx, s.exchange, label, broker.Message{Body: body, MessageID: ev.ID}); err != nil {
		return fmt.Errorf("route %s: %w", ev.ID, err)
	}
	return nil
}
