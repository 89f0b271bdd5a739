// Package dispatch publishes reply envelopes to the outbound queue the
// send-side collaborator consumes. Delivery is best effort: a failed
// dispatch is logged and must never block acknowledgment of the event
// that triggered the reply.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelpaiva/loro/pkg/broker"
	"github.com/raphaelpaiva/loro/pkg/event"
)

type Dispatcher struct {
	client *broker.Client
	queue  string
	log    *slog.Logger
}

func New(client *broker.Client, queue string, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{client: client, queue: queue, log: log}
}

// Queue is the outbound queue name.
func (d *Dispatcher) Queue() string { return d.queue }

// Declare makes sure the outbound queue exists. Idempotent.
func (d *Dispatcher) Declare(c *broker.Client) error {
	return c.DeclareQueue(d.queue)
}

// Send publishes env as a persistent message. The single shared channel
// publishes sequentially, so replies to one destination keep their order.
// The broker client already performs the one reconnect-and-retry.
func (d *Dispatcher) Send(ctx context.Context, env *event.Envelope) error {
	body, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := broker.Message{Body: body, CorrelationID: env.ReplyTo}
	if err := d.client.PublishMsg(ctx, "", d.queue, msg); err != nil {
		return fmt.Errorf("dispatch reply to %s: %w", env.To, err)
	}

	d.log.Info("reply dispatched",
		slog.String("to", env.To),
		slog.String("reply_to", env.ReplyTo),
		slog.String("type", env.Type),
	)
	return nil
}
