// Package worker is the consumer shell every pipeline process shares:
// connect, declare the input queue, optionally declare extra topology,
// then hand deliveries to a handler one at a time with strict ack/nack
// discipline and a graceful drain on shutdown.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelpaiva/loro/pkg/broker"
)

// ErrPoison marks a delivery that can never be processed (e.g. it does not
// decode). Poison messages are nacked without requeue; any other handler
// error nacks with requeue so the broker redelivers or dead-letters it.
var ErrPoison = errors.New("worker: poison message")

// Handler processes one delivery payload. Returning nil acks the message.
type Handler func(ctx context.Context, body []byte) error

// JSONHandler wraps a typed handler and turns a decode failure into
// ErrPoison.
func JSONHandler[T any](h func(context.Context, *T) error) Handler {
	return func(ctx context.Context, body []byte) error {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("%w: decode (%d bytes): %v", ErrPoison, len(body), err)
		}
		return h(ctx, &v)
	}
}

// Spec defines one consumer.
type Spec struct {
	Name     string
	Queue    string
	Prefetch int // 0 => 1, sequential delivery

	// Setup declares any topology beyond the input queue (exchanges,
	// bindings, output queues). Runs after every (re)connect.
	Setup func(c *broker.Client) error

	Handle Handler
}

// Worker runs one consumer loop over a broker client it exclusively owns.
type Worker struct {
	client *broker.Client
	spec   Spec
	log    *slog.Logger

	reconnectDelay time.Duration
}

func New(client *broker.Client, spec Spec, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		client:         client,
		spec:           spec,
		log:            log.With(slog.String("worker", spec.Name)),
		reconnectDelay: 2 * time.Second,
	}
}

// Run consumes until ctx is cancelled. Connection loss triggers reconnect
// and resume; pending unacked deliveries are redelivered by the broker.
func (w *Worker) Run(ctx context.Context) error {
	for {
		err := w.consume(ctx)
		if ctx.Err() != nil {
			w.log.Info("worker stopped")
			return nil
		}
		if err != nil {
			w.log.Error("consumer loop ended, reconnecting",
				slog.Duration("retry_in", w.reconnectDelay),
				slog.Any("error", err),
			)
		}
		w.client.Close()

		timer := time.NewTimer(w.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("worker stopped")
			return nil
		case <-timer.C:
		}
	}
}

// consume runs one connected session: declare, register, dispatch.
func (w *Worker) consume(ctx context.Context) error {
	if err := w.client.ConnectWithRetry(ctx, 10, time.Second); err != nil {
		return err
	}
	if err := w.client.DeclareQueue(w.spec.Queue); err != nil {
		return fmt.Errorf("declare queue %s: %w", w.spec.Queue, err)
	}
	if w.spec.Setup != nil {
		if err := w.spec.Setup(w.client); err != nil {
			return fmt.Errorf("setup topology: %w", err)
		}
	}

	ch, err := w.client.Channel()
	if err != nil {
		return err
	}
	prefetch := w.spec.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	msgs, err := ch.Consume(w.spec.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", w.spec.Queue, err)
	}
	closed, err := w.client.NotifyClose()
	if err != nil {
		return err
	}

	w.log.Info("consumer registered", slog.String("queue", w.spec.Queue))

	for {
		select {
		case <-ctx.Done():
			// Drain: the in-flight delivery (if any) already finished
			// because dispatch below is synchronous.
			return nil

		case amqpErr, ok := <-closed:
			if !ok {
				return errors.New("connection closed")
			}
			return fmt.Errorf("connection closed: %v", amqpErr)

		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}

			err := w.spec.Handle(ctx, d.Body)
			switch {
			case errors.Is(err, ErrPoison):
				w.log.Warn("poison message",
					slog.String("message_id", d.MessageId),
					slog.Int("bytes", len(d.Body)),
					slog.Any("error", err),
				)
				_ = d.Nack(false, false)

			case err != nil:
				w.log.Error("handler failed",
					slog.String("message_id", d.MessageId),
					slog.Any("error", err),
				)
				_ = d.Nack(false, true)

			default:
				_ = d.Ack(false)
			}
		}
	}
}
