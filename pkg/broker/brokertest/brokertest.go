// Package brokertest provides an in-memory fake of the broker interfaces
// for pipeline tests: it records declarations and publishes, can be told
// to drop publish attempts or refuse them at confirmation time, and feeds
// deliveries to consumer loops.
package brokertest

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/raphaelpaiva/loro/pkg/broker"
)

// Publish records one successful publish.
type Publish struct {
	Exchange string
	Key      string
	Msg      amqp.Publishing
}

// Bind records one queue binding.
type Bind struct {
	Queue    string
	Pattern  string
	Exchange string
}

// FakeBroker is shared state behind every connection it dials.
type FakeBroker struct {
	mu sync.Mutex

	// DialErr makes every dial fail.
	DialErr error
	// FailPublishes drops this many publish attempts before succeeding.
	FailPublishes int
	// NackConfirms refuses this many publishes at confirmation time: the
	// write itself succeeds but the broker answers with a nack and the
	// message is not recorded.
	NackConfirms int

	Dials        int
	Attempts     int
	ConfirmCalls int
	Publishes    []Publish
	Exchanges    map[string]string
	Queues       map[string]bool
	Binds        []Bind

	// Deliveries feeds Consume.
	Deliveries chan amqp.Delivery
}

func New() *FakeBroker {
	return &FakeBroker{
		Exchanges:  make(map[string]string),
		Queues:     make(map[string]bool),
		Deliveries: make(chan amqp.Delivery, 16),
	}
}

// Dial is a broker.DialFunc.
func (b *FakeBroker) Dial(string) (broker.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Dials++
	if b.DialErr != nil {
		return nil, b.DialErr
	}
	return &conn{b: b}, nil
}

// SetDialErr changes the dial failure mode, safe against concurrent dials.
func (b *FakeBroker) SetDialErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.DialErr = err
}

// DialCount returns how many dials happened so far.
func (b *FakeBroker) DialCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Dials
}

// Published returns a snapshot of recorded publishes.
func (b *FakeBroker) Published() []Publish {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Publish(nil), b.Publishes...)
}

type conn struct {
	b      *FakeBroker
	mu     sync.Mutex
	closed bool
	notify []chan *amqp.Error
}

func (c *conn) Channel() (broker.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("brokertest: connection closed")
	}
	return &channel{b: c.b, conn: c}, nil
}

func (c *conn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = append(c.notify, receiver)
	return receiver
}

func (c *conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, n := range c.notify {
		close(n)
	}
	return nil
}

type channel struct {
	b        *FakeBroker
	conn     *conn
	mu       sync.Mutex
	closed   bool
	tag      uint64
	confirms chan amqp.Confirmation
}

func (ch *channel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()
	ch.b.Exchanges[name] = kind
	return nil
}

func (ch *channel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()
	ch.b.Queues[name] = true
	return amqp.Queue{Name: name}, nil
}

func (ch *channel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()
	ch.b.Binds = append(ch.b.Binds, Bind{Queue: name, Pattern: key, Exchange: exchange})
	return nil
}

func (ch *channel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()
	ch.b.Attempts++
	if ch.b.FailPublishes > 0 {
		ch.b.FailPublishes--
		return errors.New("brokertest: publish dropped")
	}

	ch.tag++
	if ch.b.NackConfirms > 0 {
		ch.b.NackConfirms--
		ch.confirm(amqp.Confirmation{DeliveryTag: ch.tag, Ack: false})
		return nil
	}
	ch.b.Publishes = append(ch.b.Publishes, Publish{Exchange: exchange, Key: key, Msg: msg})
	ch.confirm(amqp.Confirmation{DeliveryTag: ch.tag, Ack: true})
	return nil
}

func (ch *channel) confirm(c amqp.Confirmation) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.confirms != nil && !ch.closed {
		ch.confirms <- c
	}
}

func (ch *channel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return ch.b.Deliveries, nil
}

func (ch *channel) Qos(int, int, bool) error { return nil }

func (ch *channel) Confirm(bool) error {
	ch.b.mu.Lock()
	defer ch.b.mu.Unlock()
	ch.b.ConfirmCalls++
	return nil
}

func (ch *channel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.confirms = confirm
	return confirm
}

func (ch *channel) IsClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

func (ch *channel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil
	}
	ch.closed = true
	if ch.confirms != nil {
		close(ch.confirms)
	}
	return nil
}

// Acker implements amqp.Acknowledger and records outcomes by delivery tag.
type Acker struct {
	mu       sync.Mutex
	Acked    []uint64
	Nacked   []uint64
	Requeued map[uint64]bool
}

func NewAcker() *Acker {
	return &Acker{Requeued: make(map[uint64]bool)}
}

func (a *Acker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Acked = append(a.Acked, tag)
	return nil
}

func (a *Acker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Nacked = append(a.Nacked, tag)
	a.Requeued[tag] = requeue
	return nil
}

func (a *Acker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

// Outcome returns (acked, nacked, requeued) counts so far.
func (a *Acker) Outcome() (int, int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	requeued := 0
	for _, r := range a.Requeued {
		if r {
			requeued++
		}
	}
	return len(a.Acked), len(a.Nacked), requeued
}
