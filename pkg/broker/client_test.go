package broker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelpaiva/loro/pkg/broker"
	"github.com/raphaelpaiva/loro/pkg/broker/brokertest"
)

func newClient(fb *brokertest.FakeBroker) *broker.Client {
	return broker.NewClient(broker.Options{URL: "amqp://test", Dial: fb.Dial})
}

func TestConnectIsIdempotent(t *testing.T) {
	fb := brokertest.New()
	c := newClient(fb)

	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect())

	assert.Equal(t, 1, fb.Dials)
}

func TestConnectWithRetryBacksOffUntilSuccess(t *testing.T) {
	fb := brokertest.New()
	fb.SetDialErr(errors.New("broker down"))
	c := newClient(fb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		fb.SetDialErr(nil)
	}()

	require.NoError(t, c.ConnectWithRetry(ctx, 10, 20*time.Millisecond))
	assert.GreaterOrEqual(t, fb.DialCount(), 2)
}

func TestDeclareExchangeIsTopicAndDurable(t *testing.T) {
	fb := brokertest.New()
	c := newClient(fb)

	require.NoError(t, c.DeclareExchange("msgex"))
	assert.Equal(t, "topic", fb.Exchanges["msgex"])
}

func TestDeclareQueue(t *testing.T) {
	fb := brokertest.New()
	c := newClient(fb)

	require.NoError(t, c.DeclareQueue("pre_process"))
	require.NoError(t, c.DeclareQueue("pre_process"))
	assert.True(t, fb.Queues["pre_process"])
}

func TestPublishIsPersistent(t *testing.T) {
	fb := brokertest.New()
	c := newClient(fb)

	require.NoError(t, c.Publish(context.Background(), "msgex", "msg.prompt", []byte(`{"id":"m1"}`)))

	pubs := fb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "msgex", pubs[0].Exchange)
	assert.Equal(t, "msg.prompt", pubs[0].Key)
	assert.Equal(t, uint8(amqp.Persistent), pubs[0].Msg.DeliveryMode)
	assert.NotEmpty(t, pubs[0].Msg.MessageId)
}

func TestPublishMsgKeepsCallerIDs(t *testing.T) {
	fb := brokertest.New()
	c := newClient(fb)

	msg := broker.Message{Body: []byte("x"), MessageID: "m1", CorrelationID: "c1"}
	require.NoError(t, c.PublishMsg(context.Background(), "", "send", msg))

	pubs := fb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "m1", pubs[0].Msg.MessageId)
	assert.Equal(t, "c1", pubs[0].Msg.CorrelationId)
}

// A dropped publish followed by a successful reconnect delivers the pending
// message exactly once.
func TestPublishReconnectsAndRetriesOnce(t *testing.T) {
	fb := brokertest.New()
	fb.FailPublishes = 1
	c := newClient(fb)

	require.NoError(t, c.Publish(context.Background(), "msgex", "msg", []byte("payload")))

	assert.Equal(t, 2, fb.Attempts, "one failed attempt plus one retry")
	assert.Equal(t, 2, fb.Dials, "retry happens on a fresh connection")

	pubs := fb.Published()
	require.Len(t, pubs, 1, "no duplicate, no loss")
	assert.Equal(t, []byte("payload"), pubs[0].Msg.Body)
}

func TestPublishSurfacesErrorAfterFailedRetry(t *testing.T) {
	fb := brokertest.New()
	fb.FailPublishes = 2
	c := newClient(fb)

	err := c.Publish(context.Background(), "msgex", "msg", []byte("payload"))
	require.Error(t, err)

	var pubErr *broker.PublishError
	assert.ErrorAs(t, err, &pubErr)
	assert.Equal(t, 2, fb.Attempts, "exactly one retry, not more")
	assert.Empty(t, fb.Published())
}

func TestConnectEnablesConfirmMode(t *testing.T) {
	fb := brokertest.New()
	c := newClient(fb)

	require.NoError(t, c.Connect())
	assert.Equal(t, 1, fb.ConfirmCalls)
}

// A publish the broker refuses at confirmation time is no publish at all:
// the client reconnects and retries it like any other failed attempt.
func TestPublishRetriesWhenConfirmationIsRefused(t *testing.T) {
	fb := brokertest.New()
	fb.NackConfirms = 1
	c := newClient(fb)

	require.NoError(t, c.Publish(context.Background(), "msgex", "msg", []byte("payload")))

	assert.Equal(t, 2, fb.Attempts, "one refused attempt plus one retry")
	assert.Equal(t, 2, fb.Dials, "retry happens on a fresh connection")

	pubs := fb.Published()
	require.Len(t, pubs, 1, "no duplicate, no loss")
	assert.Equal(t, []byte("payload"), pubs[0].Msg.Body)
}

func TestPublishSurfacesErrorWhenBothConfirmationsRefused(t *testing.T) {
	fb := brokertest.New()
	fb.NackConfirms = 2
	c := newClient(fb)

	err := c.Publish(context.Background(), "msgex", "msg", []byte("payload"))
	require.Error(t, err)

	var pubErr *broker.PublishError
	assert.ErrorAs(t, err, &pubErr)
	assert.Empty(t, fb.Published())
}

func TestCloseSafeWhenNeverConnected(t *testing.T) {
	c := newClient(brokertest.New())
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
