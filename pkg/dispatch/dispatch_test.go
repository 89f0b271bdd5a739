package dispatch_test

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelpaiva/loro/pkg/broker"
	"github.com/raphaelpaiva/loro/pkg/broker/brokertest"
	"github.com/raphaelpaiva/loro/pkg/dispatch"
	"github.com/raphaelpaiva/loro/pkg/event"
)

func TestSendPublishesPersistentEnvelope(t *testing.T) {
	fb := brokertest.New()
	client := broker.NewClient(broker.Options{URL: "amqp://test", Dial: fb.Dial})
	d := dispatch.New(client, "send", nil)

	env := &event.Envelope{
		To:      "5511999@c.us",
		Content: "Bom dia!",
		ReplyTo: "m1",
		Type:    event.ReplyChat,
	}
	require.NoError(t, d.Send(context.Background(), env))

	pubs := fb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "", pubs[0].Exchange, "direct to queue, no exchange")
	assert.Equal(t, "send", pubs[0].Key)
	assert.Equal(t, uint8(amqp.Persistent), pubs[0].Msg.DeliveryMode)
	assert.Equal(t, "m1", pubs[0].Msg.CorrelationId)

	decoded, err := event.DecodeEnvelope(pubs[0].Msg.Body)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
}

func TestSendPreservesOrderPerDestination(t *testing.T) {
	fb := brokertest.New()
	client := broker.NewClient(broker.Options{URL: "amqp://test", Dial: fb.Dial})
	d := dispatch.New(client, "send", nil)

	for _, content := range []string{"um", "dois", "tres"} {
		env := &event.Envelope{To: "x@c.us", Content: content}
		require.NoError(t, d.Send(context.Background(), env))
	}

	pubs := fb.Published()
	require.Len(t, pubs, 3)
	for i, want := range []string{"um", "dois", "tres"} {
		decoded, err := event.DecodeEnvelope(pubs[i].Msg.Body)
		require.NoError(t, err)
		assert.Equal(t, want, decoded.Content)
	}
}

func TestSendRecoversFromOneDrop(t *testing.T) {
	fb := brokertest.New()
	fb.FailPublishes = 1
	client := broker.NewClient(broker.Options{URL: "amqp://test", Dial: fb.Dial})
	d := dispatch.New(client, "send", nil)

	env := &event.Envelope{To: "x@c.us", Content: "oi"}
	require.NoError(t, d.Send(context.Background(), env))
	assert.Len(t, fb.Published(), 1)
}

func TestSendSurfacesErrorAfterRetry(t *testing.T) {
	fb := brokertest.New()
	fb.FailPublishes = 2
	client := broker.NewClient(broker.Options{URL: "amqp://test", Dial: fb.Dial})
	d := dispatch.New(client, "send", nil)

	err := d.Send(context.Background(), &event.Envelope{To: "x@c.us", Content: "oi"})
	require.Error(t, err)

	var pubErr *broker.PublishError
	assert.ErrorAs(t, err, &pubErr)
}
