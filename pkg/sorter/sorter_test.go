package sorter_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelpaiva/loro/pkg/broker"
	"github.com/raphaelpaiva/loro/pkg/broker/brokertest"
	"github.com/raphaelpaiva/loro/pkg/classify"
	"github.com/raphaelpaiva/loro/pkg/config"
	"github.com/raphaelpaiva/loro/pkg/event"
	"github.com/raphaelpaiva/loro/pkg/sorter"
	"github.com/raphaelpaiva/loro/pkg/worker"
)

func newSorter(fb *brokertest.FakeBroker) (*sorter.Sorter, *broker.Client) {
	client := broker.NewClient(broker.Options{URL: "amqp://test", Dial: fb.Dial})
	s := sorter.New(client, classify.New("loro"), "msgex", config.DefaultBinds(), nil)
	return s, client
}

func TestBindDeclaresFullTopology(t *testing.T) {
	fb := brokertest.New()
	s, client := newSorter(fb)

	require.NoError(t, s.Bind(client))

	assert.Equal(t, "topic", fb.Exchanges["msgex"])
	for _, b := range config.DefaultBinds() {
		assert.True(t, fb.Queues[b.Queue], "queue %s declared", b.Queue)
	}
	assert.Contains(t, fb.Binds, brokertest.Bind{Queue: "prompt", Pattern: "msg.prompt.#", Exchange: "msgex"})
	assert.Contains(t, fb.Binds, brokertest.Bind{Queue: "transcribe", Pattern: "msg.#.transcribe", Exchange: "msgex"})
	assert.Contains(t, fb.Binds, brokertest.Bind{Queue: "log", Pattern: "msg.#", Exchange: "msgex"})
}

func TestRoutePublishesUnderComputedLabel(t *testing.T) {
	fb := brokertest.New()
	s, _ := newSorter(fb)

	ev := &event.Event{ID: "m1", From: "x@c.us", Type: event.TypeChat, Body: "Oi Loro, bom dia"}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, s.Route(context.Background(), body))

	pubs := fb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "msgex", pubs[0].Exchange)
	assert.Equal(t, "msg.prompt", pubs[0].Key)
	assert.Equal(t, "m1", pubs[0].Msg.MessageId)
}

// A routed event must arrive byte-identical at the bound queue.
func TestRouteRoundTripIsLossless(t *testing.T) {
	fb := brokertest.New()
	s, _ := newSorter(fb)

	ev := &event.Event{
		ID:        "v1",
		From:      "y@c.us",
		Sender:    event.Contact{ID: "y@c.us", FormattedName: "José"},
		Type:      event.TypeVoiceNote,
		Mimetype:  "audio/ogg; codecs=opus",
		MediaData: event.MediaData{Type: "ptt"},
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, s.Route(context.Background(), body))

	pubs := fb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, body, pubs[0].Msg.Body, "serialize → publish → consume must be lossless")

	decoded, err := event.Decode(pubs[0].Msg.Body)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)
}

// Voice notes go to the transcription pattern, not the prompt pattern.
func TestRouteVoiceNoteLabel(t *testing.T) {
	fb := brokertest.New()
	s, _ := newSorter(fb)

	ev := &event.Event{ID: "v2", Type: event.TypeVoiceNote, MediaData: event.MediaData{Type: "ptt"}}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, s.Route(context.Background(), body))

	pubs := fb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "msg.media.transcribe", pubs[0].Key)

	matchesPrompt := topicMatches("msg.prompt.#", pubs[0].Key)
	matchesTranscribe := topicMatches("msg.#.transcribe", pubs[0].Key)
	assert.False(t, matchesPrompt)
	assert.True(t, matchesTranscribe)
}

func TestRouteMalformedPayloadIsPoison(t *testing.T) {
	fb := brokertest.New()
	s, _ := newSorter(fb)

	err := s.Route(context.Background(), []byte("not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, worker.ErrPoison)
	assert.Empty(t, fb.Published())
}

func TestRoutePropagatesPublishFailure(t *testing.T) {
	fb := brokertest.New()
	fb.FailPublishes = 2 // exhaust the one retry too
	s, _ := newSorter(fb)

	body, err := json.Marshal(&event.Event{ID: "m2", Type: event.TypeChat})
	require.NoError(t, err)

	err = s.Route(context.Background(), body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, worker.ErrPoison, "routing failures must requeue, not drop")
}

// topicMatches implements AMQP topic wildcard semantics for assertions:
// * matches exactly one token, # matches zero or more.
func topicMatches(pattern, key string) bool {
	return matchTokens(split(pattern), split(key))
}

func split(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

func matchTokens(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchTokens(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchTokens(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchTokens(pattern[1:], key[1:])
	}
}
