package transcribe_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelpaiva/loro/pkg/broker"
	"github.com/raphaelpaiva/loro/pkg/broker/brokertest"
	"github.com/raphaelpaiva/loro/pkg/dispatch"
	"github.com/raphaelpaiva/loro/pkg/event"
	"github.com/raphaelpaiva/loro/pkg/transcribe"
	"github.com/raphaelpaiva/loro/pkg/worker"
)

func newDispatcher(t *testing.T) (*dispatch.Dispatcher, *brokertest.FakeBroker) {
	t.Helper()
	fb := brokertest.New()
	client := broker.NewClient(broker.Options{URL: "amqp://test", Dial: fb.Dial})
	require.NoError(t, client.Connect())
	return dispatch.New(client, "send", nil), fb
}

func voiceNote(id, body string) *event.Event {
	return &event.Event{
		ID:               id,
		From:             "alice@c.us",
		Type:             event.TypeVoiceNote,
		Mimetype:         "audio/ogg; codecs=opus",
		FileBase64Buffer: "data:audio/ogg;base64," + base64.StdEncoding.EncodeToString([]byte(body)),
	}
}

func TestHandleTranscribesAndReplies(t *testing.T) {
	var gotAudio []byte
	var gotFields map[string]string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{
			"temperature":     r.FormValue("temperature"),
			"temperature_inc": r.FormValue("temperature_inc"),
			"response_format": r.FormValue("response_format"),
		}
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "v1.ogg", header.Filename)
		gotAudio, err = io.ReadAll(f)
		require.NoError(t, err)

		_ = json.NewEncoder(w).Encode(map[string]string{"text": " bom dia \n tudo bem? \n"})
	}))
	defer backend.Close()

	d, fb := newDispatcher(t)
	tr := transcribe.New(backend.URL, d, nil)

	require.NoError(t, tr.Handle(context.Background(), voiceNote("v1", "OggS-audio-bytes")))

	// The data-URL header is stripped before upload.
	assert.Equal(t, []byte("OggS-audio-bytes"), gotAudio)
	assert.Equal(t, "0.0", gotFields["temperature"])
	assert.Equal(t, "0.2", gotFields["temperature_inc"])
	assert.Equal(t, "json", gotFields["response_format"])

	pubs := fb.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, "send", pubs[0].Key)

	env, err := event.DecodeEnvelope(pubs[0].Msg.Body)
	require.NoError(t, err)
	assert.Equal(t, "alice@c.us", env.To)
	assert.Equal(t, "v1", env.ReplyTo)
	assert.Equal(t, "*Transcrição do Áudio:*\n\"_bom dia_\n_tudo bem?_\"", env.Content)
}

func TestHandleAcksEventsWithoutAudio(t *testing.T) {
	d, fb := newDispatcher(t)
	tr := transcribe.New("http://unused", d, nil)

	ev := &event.Event{ID: "v2", From: "alice@c.us", Type: event.TypeVoiceNote}
	require.NoError(t, tr.Handle(context.Background(), ev))
	assert.Empty(t, fb.Published())
}

func TestHandleRejectsUndecodableAudioAsPoison(t *testing.T) {
	d, _ := newDispatcher(t)
	tr := transcribe.New("http://unused", d, nil)

	ev := &event.Event{ID: "v3", From: "alice@c.us", FileBase64Buffer: "%%%not-base64%%%"}
	err := tr.Handle(context.Background(), ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, worker.ErrPoison)
}

func TestHandleRequeuesOnBackendFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer backend.Close()

	d, fb := newDispatcher(t)
	tr := transcribe.New(backend.URL, d, nil)

	err := tr.Handle(context.Background(), voiceNote("v4", "audio"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, worker.ErrPoison)
	assert.Empty(t, fb.Published())
}

func TestFormatTranscript(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"single line",
			"bom dia",
			"*Transcrição do Áudio:*\n\"_bom dia_\"",
		},
		{
			"blank lines dropped",
			"\n oi \n\n tchau \n",
			"*Transcrição do Áudio:*\n\"_oi_\n_tchau_\"",
		},
		{
			"empty transcript",
			"",
			"*Transcrição do Áudio:*\n\"\"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, transcribe.FormatTranscript(tc.in))
		})
	}
}
