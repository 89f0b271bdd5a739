// Package transcribe is the voice-note worker: it consumes events routed
// to the transcription queue, sends the audio payload to the speech-to-text
// backend, and dispatches the formatted transcript as a reply.
package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/raphaelpaiva/loro/pkg/dispatch"
	"github.com/raphaelpaiva/loro/pkg/event"
	"github.com/raphaelpaiva/loro/pkg/worker"
)

// Transcriber calls the whisper-style inference endpoint.
type Transcriber struct {
	backendURL string
	dispatcher *dispatch.Dispatcher
	httpClient *http.Client
	log        *slog.Logger
}

func New(backendURL string, dispatcher *dispatch.Dispatcher, log *slog.Logger) *Transcriber {
	if log == nil {
		log = slog.Default()
	}
	return &Transcriber{
		backendURL: backendURL,
		dispatcher: dispatcher,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		log:        log,
	}
}

// Handle processes one voice-note event. Events without an audio buffer
// are acknowledged and dropped; backend failures requeue the delivery.
func (t *Transcriber) Handle(ctx context.Context, ev *event.Event) error {
	if ev.FileBase64Buffer == "" {
		t.log.Warn("rejecting event without audio buffer", slog.String("id", ev.ID))
		return nil
	}

	audio, err := decodeBuffer(ev.FileBase64Buffer)
	if err != nil {
		return fmt.Errorf("%w: decode audio for %s: %v", worker.ErrPoison, ev.ID, err)
	}

	t.log.Info("transcribing", slog.String("id", ev.ID), slog.Int("bytes", len(audio)))
	text, err := t.transcribe(ctx, ev.ID, audio)
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", ev.ID, err)
	}

	env := &event.Envelope{
		To:      ev.ResolveDestination(nil),
		Content: FormatTranscript(text),
		ReplyTo: ev.ID,
		Type:    event.ReplyChat,
	}
	if err := t.dispatcher.Send(ctx, env); err != nil {
		// Best-effort reply; the event is still acknowledged.
		t.log.Error("transcript dispatch failed", slog.String("id", ev.ID), slog.Any("error", err))
	}
	return nil
}

// transcribe posts the audio as a multipart upload and reads the JSON
// {"text": ...} answer.
func (t *Transcriber) transcribe(ctx context.Context, id string, audio []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", id+".ogg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	_ = form.WriteField("temperature", "0.0")
	_ = form.WriteField("temperature_inc", "0.2")
	_ = form.WriteField("response_format", "json")
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.backendURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("backend returned %s: %s", resp.Status, body)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode backend response: %w", err)
	}
	return out.Text, nil
}

// decodeBuffer strips an optional data-URL header before base64 decoding.
func decodeBuffer(b64 string) ([]byte, error) {
	const marker = ";base64,"
	if i := strings.Index(b64, marker); i >= 0 {
		b64 = b64[i+len(marker):]
	}
	return base64.StdEncoding.DecodeString(b64)
}

// FormatTranscript renders the transcript the way replies are framed:
// a header line plus each non-empty line italicized.
func FormatTranscript(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, "_"+line+"_")
		}
	}
	return "*Transcrição do Áudio:*\n\"" + strings.Join(lines, "\n") + "\""
}
