// Package archive holds the passive consumers: the log worker appends
// every event as a JSON line, the media worker stores decoded media
// payloads on disk. Both tolerate duplicate delivery; writing the same
// event twice is harmless.
package archive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelpaiva/loro/pkg/event"
	"github.com/raphaelpaiva/loro/pkg/worker"
)

// Logger appends raw events to a message log file.
type Logger struct {
	path string
	log  *slog.Logger
}

func NewLogger(dir string, log *slog.Logger) (*Logger, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &Logger{path: filepath.Join(dir, "message.log"), log: log}, nil
}

// Handle appends one event as a compact JSON line.
func (l *Logger) Handle(_ context.Context, body []byte) error {
	var ev event.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: decode event: %v", worker.ErrPoison, err)
	}
	line, err := json.Marshal(&ev)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append message log: %w", err)
	}
	return nil
}

// MediaStore writes media payloads to disk, one file per event id.
type MediaStore struct {
	dir string
	log *slog.Logger
}

func NewMediaStore(dir string, log *slog.Logger) (*MediaStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &MediaStore{dir: dir, log: log}, nil
}

// Handle stores the media buffer of one event. Events without a buffer are
// logged and acknowledged.
func (m *MediaStore) Handle(_ context.Context, ev *event.Event) error {
	if ev.FileBase64Buffer == "" {
		m.log.Warn("rejecting event without media buffer", slog.String("id", ev.ID))
		return nil
	}

	buf, err := base64.StdEncoding.DecodeString(stripDataURL(ev.FileBase64Buffer))
	if err != nil {
		return fmt.Errorf("%w: decode media for %s: %v", worker.ErrPoison, ev.ID, err)
	}

	target := filepath.Join(m.dir, ev.ID+extensionFor(ev.Mimetype))
	if err := os.WriteFile(target, buf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	m.log.Info("media stored", slog.String("id", ev.ID), slog.String("path", target))
	return nil
}

func stripDataURL(b64 string) string {
	const marker = ";base64,"
	if i := strings.Index(b64, marker); i >= 0 {
		return b64[i+len(marker):]
	}
	return b64
}

// extensionFor guesses a file extension from the mimetype, "" when unknown.
func extensionFor(mimetype string) string {
	if mimetype == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(mimetype)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
