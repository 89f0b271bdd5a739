// Package classify labels inbound events for topic routing. Classification
// is a pure function of the event: identical flags always produce
// byte-identical labels, which the bind patterns in the sorter rely on.
package classify

import (
	"regexp"
	"strings"

	"github.com/raphaelpaiva/loro/pkg/event"
)

// LabelRoot is the first token of every routing label.
const LabelRoot = "msg"

// Label qualifiers, appended in this order and no other.
const (
	QualifierPrompt     = "prompt"
	QualifierMedia      = "media"
	QualifierTranscribe = "transcribe"
)

// Classification holds the independent flags computed from one event.
type Classification struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	IsPrompt     bool   `json:"isPrompt"`
	IsMedia      bool   `json:"isMedia"`
	NeedsAudioTx bool   `json:"needsTranscription"`
}

// Label assembles the routing key: the root plus one token per set flag.
func (c Classification) Label() string {
	var b strings.Builder
	b.WriteString(LabelRoot)
	if c.IsPrompt {
		b.WriteString("." + QualifierPrompt)
	}
	if c.IsMedia {
		b.WriteString("." + QualifierMedia)
	}
	if c.NeedsAudioTx {
		b.WriteString("." + QualifierTranscribe)
	}
	return b.String()
}

// Classifier computes routing labels. The wake word decides whether a chat
// message is addressed to the bot.
type Classifier struct {
	wakeWord *regexp.Regexp
}

// New builds a Classifier for the given wake word, matched whole-word and
// case-insensitively anywhere in the body.
func New(wakeWord string) *Classifier {
	return &Classifier{
		wakeWord: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(wakeWord) + `\b`),
	}
}

// Classify inspects ev and computes its flags. Absent optional fields are
// simply non-matching; Classify never fails.
func (c *Classifier) Classify(ev *event.Event) Classification {
	return Classification{
		ID:           ev.ID,
		Type:         ev.Type,
		IsPrompt:     ev.Type == event.TypeChat && ev.Body != "" && c.wakeWord.MatchString(ev.Body),
		IsMedia:      ev.HasMedia(),
		NeedsAudioTx: ev.Type == event.TypeVoiceNote,
	}
}

// Classify is shorthand for classifying with a one-off wake word.
func Classify(ev *event.Event, wakeWord string) Classification {
	return New(wakeWord).Classify(ev)
}
