// Package event holds the wire records exchanged with the chat client:
// the inbound Event delivered by the WhatsApp automation layer and the
// outbound reply Envelope consumed by the send side. Field names follow
// the JSON the client emits, so events round-trip byte-identical.
package event

import "encoding/json"

// Content types as reported by the chat client.
const (
	TypeChat      = "chat"
	TypeVoiceNote = "ptt"
	TypeImage     = "image"
)

// Contact identifies a chat participant.
type Contact struct {
	ID            string `json:"id"`
	FormattedName string `json:"formattedName,omitempty"`
}

// Group carries group metadata, present only on group messages.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// MediaData describes an attached media payload.
type MediaData struct {
	Type string `json:"type,omitempty"`
}

// Event is one inbound chat message or notification.
type Event struct {
	ID               string    `json:"id"`
	From             string    `json:"from"`
	To               string    `json:"to,omitempty"`
	Sender           Contact   `json:"sender"`
	IsGroupMsg       bool      `json:"isGroupMsg"`
	GroupInfo        Group     `json:"groupInfo,omitempty"`
	Body             string    `json:"body,omitempty"`
	Type             string    `json:"type"`
	Mimetype         string    `json:"mimetype,omitempty"`
	IsMedia          bool      `json:"isMedia,omitempty"`
	IsMMS            bool      `json:"isMMS,omitempty"`
	MediaData        MediaData `json:"mediaData"`
	FileBase64Buffer string    `json:"fileBase64Buffer,omitempty"`
	FromMe           bool      `json:"fromMe,omitempty"`
}

// HasMedia reports whether the event carries a media payload.
func (e *Event) HasMedia() bool {
	return e.IsMedia || e.IsMMS || e.MediaData.Type != "" || e.FileBase64Buffer != ""
}

// ChatID is the identifier of the conversation the event belongs to:
// the group for group messages, the sender chat otherwise.
func (e *Event) ChatID() string {
	if e.IsGroupMsg && e.GroupInfo.ID != "" {
		return e.GroupInfo.ID
	}
	return e.From
}

// Decode parses raw bytes into an Event.
func Decode(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ResolveDestination picks where a reply to ev should go. Replies land in
// the originating chat, but group chats receive them only when listed in
// validGroups; otherwise the sender is addressed directly. Self-originated
// events reply to their own destination.
func (e *Event) ResolveDestination(validGroups []string) string {
	destination := e.From

	if e.IsGroupMsg {
		for _, g := range validGroups {
			if g == e.GroupInfo.ID {
				destination = e.GroupInfo.ID
				break
			}
		}
	}

	if e.FromMe {
		destination = e.To
	}

	return destination
}
