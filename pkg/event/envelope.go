package event

import "encoding/json"

// Reply content types.
const (
	ReplyChat  = "chat"
	ReplyImage = "image"
)

// Envelope is an outbound reply: where it goes, what it says, and which
// inbound event it quotes. Produced by the rule engine and the specialized
// workers, consumed only by the dispatcher.
type Envelope struct {
	To      string `json:"to"`
	Content string `json:"content"`
	ReplyTo string `json:"reply_to,omitempty"`
	Type    string `json:"type,omitempty"`
}

func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
