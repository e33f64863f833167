package notification

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dormmanager/backend/internal/domain"
)

// ErrUndecodable marks a queued message that can never be processed.
var ErrUndecodable = errors.New("undecodable mail message")

// Message is the queue contract for verification code mail.
type Message struct {
	ID    string          `json:"-"`
	Type  domain.CodeKind `json:"type"`
	Email string          `json:"email"`
	Code  int             `json:"code"`
}

// Encode renders the JSON body stored on the queue.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses a queued body. Every failure matches ErrUndecodable.
func DecodeMessage(id string, body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if !msg.Type.Valid() {
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrUndecodable, msg.Type)
	}
	if msg.Email == "" {
		return Message{}, fmt.Errorf("%w: missing email", ErrUndecodable)
	}
	msg.ID = id
	return msg, nil
}
