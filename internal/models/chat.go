package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageRole identifies who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single entry in a conversation. Order is significant and
// messages are never edited or removed once appended.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Chat is a persisted conversation owned by a single user. History holds the
// JSON-encoded ordered message list; Context is the extracted document text
// the conversation is grounded in, nil when the chat was never bound to a
// document.
type Chat struct {
	ID        string `gorm:"primaryKey"`
	Owner     string `gorm:"index;not null"`
	Title     string
	History   []byte  // JSON-encoded ordered []Message
	Context   *string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatSummary is the (id, title) projection used for chat listings.
type ChatSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ErrCorruptHistory marks a stored history column that does not decode into a
// valid message sequence.
var ErrCorruptHistory = errors.New("corrupt chat history")

// EncodeMessages serializes a message sequence for the History column.
func EncodeMessages(messages []Message) ([]byte, error) {
	if messages == nil {
		messages = []Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat history: %w", err)
	}
	return data, nil
}

// DecodeMessages parses a History column back into an ordered message
// sequence, validating every entry. A record that is not valid JSON, or that
// carries an unknown role or empty content, fails with ErrCorruptHistory
// rather than being interpreted loosely.
func DecodeMessages(data []byte) ([]Message, error) {
	if len(data) == 0 {
		return []Message{}, nil
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	for i, msg := range messages {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			return nil, fmt.Errorf("%w: message %d has unknown role %q", ErrCorruptHistory, i, msg.Role)
		}
		if msg.Content == "" {
			return nil, fmt.Errorf("%w: message %d has empty content", ErrCorruptHistory, i)
		}
	}
	return messages, nil
}
