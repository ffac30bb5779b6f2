package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies who authored a conversation message
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// DefaultMaxMessages bounds a session when no capacity is configured.
const DefaultMaxMessages = 10

// Label returns the transcript prefix for the role.
func (r Role) Label() string {
	if r == RoleHuman {
		return "Human"
	}
	return "AI"
}

// Message is one immutable turn of a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HumanMessage creates a message authored by the user.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AIMessage creates a message authored by the model.
func AIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// ValidateMessage validates a Message instance
func ValidateMessage(m Message) error {
	if m.Role != RoleHuman && m.Role != RoleAI {
		return fmt.Errorf("message role is invalid: %s", m.Role)
	}
	return nil
}

// DecodeMessages parses a JSON-encoded message history and validates every
// message in it.
func DecodeMessages(data []byte) ([]Message, error) {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	for i, m := range msgs {
		if err := ValidateMessage(m); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return msgs, nil
}

// Session is a bounded, ordered message history. When an append pushes it
// over capacity the oldest messages are evicted first.
// Session is not safe for concurrent use.
type Session struct {
	maxMessages int
	messages    []Message
}

// NewSession creates an empty session holding at most maxMessages messages.
func NewSession(maxMessages int) *Session {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Session{
		maxMessages: maxMessages,
		messages:    make([]Message, 0, maxMessages+1),
	}
}

// Append adds msg to the tail and truncates to the most recent messages.
func (s *Session) Append(msg Message) {
	s.messages = append(s.messages, msg)
	if over := len(s.messages) - s.maxMessages; over > 0 {
		kept := make([]Message, s.maxMessages, s.maxMessages+1)
		copy(kept, s.messages[over:])
		s.messages = kept
	}
}

// Seed places older messages ahead of the current ones, keeping only the
// most recent MaxMessages.
func (s *Session) Seed(older []Message) {
	merged := make([]Message, 0, len(older)+len(s.messages))
	merged = append(merged, older...)
	merged = append(merged, s.messages...)
	if over := len(merged) - s.maxMessages; over > 0 {
		merged = merged[over:]
	}
	s.messages = append(make([]Message, 0, s.maxMessages+1), merged...)
}

// Messages returns a copy of the history, oldest first.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages held.
func (s *Session) Len() int {
	return len(s.messages)
}

// MaxMessages returns the session capacity.
func (s *Session) MaxMessages() int {
	return s.maxMessages
}

// Transcript renders messages as "Human: ..." / "AI: ..." lines in order.
func Transcript(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Role.Label()+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// GenerationRequest is everything the language model sees for one turn.
type GenerationRequest struct {
	Context    []string
	Transcript string
	Question   string
}

// TurnState is where a conversation turn ended up.
type TurnState string

const (
	TurnStateAnswered   TurnState = "answered"
	TurnStateNotIndexed TurnState = "not_indexed"
	TurnStateFailed     TurnState = "failed"
)
