// Package memory holds the bounded per-conversation turn buffer that gives
// the model short-term context across chatbot requests.
package memory

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLimit is the number of turns retained when no limit is configured.
const DefaultLimit = 10

// Turn is one (input, output) exchange.
type Turn struct {
	Input  string    `json:"input"`
	Output string    `json:"output"`
	At     time.Time `json:"at"`
}

// ConversationMemory is a FIFO of at most limit turns. It is owned by the
// caller for the length of one request and is not safe for concurrent use.
type ConversationMemory struct {
	limit int
	turns []Turn
}

func New(limit int) *ConversationMemory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &ConversationMemory{limit: limit, turns: make([]Turn, 0, limit)}
}

// FromTurns rebuilds a memory from persisted turns, keeping the newest limit.
func FromTurns(limit int, turns []Turn) *ConversationMemory {
	m := New(limit)
	if len(turns) > m.limit {
		turns = turns[len(turns)-m.limit:]
	}
	m.turns = append(m.turns, turns...)
	return m
}

// Append adds a turn, evicting the oldest once the limit is reached.
func (m *ConversationMemory) Append(input, output string, at time.Time) {
	if len(m.turns) == m.limit {
		copy(m.turns, m.turns[1:])
		m.turns = m.turns[:m.limit-1]
	}
	m.turns = append(m.turns, Turn{Input: input, Output: output, At: at})
}

// Turns returns a copy of the retained turns, oldest first.
func (m *ConversationMemory) Turns() []Turn {
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *ConversationMemory) Len() int   { return len(m.turns) }
func (m *ConversationMemory) Limit() int { return m.limit }

// Transcript renders the turns as "[ts] User: ..." / "[ts] Assistant: ..." lines.
func (m *ConversationMemory) Transcript() string {
	if len(m.turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range m.turns {
		ts := t.At.UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, "[%s] User: %s\n", ts, t.Input)
		fmt.Fprintf(&b, "[%s] Assistant: %s\n", ts, t.Output)
	}
	return strings.TrimRight(b.String(), "\n")
}
