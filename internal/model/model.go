package model

import (
	"encoding/json"
	"time"
)

// ContextType categorizes the learner content a thread was opened against.
type ContextType string

const (
	ContextSentence ContextType = "sentence"
	ContextWord     ContextType = "word"
	ContextWriting  ContextType = "writing"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageKind tells the renderer how to interpret a message's payload.
// The payload itself is opaque to this core.
type MessageKind string

const (
	KindPlain             MessageKind = "plain"
	KindAnalysisResult    MessageKind = "analysis_result"
	KindDictionaryResult  MessageKind = "dictionary_result"
	KindQuickLookupResult MessageKind = "quick_lookup_result"
	KindVideoControl      MessageKind = "video_control"
)

// Message is a single turn in a conversation. Messages are immutable once
// committed; a status placeholder is discarded by replacing the thread's
// message slice wholesale, never by mutating the message in place.
type Message struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Kind      MessageKind     `json:"kind,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Thread is one independently addressable conversation with its own message
// history and bound context.
type Thread struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Messages    []Message   `json:"messages"`
	Context     *string     `json:"context,omitempty"`
	ContextType ContextType `json:"context_type"`
	CreatedAt   time.Time   `json:"created_at"`
}
