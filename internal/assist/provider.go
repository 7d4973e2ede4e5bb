// Package assist is the boundary to the backend AI services consumed by the
// dispatcher: full-sentence analysis, word quick lookup, and free-form chat
// replies. The session core treats these as abstract contracts; transport and
// error shape belong to the implementation.
package assist

import (
	"context"
	"encoding/json"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
)

// Provider defines the three consumed assistant services. Result payloads are
// opaque to the caller; they are attached to messages and interpreted by the
// renderer. Implementations do not retry: a failure is returned as-is and the
// user re-triggers the action.
type Provider interface {
	// AnalyzeSentence produces a grammar analysis of one sentence.
	AnalyzeSentence(ctx context.Context, sentence string) (json.RawMessage, error)

	// QuickLookup explains a word in its exact surrounding context.
	// sourceURL is opaque provenance data echoed back into the result.
	QuickLookup(ctx context.Context, word, wordContext, sourceURL string) (json.RawMessage, error)

	// ChatReply answers a free-form learner question given the thread's
	// history and bound context. contextText is nil when the thread was
	// opened without an artifact.
	ChatReply(ctx context.Context, history []model.Message, contextText *string, ctxType model.ContextType, userMessage string) (string, error)
}
