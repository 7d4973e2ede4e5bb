// Package surface maps the currently active learning surface and its current
// artifact to the conversational context a new thread should be opened
// against. Everything here is pure; surface state itself is owned by the
// dispatcher.
package surface

import (
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
)

// Surface identifies one of the app's learning surfaces.
type Surface string

const (
	Grammar    Surface = "grammar"
	Dictionary Surface = "dictionary"
	Writing    Surface = "writing"
	Video      Surface = "video"
)

// Valid reports whether s names a known surface.
func (s Surface) Valid() bool {
	switch s {
	case Grammar, Dictionary, Writing, Video:
		return true
	}
	return false
}

// DefaultContextType is the context category a surface produces even when it
// has no artifact to offer.
func DefaultContextType(s Surface) model.ContextType {
	switch s {
	case Dictionary:
		return model.ContextWord
	case Writing:
		return model.ContextWriting
	default:
		// Grammar and video both hand over sentences (the sentence just
		// analyzed, or the subtitle line under the playhead).
		return model.ContextSentence
	}
}

// Resolve derives (contextText, contextType) for the given surface and its
// current artifact. An absent artifact yields a nil context with the
// surface-appropriate default type. No side effects, no error conditions.
func Resolve(s Surface, artifact string) (*string, model.ContextType) {
	ctxType := DefaultContextType(s)
	if artifact == "" {
		return nil, ctxType
	}
	text := artifact
	return &text, ctxType
}
