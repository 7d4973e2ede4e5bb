// Package interfaces declares the service contracts the API layer depends
// on. Handlers take these instead of concrete types so they can be tested
// against mocks.
package interfaces

import (
	"context"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/service"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/surface"
)

// AssistantService is the dispatcher contract: assistant actions plus the
// session and thread reads the panel renders from.
type AssistantService interface {
	SendMessage(ctx context.Context, content string) string
	AnalyzeSentence(ctx context.Context, sentence string) string
	QuickLookup(ctx context.Context, word, wordContext, sourceURL string) string

	SetSurface(s surface.Surface)
	SetArtifact(s surface.Surface, artifact string)
	SelectThread(id string) error
	Session() service.SessionState

	Threads() []*model.Thread
	Thread(id string) (*model.Thread, error)

	Subscribe() (<-chan struct{}, func())
}
