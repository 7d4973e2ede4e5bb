// Package service contains the request dispatcher: it orchestrates one
// assistant action end to end: resolve or create a thread, short-circuit via
// the result caches, call the backend, and merge the result into the correct
// thread even if the user has navigated away in the meantime.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/assist"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/cache"
	app_errors "github.com/DeepDarkBoy48/smashenglish-assistant/internal/errors"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/metrics"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/store"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/surface"
)

// User-visible status and failure texts. Results carry their real content in
// the payload; the Content field is the renderer's plain-text fallback.
const (
	analyzingText     = "Analyzing sentence…"
	analysisReadyText = "Here is the sentence analysis."
	analysisFailText  = "Sorry, the sentence analysis failed. Please try again."
	lookupFailText    = "Sorry, the word lookup failed. Please try again."
	chatFailText      = "Sorry, I could not answer that right now. Please try again."
)

// Metric action labels.
const (
	actionMessage = "message"
	actionAnalyze = "analyze"
	actionLookup  = "lookup"
)

// SessionState is what the panel needs to render its header: which surface
// is active and which thread, if any, is bound to the panel.
type SessionState struct {
	ActiveThreadID string          `json:"active_thread_id"`
	Surface        surface.Surface `json:"surface"`
	Artifact       string          `json:"artifact,omitempty"`
}

// AssistantService is the dispatcher. All operations are total: a backend
// failure becomes a visible assistant message in the originating thread,
// never an error bubbled to the caller.
type AssistantService struct {
	store         *store.ThreadStore
	analysisCache *cache.ResultCache
	lookupCache   *cache.ResultCache
	provider      assist.Provider
	metrics       *metrics.Metrics
	logger        *zap.Logger

	mu            sync.Mutex
	activeSurface surface.Surface
	artifacts     map[surface.Surface]string
}

// NewAssistantService wires the dispatcher. The grammar surface starts
// active, matching the app's initial tab.
func NewAssistantService(
	threads *store.ThreadStore,
	analysisCache *cache.ResultCache,
	lookupCache *cache.ResultCache,
	provider assist.Provider,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		store:         threads,
		analysisCache: analysisCache,
		lookupCache:   lookupCache,
		provider:      provider,
		metrics:       m,
		logger:        logger,
		activeSurface: surface.Grammar,
		artifacts:     make(map[surface.Surface]string),
	}
}

// SetSurface records the active learning surface. Moving to a different
// surface detaches the panel from its thread; stored threads are untouched.
func (s *AssistantService) SetSurface(surf surface.Surface) {
	s.mu.Lock()
	changed := surf != s.activeSurface
	s.activeSurface = surf
	s.mu.Unlock()

	if changed {
		s.store.Select("")
	}
}

// SetArtifact records what a surface is currently showing (the sentence just
// analyzed, the word just opened, the writing draft).
func (s *AssistantService) SetArtifact(surf surface.Surface, artifact string) {
	s.mu.Lock()
	s.artifacts[surf] = artifact
	s.mu.Unlock()
}

// Session returns the current session state.
func (s *AssistantService) Session() SessionState {
	s.mu.Lock()
	surf := s.activeSurface
	artifact := s.artifacts[surf]
	s.mu.Unlock()

	return SessionState{
		ActiveThreadID: s.store.ActiveID(),
		Surface:        surf,
		Artifact:       artifact,
	}
}

// SelectThread binds the panel to a thread, or clears the binding when id is
// empty. Selecting an unknown thread is the one dispatcher operation that
// reports an error, since it can only come from a stale client.
func (s *AssistantService) SelectThread(id string) error {
	if id != "" {
		if _, ok := s.store.Get(id); !ok {
			return fmt.Errorf("%w: thread %s", app_errors.ErrNotFound, id)
		}
	}
	s.store.Select(id)
	return nil
}

// Threads returns all threads, newest first.
func (s *AssistantService) Threads() []*model.Thread {
	return s.store.List()
}

// Thread returns a single thread by id.
func (s *AssistantService) Thread(id string) (*model.Thread, error) {
	th, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: thread %s", app_errors.ErrNotFound, id)
	}
	return th, nil
}

// Subscribe exposes the store's change feed to the presentation layer.
func (s *AssistantService) Subscribe() (<-chan struct{}, func()) {
	return s.store.Subscribe()
}

// SendMessage handles a free-form learner question. When no thread is bound
// to the panel, a new one is created synchronously before the backend call,
// seeded with the active surface's resolved context, so a rapid follow-up
// action correlates to the same thread. Returns the correlated thread id.
func (s *AssistantService) SendMessage(ctx context.Context, content string) string {
	s.mu.Lock()
	surf := s.activeSurface
	artifact := s.artifacts[surf]
	s.mu.Unlock()

	userMsg := s.newMessage(model.RoleUser, content, model.KindPlain, nil)

	// Capture the correlation id and the history snapshot before the
	// suspension point. Everything after the provider call addresses the
	// thread by this id only.
	corrID := s.store.ActiveID()
	var prior []model.Message
	var ctxText *string
	ctxType := model.ContextSentence

	th, ok := s.store.Get(corrID)
	if corrID == "" || !ok {
		ctxText, ctxType = surface.Resolve(surf, artifact)
		created := s.store.Create(store.Seed{
			Title:           content,
			Context:         ctxText,
			ContextType:     ctxType,
			InitialMessages: []model.Message{userMsg},
		})
		corrID = created.ID
	} else {
		prior = th.Messages
		ctxText = th.Context
		ctxType = th.ContextType
		s.store.ReplaceMessages(corrID, withMessage(prior, userMsg))
	}
	base := withMessage(prior, userMsg)

	reply, err := s.provider.ChatReply(ctx, prior, ctxText, ctxType, content)
	if err != nil {
		s.logger.Warn("chat reply failed", zap.String("thread_id", corrID), zap.Error(err))
		s.metrics.RecordRequest(actionMessage, metrics.OutcomeFailed)
		s.store.ReplaceMessages(corrID, withMessage(base, s.newMessage(model.RoleAssistant, chatFailText, model.KindPlain, nil)))
		return corrID
	}

	s.metrics.RecordRequest(actionMessage, metrics.OutcomeResolved)
	s.store.ReplaceMessages(corrID, withMessage(base, s.newMessage(model.RoleAssistant, reply, model.KindPlain, nil)))
	return corrID
}

// AnalyzeSentence opens a sentence thread eagerly with a status placeholder,
// then fills it from cache or from the backend. Returns the thread id.
func (s *AssistantService) AnalyzeSentence(ctx context.Context, sentence string) string {
	userMsg := s.newMessage(model.RoleUser, sentence, model.KindPlain, nil)
	placeholder := s.newMessage(model.RoleAssistant, analyzingText, model.KindPlain, nil)

	ctxText := sentence
	created := s.store.Create(store.Seed{
		Title:           sentence,
		Context:         &ctxText,
		ContextType:     model.ContextSentence,
		InitialMessages: []model.Message{userMsg, placeholder},
	})
	corrID := created.ID
	base := []model.Message{userMsg}

	key := cache.AnalysisKey(sentence)
	if payload, hit := s.analysisCache.Get(key); hit {
		s.metrics.RecordCacheLookup(s.analysisCache.Name(), true)
		s.metrics.RecordRequest(actionAnalyze, metrics.OutcomeCacheHit)
		s.store.ReplaceMessages(corrID, withMessage(base, s.analysisMessage(payload)))
		return corrID
	}
	s.metrics.RecordCacheLookup(s.analysisCache.Name(), false)

	payload, err := s.provider.AnalyzeSentence(ctx, sentence)
	if err != nil {
		s.logger.Warn("sentence analysis failed", zap.String("thread_id", corrID), zap.Error(err))
		s.metrics.RecordRequest(actionAnalyze, metrics.OutcomeFailed)
		s.store.ReplaceMessages(corrID, withMessage(base, s.newMessage(model.RoleAssistant, analysisFailText, model.KindPlain, nil)))
		return corrID
	}

	s.analysisCache.Put(key, payload)
	s.metrics.RecordRequest(actionAnalyze, metrics.OutcomeResolved)
	s.store.ReplaceMessages(corrID, withMessage(base, s.analysisMessage(payload)))
	return corrID
}

// QuickLookup handles a word click: reuse or open a word thread, show a
// status placeholder, then fill it from cache or from the backend. Returns
// the thread id.
func (s *AssistantService) QuickLookup(ctx context.Context, word, wordContext, sourceURL string) string {
	userMsg := s.newMessage(model.RoleUser, word, model.KindPlain, nil)
	placeholder := s.newMessage(model.RoleAssistant, fmt.Sprintf("Looking up %q…", word), model.KindPlain, nil)

	ctxText := wordContext
	corrID, reused := s.store.ReuseOrCreateWordLookup(store.Seed{
		Title:           word,
		Context:         &ctxText,
		ContextType:     model.ContextWord,
		InitialMessages: []model.Message{userMsg, placeholder},
	})

	base := []model.Message{userMsg}
	if reused {
		if th, ok := s.store.Get(corrID); ok {
			base = withMessage(th.Messages, userMsg)
		}
		s.store.ReplaceMessages(corrID, withMessage(base, placeholder))
	}

	key := cache.LookupKey(word, wordContext)
	if payload, hit := s.lookupCache.Get(key); hit {
		s.metrics.RecordCacheLookup(s.lookupCache.Name(), true)
		s.metrics.RecordRequest(actionLookup, metrics.OutcomeCacheHit)
		s.store.ReplaceMessages(corrID, withMessage(base, s.lookupMessage(word, payload)))
		return corrID
	}
	s.metrics.RecordCacheLookup(s.lookupCache.Name(), false)

	payload, err := s.provider.QuickLookup(ctx, word, wordContext, sourceURL)
	if err != nil {
		s.logger.Warn("quick lookup failed",
			zap.String("thread_id", corrID), zap.String("word", word), zap.Error(err))
		s.metrics.RecordRequest(actionLookup, metrics.OutcomeFailed)
		s.store.ReplaceMessages(corrID, withMessage(base, s.newMessage(model.RoleAssistant, lookupFailText, model.KindPlain, nil)))
		return corrID
	}

	s.lookupCache.Put(key, payload)
	s.metrics.RecordRequest(actionLookup, metrics.OutcomeResolved)
	s.store.ReplaceMessages(corrID, withMessage(base, s.lookupMessage(word, payload)))
	return corrID
}

func (s *AssistantService) analysisMessage(payload json.RawMessage) model.Message {
	return s.newMessage(model.RoleAssistant, analysisReadyText, model.KindAnalysisResult, payload)
}

func (s *AssistantService) lookupMessage(word string, payload json.RawMessage) model.Message {
	content := fmt.Sprintf("Quick lookup for %q", word)
	return s.newMessage(model.RoleAssistant, content, model.KindQuickLookupResult, payload)
}

func (s *AssistantService) newMessage(role model.Role, content string, kind model.MessageKind, payload json.RawMessage) model.Message {
	return model.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// withMessage builds a fresh slice so overlapping completions never share a
// backing array.
func withMessage(msgs []model.Message, m model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs)+1)
	out = append(out, msgs...)
	return append(out, m)
}
