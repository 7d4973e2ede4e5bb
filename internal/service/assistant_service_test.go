package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	app_errors "github.com/DeepDarkBoy48/smashenglish-assistant/internal/errors"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/cache"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/metrics"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/service"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/store"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/surface"
)

// stubProvider is a func-field test double for the backend boundary. Each
// hook runs at the dispatcher's suspension point, which lets tests mutate
// session state mid-request to exercise the correlation-id contract.
type stubProvider struct {
	mu           sync.Mutex
	analyzeCalls int
	lookupCalls  int
	chatCalls    int

	analyzeFunc func(ctx context.Context, sentence string) (json.RawMessage, error)
	lookupFunc  func(ctx context.Context, word, wordContext, sourceURL string) (json.RawMessage, error)
	chatFunc    func(ctx context.Context, history []model.Message, contextText *string, ctxType model.ContextType, userMessage string) (string, error)
}

func (p *stubProvider) AnalyzeSentence(ctx context.Context, sentence string) (json.RawMessage, error) {
	p.mu.Lock()
	p.analyzeCalls++
	p.mu.Unlock()
	if p.analyzeFunc != nil {
		return p.analyzeFunc(ctx, sentence)
	}
	return json.RawMessage(`{"structure":"S V"}`), nil
}

func (p *stubProvider) QuickLookup(ctx context.Context, word, wordContext, sourceURL string) (json.RawMessage, error) {
	p.mu.Lock()
	p.lookupCalls++
	p.mu.Unlock()
	if p.lookupFunc != nil {
		return p.lookupFunc(ctx, word, wordContext, sourceURL)
	}
	return json.RawMessage(fmt.Sprintf(`{"word":%q}`, word)), nil
}

func (p *stubProvider) ChatReply(ctx context.Context, history []model.Message, contextText *string, ctxType model.ContextType, userMessage string) (string, error) {
	p.mu.Lock()
	p.chatCalls++
	p.mu.Unlock()
	if p.chatFunc != nil {
		return p.chatFunc(ctx, history, contextText, ctxType, userMessage)
	}
	return "stub reply", nil
}

func setup(t *testing.T) (*service.AssistantService, *store.ThreadStore, *stubProvider) {
	t.Helper()
	threads := store.New(zap.NewNop(), 0)
	provider := &stubProvider{}
	svc := service.NewAssistantService(
		threads,
		cache.New("analysis"),
		cache.New("lookup"),
		provider,
		metrics.New(),
		zap.NewNop(),
	)
	return svc, threads, provider
}

func messagesOfKind(th *model.Thread, kind model.MessageKind) []model.Message {
	var out []model.Message
	for _, m := range th.Messages {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Sending a freeform message with no active thread creates exactly one new
// thread, even though thread creation and the reply append are two separate
// store operations.
func TestSendMessage_SingleCreation(t *testing.T) {
	svc, threads, provider := setup(t)
	ctx := context.Background()

	id := svc.SendMessage(ctx, "What does present perfect mean?")

	list := threads.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, 1, provider.chatCalls)

	th, err := svc.Thread(id)
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, model.RoleUser, th.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, th.Messages[1].Role)
	assert.Equal(t, "stub reply", th.Messages[1].Content)
}

func TestSendMessage_AppendsToActiveThread(t *testing.T) {
	svc, threads, _ := setup(t)
	ctx := context.Background()

	first := svc.SendMessage(ctx, "hello")
	second := svc.SendMessage(ctx, "follow-up")

	assert.Equal(t, first, second)
	assert.Len(t, threads.List(), 1)

	th, err := svc.Thread(first)
	require.NoError(t, err)
	assert.Len(t, th.Messages, 4)
}

// A lazily created thread inherits the resolved context of the active
// surface.
func TestSendMessage_UsesResolvedContext(t *testing.T) {
	svc, _, provider := setup(t)
	ctx := context.Background()

	var gotCtx *string
	var gotType model.ContextType
	provider.chatFunc = func(_ context.Context, _ []model.Message, contextText *string, ctxType model.ContextType, _ string) (string, error) {
		gotCtx = contextText
		gotType = ctxType
		return "ok", nil
	}

	svc.SetSurface(surface.Writing)
	svc.SetArtifact(surface.Writing, "My essay draft about seasons.")

	id := svc.SendMessage(ctx, "Is my draft clear?")

	th, err := svc.Thread(id)
	require.NoError(t, err)
	assert.Equal(t, model.ContextWriting, th.ContextType)
	require.NotNil(t, th.Context)
	assert.Equal(t, "My essay draft about seasons.", *th.Context)
	require.NotNil(t, gotCtx)
	assert.Equal(t, "My essay draft about seasons.", *gotCtx)
	assert.Equal(t, model.ContextWriting, gotType)
}

func TestSendMessage_ServiceFailureBecomesMessage(t *testing.T) {
	svc, _, provider := setup(t)
	provider.chatFunc = func(context.Context, []model.Message, *string, model.ContextType, string) (string, error) {
		return "", errors.New("backend down")
	}

	id := svc.SendMessage(context.Background(), "hello")

	th, err := svc.Thread(id)
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	last := th.Messages[1]
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "try again")
}

// With an empty store, analysis shows a placeholder, then exactly one
// analysis result message replaces it.
func TestAnalyzeSentence_PlaceholderThenResult(t *testing.T) {
	svc, threads, provider := setup(t)

	provider.analyzeFunc = func(_ context.Context, sentence string) (json.RawMessage, error) {
		// At the suspension point the thread already exists and shows
		// its status placeholder.
		list := threads.List()
		require.Len(t, list, 1)
		require.Len(t, list[0].Messages, 2)
		assert.Equal(t, model.RoleAssistant, list[0].Messages[1].Role)
		assert.Contains(t, list[0].Messages[1].Content, "Analyzing")
		return json.RawMessage(`{"structure":"S V"}`), nil
	}

	id := svc.AnalyzeSentence(context.Background(), "The cat sat.")

	th, err := svc.Thread(id)
	require.NoError(t, err)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, model.RoleUser, th.Messages[0].Role)

	results := messagesOfKind(th, model.KindAnalysisResult)
	require.Len(t, results, 1)
	assert.JSONEq(t, `{"structure":"S V"}`, string(results[0].Payload))
}

func TestAnalyzeSentence_CacheIdempotence(t *testing.T) {
	svc, _, provider := setup(t)
	ctx := context.Background()

	first := svc.AnalyzeSentence(ctx, "The cat sat.")
	second := svc.AnalyzeSentence(ctx, "The cat sat.")

	assert.Equal(t, 1, provider.analyzeCalls, "second analysis must come from cache")
	assert.NotEqual(t, first, second, "each analysis opens its own thread")

	a, err := svc.Thread(first)
	require.NoError(t, err)
	b, err := svc.Thread(second)
	require.NoError(t, err)
	assert.Equal(t,
		string(messagesOfKind(a, model.KindAnalysisResult)[0].Payload),
		string(messagesOfKind(b, model.KindAnalysisResult)[0].Payload))
}

// The result lands in the thread that was current at issuance time, not
// in whatever is active at resolution time.
func TestAnalyzeSentence_RaceSafety(t *testing.T) {
	svc, threads, provider := setup(t)

	provider.analyzeFunc = func(context.Context, string) (json.RawMessage, error) {
		// The user navigates away mid-request; the active pointer is
		// cleared before the backend resolves.
		svc.SetSurface(surface.Dictionary)
		return json.RawMessage(`{"structure":"S V"}`), nil
	}

	id := svc.AnalyzeSentence(context.Background(), "The cat sat.")

	assert.Equal(t, "", threads.ActiveID())
	th, err := svc.Thread(id)
	require.NoError(t, err)
	require.Len(t, messagesOfKind(th, model.KindAnalysisResult), 1)
}

// Two identical lookups issue one backend call and land two byte-identical
// results in the thread.
func TestQuickLookup_CacheIdempotence(t *testing.T) {
	svc, _, provider := setup(t)
	ctx := context.Background()

	first := svc.QuickLookup(ctx, "run", "I run fast.", "")
	second := svc.QuickLookup(ctx, "run", "I run fast.", "")

	assert.Equal(t, 1, provider.lookupCalls)
	assert.Equal(t, first, second, "second lookup reuses the word thread")

	th, err := svc.Thread(first)
	require.NoError(t, err)
	results := messagesOfKind(th, model.KindQuickLookupResult)
	require.Len(t, results, 2)
	assert.Equal(t, string(results[0].Payload), string(results[1].Payload))
}

// A trailing space in the surrounding context is a distinct fingerprint.
func TestQuickLookup_CacheKeySensitivity(t *testing.T) {
	svc, _, provider := setup(t)
	ctx := context.Background()

	svc.QuickLookup(ctx, "run", "I run fast.", "")
	svc.QuickLookup(ctx, "run", "I run fast. ", "")

	assert.Equal(t, 2, provider.lookupCalls)
}

// Ten lookups fill one word thread; the eleventh opens a second one.
func TestQuickLookup_ThreadReuseBound(t *testing.T) {
	svc, threads, provider := setup(t)
	ctx := context.Background()

	ids := make(map[string]int)
	for i := 0; i < 11; i++ {
		word := fmt.Sprintf("word%d", i)
		id := svc.QuickLookup(ctx, word, "Some context sentence.", "")
		ids[id]++
	}

	assert.Equal(t, 11, provider.lookupCalls)
	require.Len(t, ids, 2, "exactly two threads over eleven lookups")
	assert.Len(t, threads.List(), 2)

	list := threads.List()
	// Newest first: the overflow thread holds one result, the original ten.
	assert.Len(t, messagesOfKind(list[0], model.KindQuickLookupResult), 1)
	assert.Len(t, messagesOfKind(list[1], model.KindQuickLookupResult), 10)
}

// Issuance-time correlation holds for lookups too, including the reuse path.
func TestQuickLookup_RaceSafety(t *testing.T) {
	svc, threads, provider := setup(t)
	ctx := context.Background()

	issued := svc.QuickLookup(ctx, "run", "I run fast.", "")

	provider.lookupFunc = func(context.Context, string, string, string) (json.RawMessage, error) {
		threads.Select("")
		return json.RawMessage(`{"word":"sprint"}`), nil
	}
	resolved := svc.QuickLookup(ctx, "sprint", "I sprint fast.", "")

	assert.Equal(t, issued, resolved, "lookup correlated to the thread active at issuance")
	th, err := svc.Thread(issued)
	require.NoError(t, err)
	assert.Len(t, messagesOfKind(th, model.KindQuickLookupResult), 2)
}

// Failures are never cached; the retry hits the backend again.
func TestQuickLookup_FailureNotCached(t *testing.T) {
	svc, _, provider := setup(t)
	ctx := context.Background()

	provider.lookupFunc = func(context.Context, string, string, string) (json.RawMessage, error) {
		return nil, errors.New("service unavailable")
	}
	first := svc.QuickLookup(ctx, "run", "I run fast.", "")

	th, err := svc.Thread(first)
	require.NoError(t, err)
	assert.Empty(t, messagesOfKind(th, model.KindQuickLookupResult))
	assert.Contains(t, th.Messages[len(th.Messages)-1].Content, "try again")

	provider.lookupFunc = nil
	svc.QuickLookup(ctx, "run", "I run fast.", "")

	assert.Equal(t, 2, provider.lookupCalls, "retry must re-invoke the backend")
}

func TestQuickLookup_PassesSourceURL(t *testing.T) {
	svc, _, provider := setup(t)

	var gotURL string
	provider.lookupFunc = func(_ context.Context, _, _, sourceURL string) (json.RawMessage, error) {
		gotURL = sourceURL
		return json.RawMessage(`{}`), nil
	}

	svc.QuickLookup(context.Background(), "run", "I run fast.", "https://example.com/ep1")
	assert.Equal(t, "https://example.com/ep1", gotURL)
}

func TestSelectThread(t *testing.T) {
	svc, threads, _ := setup(t)

	id := svc.SendMessage(context.Background(), "hello")

	require.NoError(t, svc.SelectThread(""))
	assert.Equal(t, "", threads.ActiveID())

	require.NoError(t, svc.SelectThread(id))
	assert.Equal(t, id, threads.ActiveID())

	err := svc.SelectThread("missing")
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
}

func TestSetSurface_ClearsActiveThreadOnlyOnChange(t *testing.T) {
	svc, threads, _ := setup(t)

	id := svc.SendMessage(context.Background(), "hello")
	require.Equal(t, id, threads.ActiveID())

	// Re-selecting the surface the panel is already on is not navigation.
	svc.SetSurface(surface.Grammar)
	assert.Equal(t, id, threads.ActiveID())

	svc.SetSurface(surface.Video)
	assert.Equal(t, "", threads.ActiveID())

	// The thread itself is untouched by the switch.
	th, err := svc.Thread(id)
	require.NoError(t, err)
	assert.Len(t, th.Messages, 2)
}

func TestSession(t *testing.T) {
	svc, _, _ := setup(t)

	svc.SetSurface(surface.Dictionary)
	svc.SetArtifact(surface.Dictionary, "run")

	state := svc.Session()
	assert.Equal(t, surface.Dictionary, state.Surface)
	assert.Equal(t, "run", state.Artifact)
	assert.Equal(t, "", state.ActiveThreadID)

	id := svc.SendMessage(context.Background(), "hi")
	assert.Equal(t, id, svc.Session().ActiveThreadID)
}
