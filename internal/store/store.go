// Package store holds the authoritative in-memory collection of conversation
// threads plus the single "active thread" pointer bound to the visible panel.
// All mutation goes through the operations here; that discipline is what
// makes the dispatcher's correlation-id contract sufficient for correctness.
//
// State is process-lifetime only. Threads are never deleted, so an unknown id
// is treated as a silent no-op rather than an error.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
)

const (
	// defaultTitleRunes caps thread titles derived from seeding content.
	defaultTitleRunes = 40

	// wordLookupReuseLimit bounds how many quick-lookup results accumulate
	// in a single word thread before a fresh one is opened. Keeps a "word
	// chase" conversation readable and its title meaningful.
	wordLookupReuseLimit = 10
)

// Seed carries everything needed to open a new thread.
type Seed struct {
	Title           string
	Context         *string
	ContextType     model.ContextType
	InitialMessages []model.Message
}

// ThreadStore is the shared session state: an ordered thread collection
// (newest first) and the active-thread pointer.
type ThreadStore struct {
	logger     *zap.Logger
	titleLimit int

	mu       sync.RWMutex
	threads  []*model.Thread
	byID     map[string]*model.Thread
	activeID string

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New creates an empty store. titleLimit caps derived thread titles in runes;
// zero or negative selects the default.
func New(logger *zap.Logger, titleLimit int) *ThreadStore {
	if titleLimit <= 0 {
		titleLimit = defaultTitleRunes
	}
	return &ThreadStore{
		logger:     logger,
		titleLimit: titleLimit,
		byID:       make(map[string]*model.Thread),
		subs:       make(map[int]chan struct{}),
	}
}

// Create opens a new thread from seed, places it at the front of the
// ordering, and designates it active. The returned thread is a snapshot.
func (s *ThreadStore) Create(seed Seed) *model.Thread {
	s.mu.Lock()
	th := s.createLocked(seed)
	snapshot := copyThread(th)
	s.mu.Unlock()

	s.Notify()
	return snapshot
}

func (s *ThreadStore) createLocked(seed Seed) *model.Thread {
	th := &model.Thread{
		ID:          uuid.NewString(),
		Title:       truncateTitle(seed.Title, s.titleLimit),
		Messages:    append([]model.Message(nil), seed.InitialMessages...),
		Context:     seed.Context,
		ContextType: seed.ContextType,
		CreatedAt:   time.Now(),
	}
	s.threads = append([]*model.Thread{th}, s.threads...)
	s.byID[th.ID] = th
	s.activeID = th.ID

	s.logger.Debug("thread created",
		zap.String("thread_id", th.ID),
		zap.String("context_type", string(th.ContextType)))
	return th
}

// ReplaceMessages swaps the message slice of the thread matching id
// wholesale. Unknown ids are a silent no-op: results arriving for a thread
// that a future persistence layer pruned are dropped, not raised.
func (s *ThreadStore) ReplaceMessages(id string, msgs []model.Message) {
	s.mu.Lock()
	th, ok := s.byID[id]
	if ok {
		th.Messages = append([]model.Message(nil), msgs...)
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("dropping messages for unknown thread", zap.String("thread_id", id))
		return
	}
	s.Notify()
}

// Select sets the active-thread pointer. An empty id clears it, which is how
// surface switches and explicit "new chat" actions detach the panel. The
// pointed-to thread is not touched; a dormant thread is reactivated simply by
// selecting it again.
func (s *ThreadStore) Select(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()

	s.Notify()
}

// ActiveID returns the currently active thread id, or "" when no thread is
// bound to the panel.
func (s *ThreadStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Get returns a snapshot of the thread matching id.
func (s *ThreadStore) Get(id string) (*model.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	th, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return copyThread(th), true
}

// List returns snapshots of all threads, newest first.
func (s *ThreadStore) List() []*model.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Thread, len(s.threads))
	for i, th := range s.threads {
		out[i] = copyThread(th)
	}
	return out
}

// ReuseOrCreateWordLookup applies the word-thread reuse heuristic: if the
// active thread is a word thread holding fewer than wordLookupReuseLimit
// quick-lookup results, the lookup joins it; otherwise a new thread is opened
// from seed. Returns the receiving thread's id and whether it was reused.
func (s *ThreadStore) ReuseOrCreateWordLookup(seed Seed) (string, bool) {
	s.mu.Lock()

	if th, ok := s.byID[s.activeID]; ok && th.ContextType == model.ContextWord {
		if countKind(th.Messages, model.KindQuickLookupResult) < wordLookupReuseLimit {
			id := th.ID
			s.mu.Unlock()
			return id, true
		}
	}

	th := s.createLocked(seed)
	id := th.ID
	s.mu.Unlock()

	s.Notify()
	return id, false
}

// Subscribe registers a change listener. The returned channel receives a
// signal (coalesced, non-blocking) after every mutation; the cancel func
// unregisters it. Collaborators such as the result caches call Notify
// directly so the feed covers their writes too.
func (s *ThreadStore) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
	return ch, cancel
}

// Notify wakes every subscriber. Sends are non-blocking; a subscriber that
// has not drained its channel simply coalesces signals.
func (s *ThreadStore) Notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func countKind(msgs []model.Message, kind model.MessageKind) int {
	n := 0
	for _, m := range msgs {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func copyThread(th *model.Thread) *model.Thread {
	cp := *th
	cp.Messages = append([]model.Message(nil), th.Messages...)
	return &cp
}

func truncateTitle(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
