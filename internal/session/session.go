// Package session tracks per-recording-session state: the ordered list of
// recognized signs, the derived sentence and confidence, and the
// completion flag.
//
// Sessions live in process memory only. A restart drops every in-flight
// recording session; operators must treat that as expected behavior, not
// data loss. There is no expiry either, so long-lived processes should be
// restarted or cleared periodically.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/classify"
	"github.com/signifyapp/signify-server/internal/compose"
)

// ErrNotFound is returned when a session does not exist, or when a
// mutation targets an entry that is not there.
var ErrNotFound = errors.New("session not found")

// Entry is one recognized sign within a session.
type Entry struct {
	SequenceNumber int       `json:"sequence_number"`
	Word           string    `json:"word"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

// View is the caller-facing snapshot of a session. All derived fields are
// recomputed atomically with every mutation.
type View struct {
	SessionID         string     `json:"session_id"`
	Signs             []Entry    `json:"signs"`
	Words             []string   `json:"words"`
	Sentence          string     `json:"sentence"`
	ComposedSentence  string     `json:"composed_sentence,omitempty"`
	OverallConfidence float64    `json:"overall_confidence"`
	TotalSigns        int        `json:"total_signs"`
	IsComplete        bool       `json:"is_complete"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Summary is the compact per-session view returned by ListAll.
type Summary struct {
	Sentence   string `json:"sentence"`
	TotalSigns int    `json:"total_signs"`
	IsComplete bool   `json:"is_complete"`
}

type state struct {
	entries          []Entry
	composedSentence string
	isComplete       bool
	createdAt        time.Time
	completedAt      time.Time

	// gen counts entry mutations. Composition runs with the store
	// unlocked, so its result is only committed if gen still matches.
	gen uint64
}

// Store is the injectable session registry. The in-memory implementation
// is the only one today; the interface exists so it can be swapped for a
// persistent store without touching callers.
type Store interface {
	Upsert(ctx context.Context, sessionID string, seq int, pred classify.Prediction, isFinal bool) (View, error)
	RemoveLast(sessionID string) (View, string, error)
	RemoveAt(sessionID string, seq int) (View, string, error)
	Regenerate(ctx context.Context, sessionID string) (View, error)
	Get(sessionID string) (View, error)
	Clear(sessionID string) error
	ListAll() map[string]Summary
	Count() int
}

// MemoryStore keeps sessions in a map guarded by one coarse mutex;
// expected load does not justify per-key locking.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*state
	composer *compose.Service
	logger   *zap.Logger
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(composer *compose.Service, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*state),
		composer: composer,
		logger:   logger,
	}
}

// Upsert records a prediction at the given sequence number, creating the
// session on first use and overwriting any existing entry at that number.
// When isFinal is set the composer runs over the session's words and the
// session is marked complete.
func (s *MemoryStore) Upsert(ctx context.Context, sessionID string, seq int, pred classify.Prediction, isFinal bool) (View, error) {
	s.mu.Lock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &state{createdAt: time.Now().UTC()}
		s.sessions[sessionID] = sess
	}

	entry := Entry{
		SequenceNumber: seq,
		Word:           pred.Word,
		Confidence:     pred.Confidence,
		Timestamp:      time.Now().UTC(),
	}

	replaced := false
	for i := range sess.entries {
		if sess.entries[i].SequenceNumber == seq {
			sess.entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		sess.entries = append(sess.entries, entry)
	}
	sortEntries(sess.entries)

	// Any earlier composed sentence is stale once the word list changes.
	sess.composedSentence = ""
	sess.isComplete = false
	sess.gen++

	if !isFinal {
		view := s.viewLocked(sessionID, sess)
		s.mu.Unlock()
		return view, nil
	}

	words := validWords(sess.entries)
	gen := sess.gen
	s.mu.Unlock()

	// Composition can block on the network for seconds; the store stays
	// unlocked so other sessions keep moving.
	sentence := s.composer.Compose(ctx, words)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[sessionID]; ok && cur == sess && sess.gen == gen {
		sess.composedSentence = sentence
		sess.isComplete = true
		sess.completedAt = time.Now().UTC()
	}
	return s.viewLocked(sessionID, sess), nil
}

// RemoveLast removes the entry with the highest sequence number and
// returns the updated view along with the removed word. "Last" means the
// numerically highest sequence number, not the most recently inserted
// entry.
func (s *MemoryStore) RemoveLast(sessionID string) (View, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || len(sess.entries) == 0 {
		return View{}, "", ErrNotFound
	}

	last := len(sess.entries) - 1
	removed := sess.entries[last].Word
	sess.entries = sess.entries[:last]

	sess.composedSentence = ""
	sess.isComplete = false
	sess.gen++

	return s.viewLocked(sessionID, sess), removed, nil
}

// RemoveAt removes the entry at the given sequence number.
func (s *MemoryStore) RemoveAt(sessionID string, seq int) (View, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return View{}, "", ErrNotFound
	}

	for i := range sess.entries {
		if sess.entries[i].SequenceNumber == seq {
			removed := sess.entries[i].Word
			sess.entries = append(sess.entries[:i], sess.entries[i+1:]...)
			sess.composedSentence = ""
			sess.isComplete = false
			sess.gen++
			return s.viewLocked(sessionID, sess), removed, nil
		}
	}

	return View{}, "", ErrNotFound
}

// Regenerate re-runs the sentence composer over the session's current
// words, for example after an undo, without replaying any video.
func (s *MemoryStore) Regenerate(ctx context.Context, sessionID string) (View, error) {
	s.mu.Lock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return View{}, ErrNotFound
	}
	words := validWords(sess.entries)
	if len(words) == 0 {
		s.mu.Unlock()
		return View{}, ErrNotFound
	}
	gen := sess.gen
	s.mu.Unlock()

	sentence := s.composer.Compose(ctx, words)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[sessionID]; ok && cur == sess && sess.gen == gen {
		sess.composedSentence = sentence
	}
	return s.viewLocked(sessionID, sess), nil
}

// Get returns a snapshot of the session.
func (s *MemoryStore) Get(sessionID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return View{}, ErrNotFound
	}
	return s.viewLocked(sessionID, sess), nil
}

// Clear removes the session entirely.
func (s *MemoryStore) Clear(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// ListAll returns a summary of every active session.
func (s *MemoryStore) ListAll() map[string]Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Summary, len(s.sessions))
	for id, sess := range s.sessions {
		out[id] = Summary{
			Sentence:   strings.Join(validWords(sess.entries), " "),
			TotalSigns: len(sess.entries),
			IsComplete: sess.isComplete,
		}
	}
	return out
}

// Count returns the number of active sessions.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) viewLocked(sessionID string, sess *state) View {
	words := validWords(sess.entries)

	view := View{
		SessionID:         sessionID,
		Signs:             append([]Entry(nil), sess.entries...),
		Words:             words,
		Sentence:          strings.Join(words, " "),
		ComposedSentence:  sess.composedSentence,
		OverallConfidence: meanPositiveConfidence(sess.entries),
		TotalSigns:        len(sess.entries),
		IsComplete:        sess.isComplete,
		CreatedAt:         sess.createdAt,
	}
	if sess.isComplete {
		t := sess.completedAt
		view.CompletedAt = &t
	}
	return view
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SequenceNumber < entries[j].SequenceNumber
	})
}

// validWords filters out placeholder entries. They stay in the entry list
// for audit and undo but never appear in the sentence.
func validWords(entries []Entry) []string {
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Word == "" || e.Word == classify.PlaceholderWord {
			continue
		}
		words = append(words, e.Word)
	}
	return words
}

func meanPositiveConfidence(entries []Entry) float64 {
	var sum float64
	var n int
	for _, e := range entries {
		if e.Confidence > 0 {
			sum += e.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
