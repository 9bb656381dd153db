package session

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/classify"
	"github.com/signifyapp/signify-server/internal/compose"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(compose.NewService(nil, zap.NewNop()), zap.NewNop())
}

func pred(word string, confidence float64) classify.Prediction {
	return classify.Prediction{Word: word, Confidence: confidence}
}

// composerFunc adapts a function to the compose.Composer interface.
type composerFunc func(ctx context.Context, words []string) (string, error)

func (f composerFunc) Compose(ctx context.Context, words []string) (string, error) {
	return f(ctx, words)
}

func TestUpsertCreatesSession(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	view, err := s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if view.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", view.SessionID, "sess-1")
	}
	if view.TotalSigns != 1 {
		t.Errorf("TotalSigns = %d, want 1", view.TotalSigns)
	}
	if view.Sentence != "hello" {
		t.Errorf("Sentence = %q, want %q", view.Sentence, "hello")
	}
	if view.IsComplete {
		t.Error("session should not be complete")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestUpsertOverwritesSameSequence(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.5), false)
	view, _ := s.Upsert(ctx, "sess-1", 1, pred("world", 0.8), false)

	if view.TotalSigns != 1 {
		t.Fatalf("TotalSigns = %d, want 1 after overwrite", view.TotalSigns)
	}
	if view.Sentence != "world" {
		t.Errorf("Sentence = %q, want %q", view.Sentence, "world")
	}
}

func TestUpsertOrdersBySequenceNumber(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	// Out-of-order arrival still yields a sentence in sequence order.
	s.Upsert(ctx, "sess-1", 2, pred("world", 0.8), false)
	view, _ := s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)

	if view.Sentence != "hello world" {
		t.Errorf("Sentence = %q, want %q", view.Sentence, "hello world")
	}
	if view.Signs[0].SequenceNumber != 1 || view.Signs[1].SequenceNumber != 2 {
		t.Errorf("entries not sorted: %+v", view.Signs)
	}
}

func TestUpsertFinalComposesSentence(t *testing.T) {
	composer := compose.NewService(compose.NewMockComposer("Hello there, world!"), zap.NewNop())
	s := NewMemoryStore(composer, zap.NewNop())
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	view, _ := s.Upsert(ctx, "sess-1", 2, pred("world", 0.8), true)

	if !view.IsComplete {
		t.Fatal("session should be complete")
	}
	if view.ComposedSentence != "Hello there, world!" {
		t.Errorf("ComposedSentence = %q, want composed text", view.ComposedSentence)
	}
	if view.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
}

func TestUpsertAfterFinalReopensSession(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), true)
	view, _ := s.Upsert(ctx, "sess-1", 2, pred("world", 0.8), false)

	if view.IsComplete {
		t.Error("new sign after completion should reopen the session")
	}
	if view.ComposedSentence != "" {
		t.Errorf("stale composed sentence kept: %q", view.ComposedSentence)
	}
}

func TestUpsertFinalStoreUsableWhileComposing(t *testing.T) {
	var s *MemoryStore
	var countDuringCompose int
	composer := compose.NewService(composerFunc(func(ctx context.Context, words []string) (string, error) {
		// Reads against the store must not wait for the composer.
		countDuringCompose = s.Count()
		if _, err := s.Get("sess-1"); err != nil {
			return "", err
		}
		return "Hello world.", nil
	}), zap.NewNop())
	s = NewMemoryStore(composer, zap.NewNop())
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	view, err := s.Upsert(ctx, "sess-1", 2, pred("world", 0.8), true)
	if err != nil {
		t.Fatalf("final upsert failed: %v", err)
	}
	if countDuringCompose != 1 {
		t.Errorf("Count during compose = %d, want 1", countDuringCompose)
	}
	if !view.IsComplete || view.ComposedSentence != "Hello world." {
		t.Errorf("view = %+v, want completed session with composed sentence", view)
	}
}

func TestUpsertFinalSkipsStaleComposition(t *testing.T) {
	var s *MemoryStore
	composer := compose.NewService(composerFunc(func(ctx context.Context, words []string) (string, error) {
		// An undo lands while the composer is still running.
		if _, _, err := s.RemoveLast("sess-1"); err != nil {
			return "", err
		}
		return "Hello world.", nil
	}), zap.NewNop())
	s = NewMemoryStore(composer, zap.NewNop())
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	view, err := s.Upsert(ctx, "sess-1", 2, pred("world", 0.8), true)
	if err != nil {
		t.Fatalf("final upsert failed: %v", err)
	}
	if view.IsComplete {
		t.Error("completion committed over a word list that changed mid-compose")
	}
	if view.ComposedSentence != "" {
		t.Errorf("ComposedSentence = %q, want empty after mid-compose undo", view.ComposedSentence)
	}
	if view.TotalSigns != 1 {
		t.Errorf("TotalSigns = %d, want 1", view.TotalSigns)
	}
}

func TestPlaceholderExcludedFromSentence(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	s.Upsert(ctx, "sess-1", 2, pred(classify.PlaceholderWord, 0), false)
	view, _ := s.Upsert(ctx, "sess-1", 3, pred("world", 0.8), false)

	if view.Sentence != "hello world" {
		t.Errorf("Sentence = %q, want %q", view.Sentence, "hello world")
	}
	// The placeholder entry itself stays, for undo.
	if view.TotalSigns != 3 {
		t.Errorf("TotalSigns = %d, want 3", view.TotalSigns)
	}
	if len(view.Words) != 2 {
		t.Errorf("Words = %v, want 2 valid words", view.Words)
	}
}

func TestOverallConfidenceIgnoresZeroEntries(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.8), false)
	s.Upsert(ctx, "sess-1", 2, pred(classify.PlaceholderWord, 0), false)
	view, _ := s.Upsert(ctx, "sess-1", 3, pred("world", 0.4), false)

	want := (0.8 + 0.4) / 2
	if diff := view.OverallConfidence - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("OverallConfidence = %v, want %v", view.OverallConfidence, want)
	}
}

func TestRemoveLastTakesHighestSequence(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	// Sequence 3 arrives before sequence 5; "last" is 5 regardless.
	s.Upsert(ctx, "sess-1", 5, pred("world", 0.8), false)
	s.Upsert(ctx, "sess-1", 3, pred("hello", 0.9), false)

	view, removed, err := s.RemoveLast("sess-1")
	if err != nil {
		t.Fatalf("RemoveLast failed: %v", err)
	}
	if removed != "world" {
		t.Errorf("removed = %q, want %q", removed, "world")
	}
	if view.Sentence != "hello" {
		t.Errorf("Sentence = %q, want %q", view.Sentence, "hello")
	}
}

func TestRemoveLastEmptySession(t *testing.T) {
	s := newTestStore()

	if _, _, err := s.RemoveLast("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveLast on missing session = %v, want ErrNotFound", err)
	}

	ctx := context.Background()
	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	s.RemoveLast("sess-1")
	if _, _, err := s.RemoveLast("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveLast on drained session = %v, want ErrNotFound", err)
	}
}

func TestRemoveAt(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	s.Upsert(ctx, "sess-1", 2, pred("bad", 0.2), false)
	s.Upsert(ctx, "sess-1", 3, pred("world", 0.8), false)

	view, removed, err := s.RemoveAt("sess-1", 2)
	if err != nil {
		t.Fatalf("RemoveAt failed: %v", err)
	}
	if removed != "bad" {
		t.Errorf("removed = %q, want %q", removed, "bad")
	}
	if view.Sentence != "hello world" {
		t.Errorf("Sentence = %q, want %q", view.Sentence, "hello world")
	}

	if _, _, err := s.RemoveAt("sess-1", 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveAt(99) = %v, want ErrNotFound", err)
	}
}

func TestRegenerate(t *testing.T) {
	composer := compose.NewService(compose.NewMockComposer("Hello world."), zap.NewNop())
	s := NewMemoryStore(composer, zap.NewNop())
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	s.Upsert(ctx, "sess-1", 2, pred("world", 0.8), false)

	view, err := s.Regenerate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if view.ComposedSentence != "Hello world." {
		t.Errorf("ComposedSentence = %q, want %q", view.ComposedSentence, "Hello world.")
	}
}

func TestRegenerateNoValidWords(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Regenerate(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Regenerate on missing session = %v, want ErrNotFound", err)
	}

	s.Upsert(ctx, "sess-1", 1, pred(classify.PlaceholderWord, 0), false)
	if _, err := s.Regenerate(ctx, "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Regenerate with only placeholders = %v, want ErrNotFound", err)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, "sess-1", 1, pred("hello", 0.9), false)
	if err := s.Clear("sess-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := s.Get("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Clear = %v, want ErrNotFound", err)
	}
	if err := s.Clear("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Clear twice = %v, want ErrNotFound", err)
	}
}

func TestListAll(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Upsert(ctx, "a", 1, pred("hello", 0.9), false)
	s.Upsert(ctx, "b", 1, pred("world", 0.8), true)

	all := s.ListAll()
	if len(all) != 2 {
		t.Fatalf("ListAll returned %d sessions, want 2", len(all))
	}
	if all["a"].IsComplete {
		t.Error("session a should not be complete")
	}
	if !all["b"].IsComplete {
		t.Error("session b should be complete")
	}
	if all["b"].Sentence != "world" {
		t.Errorf("session b sentence = %q, want %q", all["b"].Sentence, "world")
	}
}

// TestRecordingScenario walks a full two-sign recording the way the
// mobile client drives it: two uploads, an undo, a retake, then finish.
func TestRecordingScenario(t *testing.T) {
	composer := compose.NewService(nil, zap.NewNop())
	s := NewMemoryStore(composer, zap.NewNop())
	ctx := context.Background()

	s.Upsert(ctx, "rec", 1, pred("HELLO", 0.91), false)
	s.Upsert(ctx, "rec", 2, pred("WRONG", 0.44), false)

	_, removed, err := s.RemoveLast("rec")
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if removed != "WRONG" {
		t.Fatalf("undo removed %q, want %q", removed, "WRONG")
	}

	view, err := s.Upsert(ctx, "rec", 2, pred("WORLD", 0.87), true)
	if err != nil {
		t.Fatalf("final upsert failed: %v", err)
	}

	if view.Sentence != "HELLO WORLD" {
		t.Errorf("Sentence = %q, want %q", view.Sentence, "HELLO WORLD")
	}
	if view.ComposedSentence != "HELLO WORLD" {
		t.Errorf("ComposedSentence = %q, want fallback join", view.ComposedSentence)
	}
	if !view.IsComplete {
		t.Error("session should be complete")
	}
	want := (0.91 + 0.87) / 2
	if diff := view.OverallConfidence - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("OverallConfidence = %v, want %v", view.OverallConfidence, want)
	}
}
