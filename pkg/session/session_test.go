package session

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	r := NewRegistry(0)

	s, err := r.Create("jane_doe", "coaching")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID == "" {
		t.Fatal("empty session id")
	}
	if s.ClientSlug != "jane_doe" || s.BusinessType != "coaching" {
		t.Fatalf("session = %+v", s)
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID || len(got.History) != 0 {
		t.Fatalf("got = %+v", got)
	}

	if _, err := r.Get("no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id error = %v", err)
	}
}

func TestAppendHistory(t *testing.T) {
	r := NewRegistry(0)
	s, err := r.Create("jane_doe", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Append(s.ID, Message{Role: "user", Content: "Which career fits me best?"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := r.Append(s.ID, Message{Role: "assistant", Content: "**Best career fit:** Consultant."}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.History) != 2 || got.History[0].Role != "user" || got.History[1].Role != "assistant" {
		t.Fatalf("history = %+v", got.History)
	}

	// Snapshots are copies; mutating one must not touch the registry.
	got.History[0].Content = "tampered"
	again, _ := r.Get(s.ID)
	if again.History[0].Content != "Which career fits me best?" {
		t.Fatalf("registry history mutated: %+v", again.History)
	}
}

func TestSetClientClearsHistory(t *testing.T) {
	r := NewRegistry(0)
	s, _ := r.Create("jane_doe", "")
	_ = r.Append(s.ID, Message{Role: "user", Content: "hello"})

	if err := r.SetClient(s.ID, "john_smith"); err != nil {
		t.Fatalf("SetClient: %v", err)
	}
	got, _ := r.Get(s.ID)
	if got.ClientSlug != "john_smith" || len(got.History) != 0 {
		t.Fatalf("session after switch = %+v", got)
	}

	// Re-selecting the same client keeps the transcript.
	_ = r.Append(s.ID, Message{Role: "user", Content: "still here"})
	if err := r.SetClient(s.ID, "john_smith"); err != nil {
		t.Fatalf("SetClient: %v", err)
	}
	got, _ = r.Get(s.ID)
	if len(got.History) != 1 {
		t.Fatalf("history cleared on same-client select: %+v", got.History)
	}
}

func TestDelete(t *testing.T) {
	r := NewRegistry(0)
	s, _ := r.Create("jane_doe", "")

	r.Delete(s.ID)
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted session still found: %v", err)
	}

	r.Delete("no-such-session")
}

func TestExpirySweep(t *testing.T) {
	r := NewRegistry(time.Minute)
	current := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	stale, _ := r.Create("jane_doe", "")

	current = current.Add(30 * time.Second)
	fresh, _ := r.Create("john_smith", "")

	// Stale session idles past the TTL; the fresh one was touched recently.
	current = current.Add(45 * time.Second)
	if _, err := r.Get(stale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale session survived sweep: %v", err)
	}
	if _, err := r.Get(fresh.ID); err != nil {
		t.Fatalf("fresh session expired early: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("live sessions = %d, want 1", r.Len())
	}
}
