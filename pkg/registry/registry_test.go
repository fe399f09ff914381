package registry

import (
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seededRegistry returns a registry with a deterministic code generator.
func seededRegistry(seed int64) *Registry {
	return New(&Config{Rand: rand.New(rand.NewSource(seed))}, testLogger())
}

func TestCreateSessionCodes(t *testing.T) {
	r := seededRegistry(1)

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code := r.CreateSession()
		if !ValidCode(code) {
			t.Fatalf("CreateSession() = %q, want 4-char uppercase alphanumeric", code)
		}
		if seen[code] {
			t.Fatalf("CreateSession() returned duplicate code %q among active sessions", code)
		}
		seen[code] = true
	}

	if r.Count() != 500 {
		t.Errorf("Count() = %d, want 500", r.Count())
	}
}

func TestCreateSessionResamplesOnCollision(t *testing.T) {
	// Twin generators with the same seed draw the same sequence. Occupying
	// the first candidate up front forces CreateSession through its retry
	// branch: the taken code must be skipped and the next draw returned.
	g := newCodeGenerator(rand.New(rand.NewSource(7)))
	first, second := g.Next(), g.Next()

	r := seededRegistry(7)
	r.sessions[first] = &session{code: first, members: make(map[string]*Member)}

	if code := r.CreateSession(); code != second {
		t.Fatalf("CreateSession() = %q, want %q after skipping taken %q", code, second, first)
	}
	if _, ok := r.sessions[second]; !ok {
		t.Error("resampled code should name a live session")
	}
}

func TestJoinUnknownCode(t *testing.T) {
	r := seededRegistry(1)

	snap, err := r.Join("NOPE", "conn-1", "Alice")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Join() error = %v, want ErrSessionNotFound", err)
	}
	if snap != nil {
		t.Error("Join() snapshot should be nil on error")
	}
	if r.Count() != 0 || r.MemberCount() != 0 {
		t.Error("failed join must not mutate the registry")
	}
}

func TestJoinEmptyName(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()

	if _, err := r.Join(code, "conn-1", ""); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("Join() error = %v, want ErrEmptyName", err)
	}
	if r.MemberCount() != 0 {
		t.Error("failed join must not add a member")
	}
}

func TestJoinReturnsSnapshot(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()

	snap, err := r.Join(code, "conn-1", "Alice")
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if snap.Code != code {
		t.Errorf("snapshot code = %q, want %q", snap.Code, code)
	}
	m, ok := snap.Users["conn-1"]
	if !ok {
		t.Fatal("snapshot should contain the joining member")
	}
	if m.Name != "Alice" {
		t.Errorf("member name = %q, want %q", m.Name, "Alice")
	}
	if m.Text != "" {
		t.Errorf("new member text = %q, want empty", m.Text)
	}
}

func TestJoinSecondSessionForbidden(t *testing.T) {
	r := seededRegistry(1)
	first := r.CreateSession()
	second := r.CreateSession()

	if _, err := r.Join(first, "conn-1", "Alice"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := r.Join(second, "conn-1", "Alice"); !errors.Is(err, ErrAlreadyInSession) {
		t.Fatalf("second Join() error = %v, want ErrAlreadyInSession", err)
	}

	// The first membership is intact, the second session untouched.
	if snap, err := r.Lookup("conn-1"); err != nil || snap.Code != first {
		t.Errorf("Lookup() = %v, %v; want session %q", snap, err, first)
	}
}

func TestUpdateTextNotInSession(t *testing.T) {
	r := seededRegistry(1)

	if _, err := r.UpdateText("ghost", "hello"); !errors.Is(err, ErrNotInSession) {
		t.Fatalf("UpdateText() error = %v, want ErrNotInSession", err)
	}
}

func TestUpdateTextIdempotent(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()
	if _, err := r.Join(code, "conn-1", "Alice"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		snap, err := r.UpdateText("conn-1", "hello")
		if err != nil {
			t.Fatalf("UpdateText() call %d error: %v", i+1, err)
		}
		if got := snap.Users["conn-1"].Text; got != "hello" {
			t.Errorf("call %d: text = %q, want %q", i+1, got, "hello")
		}
	}
}

func TestUpdateTextOnlyTouchesOwner(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()
	r.Join(code, "conn-1", "Alice")
	r.Join(code, "conn-2", "Bob")

	snap, err := r.UpdateText("conn-1", "hello")
	if err != nil {
		t.Fatalf("UpdateText() error: %v", err)
	}
	if got := snap.Users["conn-1"].Text; got != "hello" {
		t.Errorf("owner text = %q, want %q", got, "hello")
	}
	if got := snap.Users["conn-2"].Text; got != "" {
		t.Errorf("other member text = %q, want empty", got)
	}
}

func TestRemoveLastMemberDeletesSession(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()
	r.Join(code, "conn-1", "Alice")

	gone, snap := r.Remove("conn-1")
	if gone != code {
		t.Errorf("Remove() code = %q, want %q", gone, code)
	}
	if snap != nil {
		t.Error("Remove() of last member should return a nil snapshot")
	}

	// The code is free again: joining it fails.
	if _, err := r.Join(code, "conn-2", "Bob"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Join() after delete error = %v, want ErrSessionNotFound", err)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRemoveNonLastMember(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()
	r.Join(code, "conn-1", "Alice")
	r.Join(code, "conn-2", "Bob")

	gone, snap := r.Remove("conn-2")
	if gone != code {
		t.Errorf("Remove() code = %q, want %q", gone, code)
	}
	if snap == nil {
		t.Fatal("Remove() of non-last member should return a snapshot")
	}
	if _, still := snap.Users["conn-2"]; still {
		t.Error("departed member must not appear in the remaining snapshot")
	}
	if _, ok := snap.Users["conn-1"]; !ok {
		t.Error("remaining member missing from snapshot")
	}
}

func TestRemoveUnknownConnIsNoOp(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()
	r.Join(code, "conn-1", "Alice")

	gone, snap := r.Remove("never-joined")
	if gone != "" || snap != nil {
		t.Errorf("Remove(unknown) = (%q, %v), want (\"\", nil)", gone, snap)
	}
	if r.Count() != 1 || r.MemberCount() != 1 {
		t.Error("Remove of unknown connection must not mutate the registry")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()
	snap, _ := r.Join(code, "conn-1", "Alice")

	// Mutating a snapshot must not leak into registry state.
	m := snap.Users["conn-1"]
	m.Text = "tampered"
	snap.Users["conn-1"] = m

	after, err := r.UpdateText("conn-1", "real")
	if err != nil {
		t.Fatalf("UpdateText() error: %v", err)
	}
	if got := after.Users["conn-1"].Text; got != "real" {
		t.Errorf("text = %q, want %q", got, "real")
	}
}

func TestStats(t *testing.T) {
	r := seededRegistry(1)
	a := r.CreateSession()
	b := r.CreateSession()
	r.Join(a, "conn-1", "Alice")
	r.Join(b, "conn-2", "Bob")
	r.Remove("conn-2") // deletes b

	stats := r.Stats()
	if stats.Active != 1 {
		t.Errorf("Stats().Active = %d, want 1", stats.Active)
	}
	if stats.Members != 1 {
		t.Errorf("Stats().Members = %d, want 1", stats.Members)
	}
	if stats.TotalCreated != 2 {
		t.Errorf("Stats().TotalCreated = %d, want 2", stats.TotalCreated)
	}
	if stats.TotalDeleted != 1 {
		t.Errorf("Stats().TotalDeleted = %d, want 1", stats.TotalDeleted)
	}
	if stats.Peak != 2 {
		t.Errorf("Stats().Peak = %d, want 2", stats.Peak)
	}
}

// TestSessionLifecycleScenario walks the full create/join/update/leave flow.
func TestSessionLifecycleScenario(t *testing.T) {
	r := seededRegistry(12)

	code := r.CreateSession()

	aliceSnap, err := r.Join(code, "alice-conn", "Alice")
	if err != nil {
		t.Fatalf("Alice Join() error: %v", err)
	}
	if len(aliceSnap.Users) != 1 {
		t.Fatalf("roster size after Alice = %d, want 1", len(aliceSnap.Users))
	}

	bobSnap, err := r.Join(code, "bob-conn", "Bob")
	if err != nil {
		t.Fatalf("Bob Join() error: %v", err)
	}
	if len(bobSnap.Users) != 2 {
		t.Fatalf("roster size after Bob = %d, want 2", len(bobSnap.Users))
	}

	snap, err := r.UpdateText("alice-conn", "hello")
	if err != nil {
		t.Fatalf("UpdateText() error: %v", err)
	}
	if snap.Users["alice-conn"].Text != "hello" {
		t.Errorf("Alice text = %q, want %q", snap.Users["alice-conn"].Text, "hello")
	}
	if snap.Users["bob-conn"].Text != "" {
		t.Errorf("Bob text = %q, want empty", snap.Users["bob-conn"].Text)
	}

	gone, remaining := r.Remove("bob-conn")
	if gone != code || remaining == nil {
		t.Fatalf("Remove(bob) = (%q, %v), want surviving session %q", gone, remaining, code)
	}
	if len(remaining.Users) != 1 {
		t.Errorf("roster size after Bob left = %d, want 1", len(remaining.Users))
	}
	if _, ok := remaining.Users["alice-conn"]; !ok {
		t.Error("Alice missing after Bob left")
	}

	if gone, remaining = r.Remove("alice-conn"); gone != code || remaining != nil {
		t.Fatalf("Remove(alice) = (%q, %v), want (%q, nil)", gone, remaining, code)
	}
	if _, err := r.Join(code, "carol-conn", "Carol"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Join() after session gone error = %v, want ErrSessionNotFound", err)
	}
}

// TestConcurrentUpdates hammers one session from many goroutines to flush out
// races under -race. Last write wins; the invariant is that the final text is
// one of the written values and the roster never corrupts.
func TestConcurrentUpdates(t *testing.T) {
	r := seededRegistry(1)
	code := r.CreateSession()
	r.Join(code, "conn-a", "A")
	r.Join(code, "conn-b", "B")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := "conn-a"
			if n%2 == 0 {
				conn = "conn-b"
			}
			for j := 0; j < 100; j++ {
				if _, err := r.UpdateText(conn, "text"); err != nil {
					t.Errorf("UpdateText() error: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	snap, err := r.Lookup("conn-a")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if len(snap.Users) != 2 {
		t.Errorf("roster size = %d, want 2", len(snap.Users))
	}
	for id, m := range snap.Users {
		if m.Text != "text" {
			t.Errorf("member %s text = %q, want %q", id, m.Text, "text")
		}
	}
}
