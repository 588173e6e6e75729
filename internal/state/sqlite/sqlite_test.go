package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JohnnyCleto/atlaschat/internal/chat"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestActiveRoomRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.ActiveRoom(ctx)
	if err != nil {
		t.Fatalf("active room: %v", err)
	}
	if room != "" {
		t.Fatalf("expected empty room on fresh store, got %q", room)
	}

	if err := s.SetActiveRoom(ctx, "general"); err != nil {
		t.Fatalf("set active room: %v", err)
	}
	if err := s.SetActiveRoom(ctx, "lab"); err != nil {
		t.Fatalf("overwrite active room: %v", err)
	}

	room, err = s.ActiveRoom(ctx)
	if err != nil {
		t.Fatalf("active room: %v", err)
	}
	if room != "lab" {
		t.Fatalf("expected last written room, got %q", room)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profile, err := s.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile != (chat.Profile{}) {
		t.Fatalf("expected zero profile on fresh store, got %+v", profile)
	}

	want := chat.Profile{Name: "Rick Sanchez", Avatar: "https://img/rick.png"}
	if err := s.SetProfile(ctx, want); err != nil {
		t.Fatalf("set profile: %v", err)
	}

	profile, err = s.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile != want {
		t.Fatalf("expected %+v, got %+v", want, profile)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.SetActiveRoom(ctx, "general"); err != nil {
		t.Fatalf("set active room: %v", err)
	}
	if err := s.SetProfile(ctx, chat.Profile{Name: "ana"}); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	room, err := reopened.ActiveRoom(ctx)
	if err != nil {
		t.Fatalf("active room: %v", err)
	}
	if room != "general" {
		t.Fatalf("expected persisted room, got %q", room)
	}
	profile, err := reopened.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Name != "ana" {
		t.Fatalf("expected persisted profile, got %+v", profile)
	}
}
