package stub

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/JohnnyCleto/atlaschat/internal/api"
	"github.com/JohnnyCleto/atlaschat/internal/chat"
	"github.com/JohnnyCleto/atlaschat/internal/transport/ws"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// recordingView captures everything the session pushes at the UI.
type recordingView struct {
	mu       sync.Mutex
	messages []chat.Message
	clears   int
}

func (v *recordingView) Append(m chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, m)
}

func (v *recordingView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clears++
	v.messages = nil
}

func (v *recordingView) SetStatus(chat.Status) {}

func (v *recordingView) snapshot() []chat.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]chat.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

type testEnv struct {
	server *httptest.Server
	api    *api.Client
	dialer *ws.Dialer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	server := httptest.NewServer(New(testLogger()).Handler())
	t.Cleanup(server.Close)

	client, err := api.New(server.URL, 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	dialer, err := ws.NewDialer(server.URL, testLogger())
	if err != nil {
		t.Fatalf("dialer: %v", err)
	}
	return &testEnv{server: server, api: client, dialer: dialer}
}

func TestRoomLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.api.CreateRoom(ctx, "general", false, ""); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := env.api.CreateRoom(ctx, "general", false, ""); err == nil {
		t.Fatal("duplicate room creation must fail")
	}

	rooms, err := env.api.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "general" || rooms[0].IsPrivate {
		t.Fatalf("unexpected listing: %+v", rooms)
	}
}

func TestPrivateRoomRequiresPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.api.CreateRoom(ctx, "lab", true, "wubba"); err != nil {
		t.Fatalf("create room: %v", err)
	}

	if err := env.api.JoinRoom(ctx, "lab", "wrong"); err == nil {
		t.Fatal("wrong password must be rejected")
	}
	if err := env.api.JoinRoom(ctx, "lab", "wubba"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := env.api.JoinRoom(ctx, "nowhere", ""); err == nil {
		t.Fatal("unknown room must be rejected")
	}
}

func TestSessionSendAndReceive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := &recordingView{}
	session := chat.NewSession(env.dialer, view, testLogger(), chat.Options{HeartbeatInterval: time.Hour})
	defer session.Close()

	if err := session.Join(ctx, "general", chat.Profile{Name: "rick", Avatar: "https://img/rick.png"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	session.Send(ctx, "wubba lubba dub dub")

	waitFor(t, 5*time.Second, func() bool { return len(view.snapshot()) == 1 },
		"expected the sent message echoed back by the broadcast")

	msg := view.snapshot()[0]
	if msg.Username != "rick" || msg.Content != "wubba lubba dub dub" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ID == "" {
		t.Fatal("server must assign a message identity")
	}
	if _, err := msg.Time(); err != nil {
		t.Fatalf("server timestamp must be parseable: %v", err)
	}
}

func TestHistoryReplayOnRejoin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := &recordingView{}
	session := chat.NewSession(env.dialer, view, testLogger(), chat.Options{HeartbeatInterval: time.Hour})
	defer session.Close()

	if err := session.Join(ctx, "general", chat.Profile{Name: "rick"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	session.Send(ctx, "first")
	session.Send(ctx, "second")
	waitFor(t, 5*time.Second, func() bool { return len(view.snapshot()) == 2 }, "expected both messages echoed")

	// Rejoining replays the room history through the history frame.
	if err := session.Join(ctx, "general", chat.Profile{Name: "rick"}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		msgs := view.snapshot()
		return len(msgs) == 2 && msgs[0].Content == "first" && msgs[1].Content == "second"
	}, "expected history replayed in order after rejoin")
}

func TestHeartbeatDrivesPresence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := &recordingView{}
	session := chat.NewSession(env.dialer, view, testLogger(), chat.Options{HeartbeatInterval: 20 * time.Millisecond})
	defer session.Close()

	if err := session.Join(ctx, "general", chat.Profile{Name: "morty"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		online, err := env.api.Presence(ctx, "general")
		if err != nil {
			t.Fatalf("presence: %v", err)
		}
		for _, user := range online {
			if user == "morty" {
				return true
			}
		}
		return false
	}, "expected heartbeats to mark the user online")
}

func TestPostMessageRateLimit(t *testing.T) {
	env := newTestEnv(t)

	post := func() int {
		body := bytes.NewBufferString(`{"username":"rick","content":"spam"}`)
		resp, err := http.Post(env.server.URL+"/rooms/general/messages", "application/json", body)
		if err != nil {
			t.Fatalf("post message: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < rateLimitBurst; i++ {
		if got := post(); got != http.StatusCreated {
			t.Fatalf("message %d rejected with %d", i+1, got)
		}
	}
	if got := post(); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", got)
	}
}

func TestPaginatedHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view := &recordingView{}
	session := chat.NewSession(env.dialer, view, testLogger(), chat.Options{HeartbeatInterval: time.Hour})
	defer session.Close()

	if err := session.Join(ctx, "general", chat.Profile{Name: "rick"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	for _, text := range []string{"one", "two", "three"} {
		session.Send(ctx, text)
	}
	waitFor(t, 5*time.Second, func() bool { return len(view.snapshot()) == 3 }, "expected three echoes")

	page, err := env.api.Messages(ctx, "general", 2, "")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Content != "two" || page.Items[1].Content != "three" {
		t.Fatalf("unexpected newest page: %+v", page.Items)
	}

	older, err := env.api.Messages(ctx, "general", 2, page.NextCursor)
	if err != nil {
		t.Fatalf("older messages: %v", err)
	}
	if len(older.Items) != 1 || older.Items[0].Content != "one" {
		t.Fatalf("unexpected older page: %+v", older.Items)
	}
}

func TestProfileDirectory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	want := chat.Profile{Name: "Summer Smith", Avatar: "https://img/summer.png"}
	if err := env.api.SaveProfile(ctx, want); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	profiles, err := env.api.Profiles(ctx)
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0] != want {
		t.Fatalf("unexpected directory: %+v", profiles)
	}
}
