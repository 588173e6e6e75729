// Package app wires configuration, storage, transport, and the chat core
// into the runnable client.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JohnnyCleto/atlaschat/internal/api"
	"github.com/JohnnyCleto/atlaschat/internal/chat"
	"github.com/JohnnyCleto/atlaschat/internal/config"
	"github.com/JohnnyCleto/atlaschat/internal/state"
	statesqlite "github.com/JohnnyCleto/atlaschat/internal/state/sqlite"
	"github.com/JohnnyCleto/atlaschat/internal/transport/ws"
	"github.com/JohnnyCleto/atlaschat/internal/view"
)

// App owns the client's long-lived pieces.
type App struct {
	cfg      config.Config
	log      *zerolog.Logger
	state    state.Store
	api      *api.Client
	session  *chat.Session
	switcher *chat.Switcher
	term     *view.Terminal
}

// New constructs the application with the provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := statesqlite.New(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	apiClient, err := api.New(cfg.ServerURL, cfg.RequestTimeout, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	dialer, err := ws.NewDialer(cfg.ServerURL, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	term := view.NewTerminal(os.Stdout)
	session := chat.NewSession(dialer, term, logger, chat.Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	return &App{
		cfg:      cfg,
		log:      logger,
		state:    st,
		api:      apiClient,
		session:  session,
		switcher: chat.NewSwitcher(session, st, logger),
		term:     term,
	}, nil
}

// Close tears down the session and releases storage.
func (a *App) Close() {
	a.session.Close()
	if err := a.state.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close state store")
	}
}

// Chat joins a room and runs the interactive loop until ctx is cancelled
// or the user quits. An empty room falls back to the persisted selection,
// then to the configured default.
func (a *App) Chat(ctx context.Context, room string) error {
	if room == "" {
		stored, err := a.state.ActiveRoom(ctx)
		if err != nil {
			return err
		}
		room = stored
	}
	if room == "" {
		room = a.cfg.DefaultRoom
	}

	if err := a.switcher.SwitchTo(ctx, room); err != nil {
		if errors.Is(err, chat.ErrNoProfile) {
			return fmt.Errorf("%w: run `atlaschat profile set <name>` first", chat.ErrNoProfile)
		}
		return err
	}
	defer a.session.Close()

	fmt.Println("Type messages and press Enter to send. Commands: /join <room>, /rooms, /who, /quit.")
	a.inputLoop(ctx)
	return nil
}

// inputLoop reads stdin lines and maps them to sends or commands.
func (a *App) inputLoop(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if done := a.handleLine(ctx, line); done {
				return
			}
		}
	}
}

// handleLine dispatches one input line. Returns true when the user quits.
func (a *App) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		a.session.Send(ctx, line)
		return false
	}

	command, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/quit", "/exit":
		return true
	case "/join":
		if arg == "" {
			fmt.Println("usage: /join <room>")
			return false
		}
		if err := a.switcher.SwitchTo(ctx, arg); err != nil {
			fmt.Printf("join failed: %v\n", err)
		}
	case "/rooms":
		if err := a.printRooms(ctx); err != nil {
			fmt.Printf("list rooms failed: %v\n", err)
		}
	case "/who":
		online, err := a.api.Presence(ctx, a.session.Room())
		if err != nil {
			fmt.Printf("presence failed: %v\n", err)
			return false
		}
		fmt.Printf("online: %s\n", strings.Join(online, ", "))
	default:
		fmt.Printf("unknown command %s\n", command)
	}
	return false
}

func (a *App) printRooms(ctx context.Context) error {
	rooms, err := a.api.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		visibility := "public"
		if r.IsPrivate {
			visibility = "private"
		}
		fmt.Printf("  %-24s %s\n", r.Name, visibility)
	}
	return nil
}

// ListRooms prints the room directory.
func (a *App) ListRooms(ctx context.Context) error {
	return a.printRooms(ctx)
}

// CreateRoom creates a room on the server.
func (a *App) CreateRoom(ctx context.Context, name string, private bool, password string) error {
	if err := a.api.CreateRoom(ctx, name, private, password); err != nil {
		return err
	}
	fmt.Printf("room %q created\n", name)
	return nil
}

// SetProfile persists the active profile locally and registers it with
// the server's directory on a best-effort basis.
func (a *App) SetProfile(ctx context.Context, name, avatar string) error {
	profile := chat.Profile{Name: name, Avatar: avatar}
	if err := a.state.SetProfile(ctx, profile); err != nil {
		return err
	}
	if err := a.api.SaveProfile(ctx, profile); err != nil {
		a.log.Warn().Err(err).Msg("failed to register profile with server")
	}
	fmt.Printf("profile set to %q\n", name)
	return nil
}

// ListProfiles prints the server's profile directory.
func (a *App) ListProfiles(ctx context.Context) error {
	profiles, err := a.api.Profiles(ctx)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		fmt.Printf("  %s\n", p.Name)
	}
	return nil
}
