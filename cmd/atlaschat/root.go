package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/JohnnyCleto/atlaschat/internal/app"
	"github.com/JohnnyCleto/atlaschat/internal/config"
	"github.com/JohnnyCleto/atlaschat/internal/log"
	"github.com/JohnnyCleto/atlaschat/internal/stub"
)

type rootFlags struct {
	configPath string
	serverURL  string
	logLevel   string
	statePath  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "atlaschat",
		Short:         "Terminal client for the Chat Atlas server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&flags.serverURL, "server", "", "chat server base URL")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.statePath, "state", "", "path to the client state database")

	root.AddCommand(
		newChatCmd(flags),
		newRoomsCmd(flags),
		newProfileCmd(flags),
		newStubCmd(flags),
	)
	return root
}

// loadConfig resolves configuration with flag overrides applied on top.
func loadConfig(flags *rootFlags) (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New(flags.logLevel)

	cfg, _, err := config.Load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, bootstrap, err
	}
	cfg.UpdateFrom(config.Config{
		ServerURL: flags.serverURL,
		LogLevel:  flags.logLevel,
		StatePath: flags.statePath,
	})

	return cfg, log.New(cfg.LogLevel), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func withApp(flags *rootFlags, run func(ctx context.Context, a *app.App) error) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	return run(ctx, a)
}

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [room]",
		Short: "Join a room and chat interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room := ""
			if len(args) == 1 {
				room = args[0]
			}
			return withApp(flags, func(ctx context.Context, a *app.App) error {
				return a.Chat(ctx, room)
			})
		},
	}
}

func newRoomsCmd(flags *rootFlags) *cobra.Command {
	rooms := &cobra.Command{
		Use:   "rooms",
		Short: "Manage rooms",
	}

	rooms.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rooms on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) error {
				return a.ListRooms(ctx)
			})
		},
	})

	var private bool
	var password string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) error {
				return a.CreateRoom(ctx, args[0], private, password)
			})
		},
	}
	create.Flags().BoolVar(&private, "private", false, "create a private room")
	create.Flags().StringVar(&password, "password", "", "password for a private room")
	rooms.AddCommand(create)

	return rooms
}

func newProfileCmd(flags *rootFlags) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Manage the active profile",
	}

	var avatar string
	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Select the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) error {
				return a.SetProfile(ctx, args[0], avatar)
			})
		},
	}
	set.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	profile.AddCommand(set)

	profile.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List profiles known to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app.App) error {
				return a.ListProfiles(ctx)
			})
		},
	})

	return profile
}

func newStubCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a local development chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			server := &http.Server{
				Addr:              addr,
				Handler:           stub.New(logger).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
					return
				}
				serverErr <- nil
			}()

			logger.Info().Str("addr", addr).Msg("stub server listening")

			select {
			case err := <-serverErr:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
				return <-serverErr
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}
