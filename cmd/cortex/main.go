package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/templui/cortex/internal/config"
	"github.com/templui/cortex/internal/listview"
	"github.com/templui/cortex/internal/logger"
	"github.com/templui/cortex/internal/notestore"
	"github.com/templui/cortex/internal/toast"
)

var (
	verbose bool
	cfg     *config.ClientConfig
	notify  *toast.Queue
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cortex",
		Short:         "Record, play and organise voice notes",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logger.Options{Dev: verbose, Output: os.Stderr, Component: "cli"})

			var err error
			cfg, err = config.LoadClient()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	notify = toast.NewQueue(toast.Options{OnPush: printToast})

	rootCmd.AddCommand(
		loginCmd(),
		verifyCmd(),
		logoutCmd(),
		listCmd(),
		recordCmd(),
		playCmd(),
		renameCmd(),
		completeCmd(),
		notesCmd(),
		deleteCmd(),
		transcribeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var ae *actionError
		if errors.As(err, &ae) {
			notify.Error(ae.err, ae.action)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		slog.Debug("command failed", "error", err)
		os.Exit(1)
	}
}

func printToast(t toast.Toast) {
	mark := "•"
	switch t.Level {
	case toast.LevelSuccess:
		mark = "✓"
	case toast.LevelError:
		mark = "✗"
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", mark, t.Message)
}

// actionError carries the user-facing name of the action that failed.
type actionError struct {
	action string
	err    error
}

func (e *actionError) Error() string {
	return e.action + ": " + e.err.Error()
}

func (e *actionError) Unwrap() error {
	return e.err
}

func failed(action string, err error) error {
	if err == nil {
		return nil
	}
	return &actionError{action: action, err: err}
}

// workspace is everything a signed-in command needs.
type workspace struct {
	session *notestore.Session
	client  *notestore.Client
	view    *listview.View
}

func openWorkspace(ctx context.Context) (*workspace, error) {
	session, err := loadSession(cfg.SessionPath)
	if err != nil {
		return nil, err
	}

	client := notestore.NewClient(cfg.ServerURL, cfg.RequestTimeout)
	client.SetToken(session.AccessToken)

	userID := ""
	if session.User != nil {
		userID = session.User.ID
	}
	view := listview.New(client, client, listview.Options{UserID: userID})

	err = view.Reload(ctx)
	if err != nil {
		return nil, failed("Failed to load voice notes", err)
	}
	return &workspace{session: session, client: client, view: view}, nil
}
