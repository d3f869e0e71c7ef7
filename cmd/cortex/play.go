package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/templui/cortex/internal/listview"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/playback"
)

// trackedCounter lets the command wait for the play count update before
// exiting.
type trackedCounter struct {
	view    *listview.View
	counted chan struct{}
}

func (c *trackedCounter) IncrementPlayCount(ctx context.Context, note *model.VoiceNote) error {
	defer func() { c.counted <- struct{}{} }()
	return c.view.IncrementPlayCount(ctx, note)
}

func (c *trackedCounter) wait(timeout time.Duration) {
	select {
	case <-c.counted:
	case <-time.After(timeout):
	}
}

func playCmd() *cobra.Command {
	var from float64
	cmd := &cobra.Command{
		Use:   "play <id>",
		Short: "Play a note to CORTEX_PLAYER or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			note, err := ws.view.Find(args[0])
			if err != nil {
				return err
			}

			sink, wait, err := audioSink(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}

			done := make(chan error, 1)
			var once sync.Once
			finish := func(err error) { once.Do(func() { done <- err }) }

			counter := &trackedCounter{view: ws.view, counted: make(chan struct{}, 1)}
			engine := &playback.StreamEngine{Client: resty.New().SetTimeout(cfg.RequestTimeout), Sink: sink}
			player := playback.NewController(ws.client, engine, counter, playback.Options{
				OnProgress: func(s playback.Status) {
					if s.State == playback.Stopped {
						finish(nil)
						return
					}
					fmt.Fprintf(os.Stderr, "\r▶ %s / %s", listview.FormatTime(s.Elapsed.Seconds()), listview.FormatTime(s.Duration.Seconds()))
				},
				OnError: func(_ string, err error) { finish(err) },
			})
			ws.view.SetPlayer(player)

			err = ws.view.Play(ctx, note.ID)
			if err != nil {
				_ = wait()
				return failed("Unable to play audio file", err)
			}
			if from > 0 {
				player.Seek(note.ID, from)
			}

			select {
			case err = <-done:
			case <-ctx.Done():
				player.StopNote(note.ID)
			}
			_ = player.Close()
			fmt.Fprintln(os.Stderr)
			counter.wait(cfg.RequestTimeout)

			if werr := wait(); werr != nil && err == nil {
				err = fmt.Errorf("player: %w", werr)
			}
			return failed("Unable to play audio file", err)
		},
	}
	cmd.Flags().Float64Var(&from, "from", 0, "Start position in seconds")
	return cmd
}
