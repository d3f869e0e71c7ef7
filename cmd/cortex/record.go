package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/cortex/internal/capture"
	"github.com/templui/cortex/internal/listview"
)

func recordCmd() *cobra.Command {
	var input string
	var limit time.Duration
	var quiet bool
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice note from raw PCM input until Ctrl-C",
		Long: `Record reads mono 16-bit little-endian PCM at CORTEX_SAMPLE_RATE from --input,
for example: arecord -q -f S16_LE -c 1 -r 16000 | cortex record --input -
Recording stops on Ctrl-C, after --for, or at the 5 minute maximum.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx)
			if err != nil {
				return err
			}

			stopped := make(chan capture.StopResult, 1)
			rec := capture.NewRecorder(
				&capture.FileDevice{Path: input, SampleRate: cfg.SampleRate},
				ws.view,
				capture.Options{
					Tone:  beep(context.WithoutCancel(ctx)),
					Sound: cfg.SoundEnabled && !quiet,
					OnTick: func(elapsed int) {
						fmt.Fprintf(os.Stderr, "\r● %s / %s", listview.FormatTime(float64(elapsed)), listview.FormatTime(capture.MaxDuration.Seconds()))
					},
					OnStop: func(res capture.StopResult) { stopped <- res },
				},
			)
			defer rec.Close()

			err = rec.Start(ctx)
			if err != nil {
				return failed("Failed to start recording", err)
			}
			notify.Success("Recording started")

			var deadline <-chan time.Time
			if limit > 0 {
				timer := time.NewTimer(limit)
				defer timer.Stop()
				deadline = timer.C
			}

			var res capture.StopResult
			select {
			case res = <-stopped:
			case <-ctx.Done():
				_ = rec.Stop(context.WithoutCancel(ctx))
				res = <-stopped
			case <-deadline:
				_ = rec.Stop(ctx)
				res = <-stopped
			}
			fmt.Fprintln(os.Stderr)
			notify.Success("Recording stopped")

			if res.Err != nil {
				return failed("Failed to save voice note", res.Err)
			}
			notify.Success("Voice note saved successfully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "PCM input path, - for stdin")
	cmd.Flags().DurationVar(&limit, "for", 0, "Stop after this long")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Disable start and stop tones")
	return cmd
}
