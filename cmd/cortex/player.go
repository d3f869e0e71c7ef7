package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/templui/cortex/internal/audio"
)

// playerCommand builds the configured system player reading audio on stdin.
func playerCommand(ctx context.Context, line string) (*exec.Cmd, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty player command")
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// beep plays a short tone through the player, or rings the terminal bell
// when no player is configured.
func beep(ctx context.Context) func(frequency float64, d time.Duration) error {
	return func(frequency float64, d time.Duration) error {
		if cfg.PlayerCommand == "" {
			_, err := fmt.Fprint(os.Stderr, "\a")
			return err
		}

		wav, err := audio.EncodeWAV(audio.Tone(frequency, d, cfg.SampleRate), cfg.SampleRate)
		if err != nil {
			return err
		}
		cmd, err := playerCommand(ctx, cfg.PlayerCommand)
		if err != nil {
			return err
		}
		cmd.Stdin = bytes.NewReader(wav)
		return cmd.Run()
	}
}

// audioSink returns where playback audio is written and a func that waits
// for the player to drain it.
func audioSink(ctx context.Context) (io.Writer, func() error, error) {
	if cfg.PlayerCommand == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	cmd, err := playerCommand(ctx, cfg.PlayerCommand)
	if err != nil {
		return nil, nil, err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	err = cmd.Start()
	if err != nil {
		return nil, nil, fmt.Errorf("start player: %w", err)
	}
	return stdin, func() error {
		_ = stdin.Close()
		return cmd.Wait()
	}, nil
}
