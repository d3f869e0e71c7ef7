package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/templui/cortex/internal/listview"
)

func listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List voice notes, optionally filtered by title or date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			ws.view.SetQuery(strings.Join(args, " "))

			if asJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(ws.view.Notes())
			}
			printRows(os.Stdout, ws.view.Rows(), ws.view.Stats())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func printRows(out io.Writer, rows []listview.Row, stats listview.Stats) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No voice notes found")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCREATED\tDURATION\tDONE\tPLAYS")
		for _, r := range rows {
			done := ""
			if r.Note.Completed {
				done = "✓"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", r.Note.ID, r.Note.Title, r.Created, r.Duration, done, r.Note.PlayCount)
		}
		w.Flush()
	}
	fmt.Fprintf(out, "\n%d notes, %d completed, %d pending, %d plays\n", stats.Total, stats.Completed, stats.Pending, stats.Plays)
}

func renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change a note's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			err = ws.view.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return failed("Failed to update title", err)
			}
			notify.Success("Title updated")
			return nil
		},
	}
}

func completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Toggle a note's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			err = ws.view.ToggleComplete(cmd.Context(), args[0])
			if err != nil {
				return failed("Failed to update note", err)
			}
			note, err := ws.view.Find(args[0])
			if err == nil && note.Completed {
				notify.Success("Marked as completed")
			} else {
				notify.Success("Marked as pending")
			}
			return nil
		},
	}
}

func notesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <id> [text]",
		Short: "Show or replace a note's free-text notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				note, err := ws.view.Find(args[0])
				if err != nil {
					return err
				}
				fmt.Println(note.NotesText())
				return nil
			}

			err = ws.view.SaveNotes(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return failed("Failed to save notes", err)
			}
			notify.Success("Notes saved")
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note and its audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			note, err := ws.view.Find(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %q without --yes", note.Title)
			}

			err = ws.view.Delete(cmd.Context(), note.ID)
			if err != nil {
				return failed("Failed to delete voice note", err)
			}
			notify.Success("Voice note deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func transcribeCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "transcribe <id>",
		Short: "Transcribe a note's audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			notify.Info("Transcribing...")
			transcript, err := ws.view.Transcribe(cmd.Context(), args[0], save)
			if err != nil {
				return failed("Failed to transcribe audio", err)
			}
			fmt.Println(transcript)
			if save {
				notify.Success("Notes saved")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Store the transcript as the note's notes")
	return cmd
}
