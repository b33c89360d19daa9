// Command inspect reads a persisted session table and reports, for each
// session, whether the server would restore it. It checks:
//   - the record key matches the stored session ID
//   - positions cover exactly the roster (repairable by normalization)
//   - unique player ids, positions within the board, a turn pointer inside the roster
//
// Sessions that pass are rendered with the same board the server shows.
// The command exits with non-zero status if any session would be skipped.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/ludo-engine/game/config"
	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/session"
)

// ValidationResult captures the outcome of inspecting a single session.
// Notes holds informational messages; Errors is empty when Valid is true.
type ValidationResult struct {
	SessionID string
	Valid     bool
	Notes     []string
	Errors    []string
	Board     string
}

// inspectSnapshot checks one stored record the way the registry does on load
func inspectSnapshot(rules engine.Rules, key string, snap session.Snapshot) ValidationResult {
	result := ValidationResult{
		SessionID: key,
		Valid:     true,
	}

	if snap.ID != "" && snap.ID != key {
		result.Notes = append(result.Notes, fmt.Sprintf("stored id %q differs from key, key wins", snap.ID))
	}

	state := snap.State.Clone()
	if err := state.Validate(rules); err != nil {
		state.Normalize()
		if normErr := state.Validate(rules); normErr != nil {
			result.Valid = false
			result.Errors = append(result.Errors, normErr.Error())
			return result
		}
		result.Notes = append(result.Notes, fmt.Sprintf("repaired by normalization (%v)", err))
	}

	status := "forming"
	if state.Started {
		status = "started"
	}
	result.Notes = append(result.Notes, fmt.Sprintf("✓ %d players, %s", len(state.Players), status))
	if !snap.UpdatedAt.IsZero() {
		result.Notes = append(result.Notes, "✓ last change "+snap.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}

	result.Board = engine.FormatBoard(rules, state)
	return result
}

// inspect loads the store and writes a report. It returns the number of
// sessions that would be skipped.
func inspect(ctx context.Context, w io.Writer, store session.Store, rules engine.Rules) (int, error) {
	snapshots, err := store.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(snapshots))
	for id := range snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	invalid := 0
	for _, id := range ids {
		result := inspectSnapshot(rules, id, snapshots[id])

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.SessionID)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			invalid++
		}
		for _, note := range result.Notes {
			fmt.Fprintln(w, "  "+note)
		}
		for _, e := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+e)
		}
		if result.Board != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, result.Board)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(ids) == 0:
		fmt.Fprintln(w, "No sessions stored")
	case invalid == 0:
		fmt.Fprintf(w, "✅ All %d sessions are valid!\n", len(ids))
	default:
		fmt.Fprintf(w, "❌ %d of %d sessions would be skipped on load\n", invalid, len(ids))
	}
	return invalid, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.IsSet("store") {
		settings.Store = cmd.String("store")
	}
	if cmd.IsSet("board-size") {
		settings.BoardSize = int(cmd.Int("board-size"))
	}
	if path := cmd.Args().First(); path != "" {
		settings.DataFile = path
		settings.SQLitePath = path
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	store, err := settings.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	invalid, err := inspect(ctx, cmd.Writer, store, settings.Rules())
	if err != nil {
		return err
	}
	if invalid > 0 {
		return fmt.Errorf("%d sessions would be skipped on load", invalid)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "inspect",
		Usage:     "Validate and render persisted Ludo sessions",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Usage: "file or sqlite (LUDO_STORE)"},
			&cli.IntFlag{Name: "board-size", Usage: "Home square index (LUDO_BOARD_SIZE)"},
		},
		Writer: os.Stdout,
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
