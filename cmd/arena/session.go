package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/engine"
)

// ============================================================================
// NEW COMMAND
// ============================================================================

var newCmd = &cobra.Command{
	Use:   "new [topic]",
	Short: "Create a new session",
	Long: `Create a debate or discussion on the given topic. Nothing is generated
until "next" or "run" is called.

Examples:
  arena new "Should homework be banned?"
  arena new "Remote work" --mode pro -a pragmatist -b visionary
  arena new "City planning" --mode discussion --level 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		session, err := a.engine.CreateSession(cmd.Context(), core.NewSessionConfig{
			Topic:              strings.Join(args, " "),
			Mode:               modeFlag,
			PersonaAID:         personaAFlag,
			PersonaBID:         personaBFlag,
			ModeratorPersonaID: moderatorFlag,
			ConfrontationLevel: levelFlag,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created %s session %s\n", session.Mode, session.ID)
		fmt.Printf("  %s vs %s\n", session.PersonaAID, session.PersonaBID)
		fmt.Printf("\nAdvance with: arena next %s\n", core.ShortID(session.ID))
		return nil
	},
}

var (
	modeFlag      string
	personaAFlag  string
	personaBFlag  string
	moderatorFlag string
	levelFlag     int
)

func init() {
	newCmd.Flags().StringVarP(&modeFlag, "mode", "m", "quick", "Stage plan: quick, pro or discussion")
	newCmd.Flags().StringVarP(&personaAFlag, "persona-a", "a", "optimist", "Persona for side A")
	newCmd.Flags().StringVarP(&personaBFlag, "persona-b", "b", "skeptic", "Persona for side B")
	newCmd.Flags().StringVar(&moderatorFlag, "moderator", "", "Moderator persona (default: moderator)")
	newCmd.Flags().IntVarP(&levelFlag, "level", "l", 0, "Confrontation level 1-5 (discussion only)")
}

// ============================================================================
// NEXT / RUN COMMANDS
// ============================================================================

var nextCmd = &cobra.Command{
	Use:   "next [id]",
	Short: "Produce the next stage of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := findSessionByPrefix(cmd.Context(), a.engine, args[0])
		if err != nil {
			return err
		}

		before, err := a.engine.GetSession(cmd.Context(), id)
		if err != nil {
			return err
		}
		session, err := a.engine.Advance(cmd.Context(), id)
		if err != nil {
			return err
		}

		printNewTurns(session, len(before.Turns))
		printStatus(session)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [id]",
	Short: "Advance a session until it completes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := findSessionByPrefix(ctx, a.engine, args[0])
		if err != nil {
			return err
		}

		session, err := a.engine.GetSession(ctx, id)
		if err != nil {
			return err
		}
		printHeader(session)
		seen := len(session.Turns)

		for !session.Status.IsTerminal() {
			session, err = a.engine.Advance(ctx, id)
			if err != nil {
				return err
			}
			printNewTurns(session, seen)
			seen = len(session.Turns)
		}

		printDecision(session.Decision)
		printStatus(session)
		return nil
	},
}

// ============================================================================
// SHOW / LIST COMMANDS
// ============================================================================

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := findSessionByPrefix(cmd.Context(), a.engine, args[0])
		if err != nil {
			return err
		}

		session, err := a.engine.GetSession(cmd.Context(), id)
		if err != nil {
			return err
		}

		printHeader(session)
		printNewTurns(session, 0)
		printDecision(session.Decision)
		printStatus(session)
		return nil
	},
}

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.engine.ListSessions(cmd.Context(), listLimit, 0)
		if err != nil {
			return err
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found. Start one with: arena new \"Your topic\"")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tMODE\tSTATUS\tSTAGE\tCREATED")
		for _, s := range sessions {
			topic := s.Topic
			if len(topic) > 35 {
				topic = topic[:32] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				core.ShortID(s.ID),
				topic,
				s.Mode,
				s.Status,
				s.StageIndex,
				s.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum sessions to list")
}

// ============================================================================
// HELPERS
// ============================================================================

func findSessionByPrefix(ctx context.Context, eng *engine.Engine, prefix string) (string, error) {
	if _, err := eng.GetSession(ctx, prefix); err == nil {
		return prefix, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return "", err
	}

	sessions, err := eng.ListSessions(ctx, 200, 0)
	if err != nil {
		return "", err
	}
	var match string
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: id prefix %s is ambiguous", core.ErrInvalidInput, prefix)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: session %s", core.ErrNotFound, prefix)
	}
	return match, nil
}

func printHeader(s *core.Session) {
	fmt.Printf("\nTopic: %s\n", s.Topic)
	fmt.Printf("  ID: %s\n", s.ID)
	fmt.Printf("  Mode: %s\n", s.Mode)
	fmt.Printf("  %s (A) vs %s (B)\n", s.PersonaAID, s.PersonaBID)
	if s.ConfrontationLevel > 0 {
		fmt.Printf("  Confrontation: %d/5\n", s.ConfrontationLevel)
	}
	fmt.Printf("  Created: %s\n", s.CreatedAt.Format(time.RFC3339))
}

func printNewTurns(s *core.Session, from int) {
	for _, t := range s.Turns[min(from, len(s.Turns)):] {
		fmt.Printf("\n[%d] %s (%s)\n", t.StageIndex+1, t.StageID, t.Speaker)
		fmt.Println(strings.Repeat("-", 40))
		fmt.Println(t.RenderedText)
		for _, v := range t.Violations {
			fmt.Printf("  ! %s\n", v)
		}
	}
}

func printDecision(d *core.Decision) {
	if d == nil {
		return
	}
	fmt.Println()
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("Winner: %s (%s)\n", d.Winner, d.Closeness)
	fmt.Printf("Score: A %d - B %d\n", d.Scores.A.Total(), d.Scores.B.Total())
	fmt.Println(d.Verdict)
}

func printStatus(s *core.Session) {
	fmt.Printf("\nStatus: %s (stage %d)\n", s.Status, s.StageIndex)
}
