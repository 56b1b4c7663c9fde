package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alienxp03/arena/internal/stage"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List stage plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		plans := stage.NewRegistry()
		for _, mode := range plans.Modes() {
			plan, err := plans.GetPlan(mode)
			if err != nil {
				return err
			}
			fmt.Printf("\n%s (%d stages)\n", plan.Mode, len(plan.Stages))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for i, st := range plan.Stages {
				limit := ""
				if st.MaxWords != nil {
					limit = fmt.Sprintf("%d words", *st.MaxWords)
				}
				fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", i, st.ID, st.Speaker, limit)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		return nil
	},
}

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List available personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		personas, err := store.ListPersonas(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTAGLINE\tPRIORITIES")
		for _, p := range personas {
			name := p.Name
			if !p.IsBuiltin {
				name += " *"
			}
			if p.Moderator {
				name += " (moderator)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, name, p.Tagline, strings.Join(p.Priorities, ", "))
		}
		return w.Flush()
	},
}
