package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"routines/internal/application/projections"
)

// newListCmd creates the list command
func newListCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored routines, most recent day first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := projections.QueryListRoutines(cmd.Context(), env.store)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDAY\tEXERCISES\tVERSION")
			for _, r := range list {
				day := r.Day
				if day == "" {
					day = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.Name, day, r.ExerciseCount, r.Version)
			}
			return tw.Flush()
		},
	}
}

// newShowCmd creates the show command
func newShowCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "show ROUTINE_ID",
		Short: "Print a routine's tree with the ids accepted by move",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := projections.QueryGetRoutineTree(cmd.Context(), projections.GetRoutineTreeQuery{RoutineID: args[0]}, projections.GetRoutineTreeDeps{
				RoutineStore: env.store,
			})
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printTree(w io.Writer, res projections.RoutineTreeResult) {
	header := res.Name
	if res.Day != "" {
		header += " (" + res.Day + ")"
	}
	fmt.Fprintf(w, "%s  v%d, %d exercises\n", header, res.Version, res.ExerciseCount)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range res.Items {
		indent := "  "
		if it.ParentID != "" {
			indent = "    "
		}
		var label strings.Builder
		label.WriteString(it.Name)
		switch it.Kind {
		case projections.KindGroup:
			if it.Superset {
				label.WriteString(" [superset]")
			}
		case projections.KindExercise:
			if it.Sets > 0 || it.Reps > 0 {
				fmt.Fprintf(&label, " %dx%d", it.Sets, it.Reps)
			}
		}
		fmt.Fprintf(tw, "%s%s\t%s\n", indent, it.ID, label.String())
	}
	tw.Flush()
}
