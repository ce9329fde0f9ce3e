package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"routines/internal/application/orchestrators"
)

// newMoveCmd creates the move command
func newMoveCmd(env *cliEnv) *cobra.Command {
	var into bool

	cmd := &cobra.Command{
		Use:   "move ROUTINE_ID SOURCE_ID DESTINATION_ID",
		Short: "Move an item before another item, or to the end of a group or the top level",
		Long: `Move an item using the ids printed by show.

A destination item id inserts the source before it. A group container id
(<group id>-container) or root-zone appends to the end of that scope. With
--into the destination is a group id and the source is appended to it.
Moves that would nest a group or reference unknown ids leave the routine
unchanged.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := orchestrators.ExecuteMoveItem(cmd.Context(), orchestrators.MoveItemInput{
				RoutineID:     args[0],
				SourceID:      args[1],
				DestinationID: args[2],
				IntoGroup:     into,
			}, orchestrators.MoveItemDeps{
				RoutineStore: env.store,
				Now:          now,
			})
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Fprintln(cmd.OutOrStdout(), "unchanged")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved (version %d)\n", res.Routine.Version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&into, "into", false, "append into the destination group")
	return cmd
}
