package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"routines/internal/adapters/routinefile"
	"routines/internal/application/orchestrators"
)

// newImportCmd creates the import command
func newImportCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create or replace a routine from a YAML file (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			doc, err := routinefile.Decode(r)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			res, err := orchestrators.ExecuteImportRoutine(cmd.Context(), orchestrators.ImportRoutineInput{Document: doc}, orchestrators.ImportRoutineDeps{
				RoutineStore: env.store,
				GenerateID:   generateID,
				Now:          now,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (version %d, %d exercises)\n", res.Routine.ID, res.Routine.Version, res.Tree.LeafCount())
			return nil
		},
	}
}

// newExportCmd creates the export command
func newExportCmd(env *cliEnv) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export ROUTINE_ID",
		Short: "Write a routine as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := orchestrators.ExecuteExportRoutine(cmd.Context(), args[0], orchestrators.ExportRoutineDeps{RoutineStore: env.store})
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return routinefile.Encode(cmd.OutOrStdout(), doc)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := routinefile.Encode(f, doc); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
