package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"routines/internal/adapters/routinefile"
	"routines/internal/domain/routine"
)

// ImportRoutineInput carries a decoded routine document.
// INVARIANT: existing routines keep their ID and CreatedAt; only name, day and tree change.
type ImportRoutineInput struct {
	Document routinefile.Document
}

// ImportRoutineDeps holds dependencies for ImportRoutine.
type ImportRoutineDeps struct {
	RoutineStore RoutineStoreForOrchestrator
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteImportRoutine creates or replaces a routine from a document.
// Exercises without any natural key get a generated ID and keyless groups a
// generated Key, so the imported items have stable ids from then on.
// PRE: Document.Routine.Name is non-empty
// POST: the stored routine and tree match the document; version bumped when the tree changed
func ExecuteImportRoutine(ctx context.Context, input ImportRoutineInput, deps ImportRoutineDeps) (TreeResult, error) {
	doc := input.Document
	tree := assignKeys(doc.Tree, deps.GenerateID)
	if err := routine.ValidateTree(tree); err != nil {
		return TreeResult{}, err
	}

	now := deps.Now()
	r := doc.Routine
	created := false
	if r.ID != "" {
		existing, err := deps.RoutineStore.GetRoutine(ctx, r.ID)
		switch {
		case err == nil:
			r.Version = existing.Version
			r.CreatedAt = existing.CreatedAt
		case errors.Is(err, routine.ErrRoutineNotFound):
			created = true
		default:
			return TreeResult{}, err
		}
	} else {
		r.ID = deps.GenerateID()
		created = true
	}
	if created {
		r.Version = 0
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if err := r.Validate(); err != nil {
		return TreeResult{}, err
	}
	if err := deps.RoutineStore.SaveRoutine(ctx, r); err != nil {
		return TreeResult{}, err
	}

	res, err := mutateTree(ctx, deps.RoutineStore, r.ID, deps.Now, func(routine.Tree) (routine.Tree, error) {
		return tree, nil
	})
	if err != nil {
		return TreeResult{}, err
	}

	slog.Info("routine_event", "event", "routine_imported", "routine_id", r.ID, "created", created, "items", len(tree), "version", res.Routine.Version)
	return res, nil
}

// assignKeys returns a copy of tree in which every exercise has a natural key
// and every group a Key.
func assignKeys(tree routine.Tree, generateID func() string) routine.Tree {
	out := tree.Clone()
	for i, it := range out {
		switch v := it.(type) {
		case routine.Leaf:
			if v.Exercise.NaturalKey() == "" {
				v.Exercise.ID = generateID()
				out[i] = v
			}
		case routine.Group:
			if v.Key == "" {
				v.Key = generateID()
			}
			for j, c := range v.Children {
				if c.Exercise.NaturalKey() == "" {
					v.Children[j].Exercise.ID = generateID()
				}
			}
			out[i] = v
		}
	}
	return out
}

// ExportRoutineDeps holds dependencies for ExportRoutine.
type ExportRoutineDeps struct {
	RoutineStore RoutineStoreForOrchestrator
}

// ExecuteExportRoutine loads a routine and its tree as a document.
// PRE: routineID names an existing routine
// POST: returns a document that ExecuteImportRoutine accepts unchanged
func ExecuteExportRoutine(ctx context.Context, routineID string, deps ExportRoutineDeps) (routinefile.Document, error) {
	r, err := deps.RoutineStore.GetRoutine(ctx, routineID)
	if err != nil {
		return routinefile.Document{}, err
	}
	tree, err := deps.RoutineStore.LoadTree(ctx, routineID)
	if err != nil {
		return routinefile.Document{}, err
	}
	return routinefile.Document{Routine: r, Tree: tree}, nil
}
