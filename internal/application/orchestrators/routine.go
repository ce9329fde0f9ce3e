package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"routines/internal/domain/routine"
)

// maxCommitAttempts bounds how often a tree change is re-applied after losing a
// race with another writer.
const maxCommitAttempts = 2

// ErrItemNotFound is returned when an item id does not resolve in the routine's tree.
var ErrItemNotFound = errors.New("item not found in routine")

// RoutineStoreForOrchestrator defines the store interface needed by routine orchestrators.
type RoutineStoreForOrchestrator interface {
	SaveRoutine(ctx context.Context, r routine.Routine) error
	GetRoutine(ctx context.Context, id string) (routine.Routine, error)
	LoadTree(ctx context.Context, routineID string) (routine.Tree, error)
	ReplaceTree(ctx context.Context, routineID string, tree routine.Tree, expectedVersion int, now time.Time) (int, error)
}

// TreeResult is a routine after a tree operation.
type TreeResult struct {
	Routine routine.Routine
	Tree    routine.Tree
	Changed bool
}

// --- Create Routine ---

// CreateRoutineInput carries input for the create routine orchestrator.
type CreateRoutineInput struct {
	Name string
	Day  time.Time // zero for an unscheduled routine
}

// CreateRoutineDeps holds dependencies for CreateRoutine.
type CreateRoutineDeps struct {
	RoutineStore RoutineStoreForOrchestrator
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteCreateRoutine creates an empty routine.
// PRE: Name is non-empty
// POST: routine persisted at version 0 with an empty tree
func ExecuteCreateRoutine(ctx context.Context, input CreateRoutineInput, deps CreateRoutineDeps) (routine.Routine, error) {
	now := deps.Now()
	r := routine.Routine{
		ID:        deps.GenerateID(),
		Name:      input.Name,
		Day:       input.Day,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Validate(); err != nil {
		return routine.Routine{}, err
	}
	if err := deps.RoutineStore.SaveRoutine(ctx, r); err != nil {
		return routine.Routine{}, err
	}

	slog.Info("routine_event", "event", "routine_created", "routine_id", r.ID, "name", r.Name)
	return r, nil
}

// mutateTree loads a routine's tree, applies fn and stores the result.
// fn returns a nil tree to signal that nothing changed. When another writer
// commits first, fn is applied again to the fresh tree.
// PRE: routineID is non-empty; fn does not mutate its argument
// POST: on Changed, the stored tree equals the returned tree and Version was bumped
func mutateTree(ctx context.Context, store RoutineStoreForOrchestrator, routineID string, now func() time.Time, fn func(routine.Tree) (routine.Tree, error)) (TreeResult, error) {
	for attempt := 1; ; attempt++ {
		r, err := store.GetRoutine(ctx, routineID)
		if err != nil {
			return TreeResult{}, err
		}
		tree, err := store.LoadTree(ctx, routineID)
		if err != nil {
			return TreeResult{}, err
		}

		next, err := fn(tree)
		if err != nil {
			return TreeResult{}, err
		}
		if next == nil || routine.Equal(next, tree) {
			return TreeResult{Routine: r, Tree: tree}, nil
		}
		if err := routine.ValidateTree(next); err != nil {
			return TreeResult{}, err
		}

		ts := now()
		version, err := store.ReplaceTree(ctx, routineID, next, r.Version, ts)
		if errors.Is(err, routine.ErrVersionConflict) && attempt < maxCommitAttempts {
			slog.Info("routine_event", "event", "commit_retried", "routine_id", routineID, "version", r.Version)
			continue
		}
		if err != nil {
			return TreeResult{}, fmt.Errorf("replace tree of %s: %w", routineID, err)
		}
		r.Version = version
		r.UpdatedAt = ts
		return TreeResult{Routine: r, Tree: next, Changed: true}, nil
	}
}
