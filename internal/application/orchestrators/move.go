package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"routines/internal/domain/routine"
)

// --- Move Item ---

// MoveItemInput carries input for a direct move, e.g. from keyboard reordering.
type MoveItemInput struct {
	RoutineID     string
	SourceID      string
	DestinationID string // item id (insert before), container id or root zone (append)
	IntoGroup     bool   // treat DestinationID as a group and append into it
}

// MoveItemDeps holds dependencies for MoveItem.
type MoveItemDeps struct {
	RoutineStore RoutineStoreForOrchestrator
	Now          func() time.Time
}

// ExecuteMoveItem applies a single move without a drag session.
// Invalid moves leave the routine unchanged and report Changed=false.
// PRE: RoutineID names an existing routine
// POST: the stored tree equals the engine's result; version bumped only on change
func ExecuteMoveItem(ctx context.Context, input MoveItemInput, deps MoveItemDeps) (TreeResult, error) {
	res, err := mutateTree(ctx, deps.RoutineStore, input.RoutineID, deps.Now, func(tree routine.Tree) (routine.Tree, error) {
		if input.IntoGroup {
			return routine.MoveToContainer(tree, input.SourceID, input.DestinationID), nil
		}
		return routine.Move(tree, input.SourceID, input.DestinationID), nil
	})
	if err != nil {
		return TreeResult{}, err
	}

	slog.Info("routine_event", "event", "item_moved", "routine_id", input.RoutineID, "source_id", input.SourceID, "destination_id", input.DestinationID, "changed", res.Changed)
	return res, nil
}
