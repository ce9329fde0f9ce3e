package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"routines/internal/domain/routine"
)

// Drop outcomes reported to ApplyDropDeps.Observe.
const (
	DropCommitted = "committed"
	DropNoOp      = "no_op"
	DropFailed    = "failed"
)

// --- Apply Drop ---

// ApplyDropInput is one complete drag reported by the view: the item picked up,
// the last overlap candidates measured while it moved, and an optional explicit
// target supplied on release.
type ApplyDropInput struct {
	RoutineID  string
	ActiveID   string
	TargetID   string // empty uses the highest ranked hovered target
	Pointer    routine.Point
	Candidates routine.Candidates
}

// ApplyDropDeps holds dependencies for ApplyDrop.
type ApplyDropDeps struct {
	RoutineStore RoutineStoreForOrchestrator
	Now          func() time.Time
	Observe      func(outcome string, elapsed time.Duration) // optional
}

// DropResult is the outcome of ApplyDrop.
type DropResult struct {
	TreeResult
	TargetID string // target the drop resolved to ("" if none)
}

// ExecuteApplyDrop replays a drag session against the stored tree and persists
// the committed tree.
// If another writer commits between load and store, the session is replayed
// with its targets measured against the tree the view saw and the drop applied
// to the fresh tree.
// PRE: RoutineID names an existing routine
// POST: Changed is true iff the drop moved an item; the stored version is bumped exactly then
func ExecuteApplyDrop(ctx context.Context, input ApplyDropInput, deps ApplyDropDeps) (DropResult, error) {
	start := time.Now()
	var target string
	var seen routine.Tree
	replayed := false

	res, err := mutateTree(ctx, deps.RoutineStore, input.RoutineID, deps.Now, func(tree routine.Tree) (routine.Tree, error) {
		var next routine.Tree
		if !replayed {
			replayed = true
			seen = tree
			next, target = replayDrop(tree, nil, input)
		} else {
			next, target = replayDrop(seen, tree, input)
		}
		return next, nil
	})

	outcome := DropNoOp
	switch {
	case err != nil:
		outcome = DropFailed
	case res.Changed:
		outcome = DropCommitted
	}
	if deps.Observe != nil {
		deps.Observe(outcome, time.Since(start))
	}
	if err != nil {
		return DropResult{}, err
	}

	if res.Changed {
		slog.Info("routine_event", "event", "drop_committed", "routine_id", input.RoutineID, "active_id", input.ActiveID, "target_id", target, "version", res.Routine.Version)
	} else {
		slog.Debug("routine_event", "event", "drop_ignored", "routine_id", input.RoutineID, "active_id", input.ActiveID, "target_id", target)
	}
	return DropResult{TreeResult: res, TargetID: target}, nil
}

// replayDrop runs one drag session on a controller built from base. When current
// is non-nil it replaces the tree after hovering, as a refresh during the drag would.
// Returns the committed tree (nil if the drop changed nothing) and the resolved target.
func replayDrop(base, current routine.Tree, input ApplyDropInput) (routine.Tree, string) {
	var committed routine.Tree
	ctrl := routine.NewController(base, func(t routine.Tree) { committed = t })

	ctrl.Start(input.ActiveID)
	hovered := ctrl.Move(input.Pointer, input.Candidates)
	slog.Debug("routine_event", "event", "drop_hover", "active_id", input.ActiveID, "hover", ctrl.Session().Hover)
	if current != nil {
		ctrl.Reload(current)
	}

	target := input.TargetID
	if target == "" {
		target = hovered
	}
	if !ctrl.End(input.ActiveID, input.TargetID) {
		return nil, target
	}
	return committed, target
}
