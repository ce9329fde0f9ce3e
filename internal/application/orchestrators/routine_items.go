package orchestrators

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"routines/internal/domain/exercise"
	"routines/internal/domain/routine"
)

// --- Add Exercise ---

// AddExerciseInput carries input for the add exercise orchestrator.
type AddExerciseInput struct {
	RoutineID  string
	GroupID    string // flat id of the target group; empty appends at top level
	TemplateID string
	Name       string
	Sets       int
	Reps       int
	Notes      string
}

// AddExerciseDeps holds dependencies for AddExercise.
type AddExerciseDeps struct {
	RoutineStore RoutineStoreForOrchestrator
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteAddExercise appends a new exercise at the end of the top level or of a group.
// PRE: RoutineID names an existing routine; GroupID, if set, names a group in its tree
// POST: exercise persisted with a generated ID; returns the updated tree
func ExecuteAddExercise(ctx context.Context, input AddExerciseInput, deps AddExerciseDeps) (TreeResult, error) {
	e := exercise.Exercise{
		ID:         deps.GenerateID(),
		TemplateID: input.TemplateID,
		Name:       input.Name,
		Sets:       input.Sets,
		Reps:       input.Reps,
		Notes:      input.Notes,
	}
	if err := e.Validate(); err != nil {
		return TreeResult{}, err
	}

	res, err := mutateTree(ctx, deps.RoutineStore, input.RoutineID, deps.Now, func(tree routine.Tree) (routine.Tree, error) {
		next := tree.Clone()
		if input.GroupID == "" {
			return append(next, routine.Leaf{Exercise: e}), nil
		}
		gi, ok := groupIndex(tree, input.GroupID)
		if !ok {
			return nil, ErrItemNotFound
		}
		g := next[gi].(routine.Group)
		g.Children = append(g.Children, routine.Leaf{Exercise: e})
		next[gi] = g
		return next, nil
	})
	if err != nil {
		return TreeResult{}, err
	}

	slog.Info("routine_event", "event", "exercise_added", "routine_id", input.RoutineID, "exercise_id", e.ID, "group_id", input.GroupID)
	return res, nil
}

// groupIndex returns the top-level position of the group with flat id groupID.
// A container id is accepted in place of the group id.
func groupIndex(tree routine.Tree, groupID string) (int, bool) {
	idx := routine.NewIndex(tree)
	if gid, ok := idx.GroupOfContainer(groupID); ok {
		groupID = gid
	}
	e, ok := idx.Entry(groupID)
	if !ok || !e.IsGroup() {
		return 0, false
	}
	return e.Position, true
}

// --- Add Group ---

// AddGroupInput carries input for the add group orchestrator.
type AddGroupInput struct {
	RoutineID string
	Name      string
	Superset  bool
	Notes     string
}

// AddGroupDeps holds dependencies for AddGroup.
type AddGroupDeps struct {
	RoutineStore RoutineStoreForOrchestrator
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteAddGroup appends an empty group at the end of the top level.
// PRE: RoutineID names an existing routine; Name is non-empty
// POST: group persisted with a generated Key
func ExecuteAddGroup(ctx context.Context, input AddGroupInput, deps AddGroupDeps) (TreeResult, error) {
	g := routine.Group{
		Key:      deps.GenerateID(),
		Name:     input.Name,
		Superset: input.Superset,
		Notes:    input.Notes,
		Children: []routine.Leaf{},
	}
	if err := g.Validate(); err != nil {
		return TreeResult{}, err
	}

	res, err := mutateTree(ctx, deps.RoutineStore, input.RoutineID, deps.Now, func(tree routine.Tree) (routine.Tree, error) {
		return append(tree.Clone(), g), nil
	})
	if err != nil {
		return TreeResult{}, err
	}

	slog.Info("routine_event", "event", "group_added", "routine_id", input.RoutineID, "group_key", g.Key)
	return res, nil
}

// --- Remove Item ---

// RemoveItemInput carries input for the remove item orchestrator.
type RemoveItemInput struct {
	RoutineID string
	ItemID    string // flat id of an exercise or group
}

// RemoveItemDeps holds dependencies for RemoveItem.
type RemoveItemDeps struct {
	RoutineStore RoutineStoreForOrchestrator
	Now          func() time.Time
}

// ExecuteRemoveItem deletes one item. Removing a group removes its exercises.
// PRE: RoutineID names an existing routine
// POST: item gone from the stored tree; ErrItemNotFound if ItemID does not resolve
func ExecuteRemoveItem(ctx context.Context, input RemoveItemInput, deps RemoveItemDeps) (TreeResult, error) {
	res, err := mutateTree(ctx, deps.RoutineStore, input.RoutineID, deps.Now, func(tree routine.Tree) (routine.Tree, error) {
		idx := routine.NewIndex(tree)
		e, ok := idx.Entry(input.ItemID)
		if !ok {
			return nil, ErrItemNotFound
		}
		next := tree.Clone()
		if e.TopLevel() {
			return slices.Delete(next, e.Position, e.Position+1), nil
		}
		parent, _ := idx.Entry(e.ParentID)
		g := next[parent.Position].(routine.Group)
		g.Children = slices.Delete(g.Children, e.Position, e.Position+1)
		next[parent.Position] = g
		return next, nil
	})
	if err != nil {
		return TreeResult{}, err
	}

	slog.Info("routine_event", "event", "item_removed", "routine_id", input.RoutineID, "item_id", input.ItemID, "changed", res.Changed)
	return res, nil
}
