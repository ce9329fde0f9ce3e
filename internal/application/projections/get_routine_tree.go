package projections

import (
	"context"

	"routines/internal/domain/routine"
)

// Item kinds reported in RoutineTreeItem.Kind.
const (
	KindExercise = "exercise"
	KindGroup    = "group"
)

// RoutineTreeStore defines the store interface needed by the routine tree projections.
type RoutineTreeStore interface {
	GetRoutine(ctx context.Context, id string) (routine.Routine, error)
	ListRoutines(ctx context.Context) ([]routine.Routine, error)
	LoadTree(ctx context.Context, routineID string) (routine.Tree, error)
}

// GetRoutineTreeQuery carries input for the routine tree projection.
type GetRoutineTreeQuery struct {
	RoutineID string
}

// GetRoutineTreeDeps holds dependencies for the routine tree projection.
type GetRoutineTreeDeps struct {
	RoutineStore RoutineTreeStore
	RenderNotes  func(markdown string) string // optional; notes are passed through when nil
}

// RoutineTreeItem is one flattened row of the tree as the view renders it.
type RoutineTreeItem struct {
	ID          string `json:"id"`
	ParentID    string `json:"parent_id,omitempty"`
	ContainerID string `json:"container_id,omitempty"` // groups only
	Position    int    `json:"position"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	ExerciseID  string `json:"exercise_id,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`
	Sets        int    `json:"sets,omitempty"`
	Reps        int    `json:"reps,omitempty"`
	Superset    bool   `json:"superset,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// RoutineTreeScope is the ordered id list of one sortable scope.
type RoutineTreeScope struct {
	GroupID     string   `json:"group_id"`
	ContainerID string   `json:"container_id"`
	ItemIDs     []string `json:"item_ids"`
}

// RoutineTreeResult carries the output of the routine tree projection.
type RoutineTreeResult struct {
	RoutineID     string             `json:"routine_id"`
	Name          string             `json:"name"`
	Day           string             `json:"day,omitempty"` // YYYY-MM-DD
	Version       int                `json:"version"`
	RootZoneID    string             `json:"root_zone_id"`
	TopLevelIDs   []string           `json:"top_level_ids"`
	Groups        []RoutineTreeScope `json:"groups"`
	Items         []RoutineTreeItem  `json:"items"`
	ExerciseCount int                `json:"exercise_count"`
}

// QueryGetRoutineTree flattens a routine's tree into display rows plus the
// per-scope id lists a sortable view needs.
// PRE: query.RoutineID names an existing routine
// POST: Items are in display order; every id is unique within the result
func QueryGetRoutineTree(ctx context.Context, query GetRoutineTreeQuery, deps GetRoutineTreeDeps) (RoutineTreeResult, error) {
	r, err := deps.RoutineStore.GetRoutine(ctx, query.RoutineID)
	if err != nil {
		return RoutineTreeResult{}, err
	}
	tree, err := deps.RoutineStore.LoadTree(ctx, query.RoutineID)
	if err != nil {
		return RoutineTreeResult{}, err
	}
	return BuildRoutineTree(r, tree, deps.RenderNotes), nil
}

// BuildRoutineTree builds the projection for an already loaded tree.
// PRE: tree is the current tree of r
// POST: as QueryGetRoutineTree
func BuildRoutineTree(r routine.Routine, tree routine.Tree, renderNotes func(string) string) RoutineTreeResult {
	if renderNotes == nil {
		renderNotes = func(s string) string { return s }
	}
	idx := routine.NewIndex(tree)
	result := RoutineTreeResult{
		RoutineID:     r.ID,
		Name:          r.Name,
		Version:       r.Version,
		RootZoneID:    routine.RootZoneID,
		TopLevelIDs:   idx.TopLevelIDs(),
		Groups:        []RoutineTreeScope{},
		Items:         make([]RoutineTreeItem, 0, idx.Len()),
		ExerciseCount: tree.LeafCount(),
	}
	if !r.Day.IsZero() {
		result.Day = r.Day.Format("2006-01-02")
	}

	for _, e := range idx.Entries() {
		row := RoutineTreeItem{ID: e.ID, ParentID: e.ParentID, Position: e.Position}
		switch v := e.Item.(type) {
		case routine.Leaf:
			row.Kind = KindExercise
			row.Name = v.Exercise.Name
			row.ExerciseID = v.Exercise.ID
			row.TemplateID = v.Exercise.TemplateID
			row.Sets = v.Exercise.Sets
			row.Reps = v.Exercise.Reps
			row.Notes = renderNotes(v.Exercise.Notes)
		case routine.Group:
			cid, _ := idx.ContainerOf(e.ID)
			row.Kind = KindGroup
			row.Name = v.Name
			row.ContainerID = cid
			row.Superset = v.Superset
			row.Notes = renderNotes(v.Notes)
			result.Groups = append(result.Groups, RoutineTreeScope{
				GroupID:     e.ID,
				ContainerID: cid,
				ItemIDs:     idx.GroupIDs(e.ID),
			})
		default:
			continue
		}
		result.Items = append(result.Items, row)
	}
	return result
}

// RoutineSummary is one row of the routine list.
type RoutineSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Day           string `json:"day,omitempty"`
	Version       int    `json:"version"`
	ExerciseCount int    `json:"exercise_count"`
}

// QueryListRoutines returns every routine with its exercise count, most recent day first.
// PRE: none
// POST: returns one summary per stored routine
func QueryListRoutines(ctx context.Context, store RoutineTreeStore) ([]RoutineSummary, error) {
	routines, err := store.ListRoutines(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoutineSummary, 0, len(routines))
	for _, r := range routines {
		tree, err := store.LoadTree(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		s := RoutineSummary{ID: r.ID, Name: r.Name, Version: r.Version, ExerciseCount: tree.LeafCount()}
		if !r.Day.IsZero() {
			s.Day = r.Day.Format("2006-01-02")
		}
		out = append(out, s)
	}
	return out, nil
}
