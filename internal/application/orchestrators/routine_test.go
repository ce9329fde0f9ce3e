package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routines/internal/adapters/routinefile"
	"routines/internal/domain/exercise"
	"routines/internal/domain/routine"
)

// mockRoutineStore implements RoutineStoreForOrchestrator in memory.
type mockRoutineStore struct {
	routines map[string]routine.Routine
	trees    map[string]routine.Tree
	replaces int

	// beforeReplace, if set, runs once before the next ReplaceTree to simulate
	// a concurrent writer.
	beforeReplace func(m *mockRoutineStore)
}

func newMockRoutineStore() *mockRoutineStore {
	return &mockRoutineStore{
		routines: make(map[string]routine.Routine),
		trees:    make(map[string]routine.Tree),
	}
}

func (m *mockRoutineStore) SaveRoutine(_ context.Context, r routine.Routine) error {
	if existing, ok := m.routines[r.ID]; ok {
		r.Version = existing.Version
	}
	m.routines[r.ID] = r
	return nil
}

func (m *mockRoutineStore) GetRoutine(_ context.Context, id string) (routine.Routine, error) {
	r, ok := m.routines[id]
	if !ok {
		return routine.Routine{}, routine.ErrRoutineNotFound
	}
	return r, nil
}

func (m *mockRoutineStore) LoadTree(_ context.Context, id string) (routine.Tree, error) {
	if _, ok := m.routines[id]; !ok {
		return nil, routine.ErrRoutineNotFound
	}
	return m.trees[id].Clone(), nil
}

func (m *mockRoutineStore) ReplaceTree(_ context.Context, id string, tree routine.Tree, expected int, now time.Time) (int, error) {
	if hook := m.beforeReplace; hook != nil {
		m.beforeReplace = nil
		hook(m)
	}
	r, ok := m.routines[id]
	if !ok {
		return 0, routine.ErrRoutineNotFound
	}
	if r.Version != expected {
		return 0, routine.ErrVersionConflict
	}
	r.Version++
	r.UpdatedAt = now
	m.routines[id] = r
	m.trees[id] = tree.Clone()
	m.replaces++
	return r.Version, nil
}

// put stores tree directly as a concurrent writer would.
func (m *mockRoutineStore) put(id string, tree routine.Tree) {
	r := m.routines[id]
	r.Version++
	m.routines[id] = r
	m.trees[id] = tree.Clone()
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// sequentialIDs returns a generator yielding id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func leaf(key string) routine.Leaf {
	return routine.Leaf{Exercise: exercise.Exercise{ID: key, Name: "Exercise " + key, Sets: 3, Reps: 10}}
}

func group(key string, children ...routine.Leaf) routine.Group {
	if children == nil {
		children = []routine.Leaf{}
	}
	return routine.Group{Key: key, Name: "Group " + key, Children: children}
}

// seed stores routine r1 with tree at version 0.
func seed(m *mockRoutineStore, tree routine.Tree) {
	m.routines["r1"] = routine.Routine{ID: "r1", Name: "Push day", CreatedAt: fixedTime, UpdatedAt: fixedTime}
	m.trees["r1"] = tree.Clone()
}

func TestExecuteCreateRoutine(t *testing.T) {
	store := newMockRoutineStore()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	r, err := ExecuteCreateRoutine(context.Background(), CreateRoutineInput{Name: "Push day", Day: day}, CreateRoutineDeps{
		RoutineStore: store,
		GenerateID:   fixedID,
		Now:          fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "test-id-001", r.ID)
	assert.Equal(t, 0, r.Version)
	assert.Equal(t, day, r.Day)
	assert.Equal(t, fixedTime, r.CreatedAt)
	assert.Contains(t, store.routines, "test-id-001")
}

func TestExecuteCreateRoutine_EmptyName(t *testing.T) {
	store := newMockRoutineStore()
	_, err := ExecuteCreateRoutine(context.Background(), CreateRoutineInput{Name: "  "}, CreateRoutineDeps{
		RoutineStore: store,
		GenerateID:   fixedID,
		Now:          fixedNow,
	})
	assert.ErrorIs(t, err, routine.ErrEmptyName)
	assert.Empty(t, store.routines)
}

func TestExecuteAddExercise(t *testing.T) {
	store := newMockRoutineStore()
	seed(store, routine.Tree{leaf("a"), group("g")})
	deps := AddExerciseDeps{RoutineStore: store, GenerateID: sequentialIDs(), Now: fixedNow}

	res, err := ExecuteAddExercise(context.Background(), AddExerciseInput{RoutineID: "r1", Name: "Squat", Sets: 5, Reps: 5}, deps)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Routine.Version)
	require.Len(t, res.Tree, 3)
	assert.Equal(t, "id-1", res.Tree[2].(routine.Leaf).Exercise.ID)

	res, err = ExecuteAddExercise(context.Background(), AddExerciseInput{RoutineID: "r1", GroupID: "root-group-g", Name: "Dips"}, deps)
	require.NoError(t, err)
	g := res.Tree[1].(routine.Group)
	require.Len(t, g.Children, 1)
	assert.Equal(t, "id-2", g.Children[0].Exercise.ID)
	assert.Equal(t, 2, store.routines["r1"].Version)

	// A container id addresses the same group.
	res, err = ExecuteAddExercise(context.Background(), AddExerciseInput{RoutineID: "r1", GroupID: routine.ContainerID("root-group-g"), Name: "Flyes"}, deps)
	require.NoError(t, err)
	assert.Len(t, res.Tree[1].(routine.Group).Children, 2)
}

func TestExecuteAddExercise_Errors(t *testing.T) {
	store := newMockRoutineStore()
	seed(store, routine.Tree{leaf("a")})
	deps := AddExerciseDeps{RoutineStore: store, GenerateID: fixedID, Now: fixedNow}
	ctx := context.Background()

	_, err := ExecuteAddExercise(ctx, AddExerciseInput{RoutineID: "r1"}, deps)
	assert.ErrorIs(t, err, exercise.ErrEmptyName)

	_, err = ExecuteAddExercise(ctx, AddExerciseInput{RoutineID: "r1", GroupID: "root-exercise-a", Name: "x"}, deps)
	assert.ErrorIs(t, err, ErrItemNotFound, "a leaf is not a group")

	_, err = ExecuteAddExercise(ctx, AddExerciseInput{RoutineID: "missing", Name: "x"}, deps)
	assert.ErrorIs(t, err, routine.ErrRoutineNotFound)

	assert.Zero(t, store.replaces)
}

func TestExecuteAddGroup(t *testing.T) {
	store := newMockRoutineStore()
	seed(store, routine.Tree{leaf("a")})

	res, err := ExecuteAddGroup(context.Background(), AddGroupInput{RoutineID: "r1", Name: "Superset A", Superset: true}, AddGroupDeps{
		RoutineStore: store,
		GenerateID:   fixedID,
		Now:          fixedNow,
	})
	require.NoError(t, err)
	require.Len(t, res.Tree, 2)
	g := res.Tree[1].(routine.Group)
	assert.Equal(t, "test-id-001", g.Key)
	assert.True(t, g.Superset)

	_, err = ExecuteAddGroup(context.Background(), AddGroupInput{RoutineID: "r1"}, AddGroupDeps{RoutineStore: store, GenerateID: fixedID, Now: fixedNow})
	assert.ErrorIs(t, err, routine.ErrEmptyGroupName)
}

func TestExecuteRemoveItem(t *testing.T) {
	store := newMockRoutineStore()
	seed(store, routine.Tree{leaf("a"), group("g", leaf("b"), leaf("c")), leaf("d")})
	deps := RemoveItemDeps{RoutineStore: store, Now: fixedNow}
	ctx := context.Background()

	res, err := ExecuteRemoveItem(ctx, RemoveItemInput{RoutineID: "r1", ItemID: "root-group-g-exercise-b"}, deps)
	require.NoError(t, err)
	assert.True(t, routine.Equal(routine.Tree{leaf("a"), group("g", leaf("c")), leaf("d")}, res.Tree))

	res, err = ExecuteRemoveItem(ctx, RemoveItemInput{RoutineID: "r1", ItemID: "root-group-g"}, deps)
	require.NoError(t, err)
	assert.True(t, routine.Equal(routine.Tree{leaf("a"), leaf("d")}, res.Tree))
	assert.Equal(t, 2, res.Routine.Version)

	_, err = ExecuteRemoveItem(ctx, RemoveItemInput{RoutineID: "r1", ItemID: "root-group-g"}, deps)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMutateTree_RetriesOnceAfterConflict(t *testing.T) {
	store := newMockRoutineStore()
	seed(store, routine.Tree{leaf("a")})
	store.beforeReplace = func(m *mockRoutineStore) { m.put("r1", routine.Tree{leaf("a"), leaf("z")}) }

	res, err := ExecuteAddExercise(context.Background(), AddExerciseInput{RoutineID: "r1", Name: "Row"}, AddExerciseDeps{
		RoutineStore: store,
		GenerateID:   fixedID,
		Now:          fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Routine.Version)
	require.Len(t, res.Tree, 3, "the concurrent write is kept")
	assert.Equal(t, "z", res.Tree[1].(routine.Leaf).Exercise.ID)
}

func TestMutateTree_GivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newMockRoutineStore()
	seed(store, routine.Tree{leaf("a")})
	var hook func(m *mockRoutineStore)
	hook = func(m *mockRoutineStore) {
		m.put("r1", m.trees["r1"])
		m.beforeReplace = hook
	}
	store.beforeReplace = hook

	_, err := ExecuteAddExercise(context.Background(), AddExerciseInput{RoutineID: "r1", Name: "Row"}, AddExerciseDeps{
		RoutineStore: store,
		GenerateID:   fixedID,
		Now:          fixedNow,
	})
	assert.ErrorIs(t, err, routine.ErrVersionConflict)
	assert.Zero(t, store.replaces)
}

func TestExecuteImportRoutine_CreatesAndReplaces(t *testing.T) {
	store := newMockRoutineStore()
	deps := ImportRoutineDeps{RoutineStore: store, GenerateID: sequentialIDs(), Now: fixedNow}
	doc := routinefile.Document{
		Routine: routine.Routine{Name: "Legs"},
		Tree: routine.Tree{
			routine.Leaf{Exercise: exercise.Exercise{Name: "Squat"}},
			routine.Group{Name: "Finisher", Children: []routine.Leaf{{Exercise: exercise.Exercise{TemplateID: "tpl-lunge", Name: "Lunge"}}}},
		},
	}

	res, err := ExecuteImportRoutine(context.Background(), ImportRoutineInput{Document: doc}, deps)
	require.NoError(t, err)
	assert.Equal(t, "id-3", res.Routine.ID)
	assert.Equal(t, 1, res.Routine.Version)
	assert.Equal(t, "id-1", res.Tree[0].(routine.Leaf).Exercise.ID)
	g := res.Tree[1].(routine.Group)
	assert.Equal(t, "id-2", g.Key)
	assert.Equal(t, "", g.Children[0].Exercise.ID, "template references keep their natural key")

	// Re-importing under the same ID replaces the tree and keeps CreatedAt.
	doc.Routine.ID = "id-3"
	doc.Tree = routine.Tree{leaf("x")}
	res, err = ExecuteImportRoutine(context.Background(), ImportRoutineInput{Document: doc}, deps)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Routine.Version)
	assert.True(t, routine.Equal(routine.Tree{leaf("x")}, store.trees["id-3"]))
	assert.Equal(t, fixedTime, store.routines["id-3"].CreatedAt)
	assert.Len(t, store.routines, 1)
}

func TestExecuteImportRoutine_InvalidTree(t *testing.T) {
	store := newMockRoutineStore()
	doc := routinefile.Document{
		Routine: routine.Routine{Name: "Legs"},
		Tree:    routine.Tree{routine.Group{}},
	}
	_, err := ExecuteImportRoutine(context.Background(), ImportRoutineInput{Document: doc}, ImportRoutineDeps{
		RoutineStore: store, GenerateID: fixedID, Now: fixedNow,
	})
	assert.ErrorIs(t, err, routine.ErrEmptyGroupName)
	assert.Empty(t, store.routines)
}

func TestExecuteExportRoutine(t *testing.T) {
	store := newMockRoutineStore()
	seed(store, routine.Tree{leaf("a")})

	doc, err := ExecuteExportRoutine(context.Background(), "r1", ExportRoutineDeps{RoutineStore: store})
	require.NoError(t, err)
	assert.Equal(t, "Push day", doc.Routine.Name)
	assert.True(t, routine.Equal(routine.Tree{leaf("a")}, doc.Tree))

	_, err = ExecuteExportRoutine(context.Background(), "nope", ExportRoutineDeps{RoutineStore: store})
	assert.True(t, errors.Is(err, routine.ErrRoutineNotFound))
}
