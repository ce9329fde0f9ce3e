package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"routines/internal/adapters/http/perf"
	"routines/internal/adapters/storage"
	routineStore "routines/internal/adapters/storage/routine"
	"routines/internal/application/projections"
)

func newTestServer(t *testing.T) (http.Handler, *perf.Collector) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.InitDB(db))

	collector := perf.NewCollector(1000)
	s := &Stores{RoutineStore: routineStore.NewSQLiteStore(storage.NewTimedDB(db, collector, 0))}
	h := NewMux(t.Context(), s, collector, Options{
		CSRFKey:            make([]byte, 32),
		RateLimitPerSecond: 1000,
	})
	return h, collector
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// itemID returns the flat id of the row named name.
func itemID(t *testing.T, res projections.RoutineTreeResult, name string) string {
	t.Helper()
	for _, it := range res.Items {
		if it.Name == name {
			return it.ID
		}
	}
	t.Fatalf("no item named %q in %+v", name, res.Items)
	return ""
}

func createRoutine(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := doJSON(t, h, "POST", "/api/routines", map[string]any{"name": "Push day", "day": "2026-03-02"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[projections.RoutineTreeResult](t, rr).RoutineID
}

func addExercise(t *testing.T, h http.Handler, routineID, name string) treeResponse {
	t.Helper()
	rr := doJSON(t, h, "POST", "/api/routines/exercises", map[string]any{
		"routine_id": routineID, "name": name, "sets": 3, "reps": 8,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[treeResponse](t, rr)
}

func TestRoutinesAPI_CreateAndList(t *testing.T) {
	h, _ := newTestServer(t)
	id := createRoutine(t, h)
	assert.NotEmpty(t, id)

	rr := doJSON(t, h, "GET", "/api/routines", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]projections.RoutineSummary](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, projections.RoutineSummary{ID: id, Name: "Push day", Day: "2026-03-02"}, list[0])
}

func TestRoutinesAPI_CreateRejectsBadInput(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"empty name", map[string]any{"name": " "}},
		{"bad day", map[string]any{"name": "Legs", "day": "02/03/2026"}},
		{"unknown field", map[string]any{"name": "Legs", "color": "red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, "POST", "/api/routines", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestRoutinesAPI_DropReordersAndPersists(t *testing.T) {
	h, collector := newTestServer(t)
	rid := createRoutine(t, h)
	addExercise(t, h, rid, "Bench")
	res := addExercise(t, h, rid, "Dips")
	bench := itemID(t, res.RoutineTreeResult, "Bench")
	dips := itemID(t, res.RoutineTreeResult, "Dips")
	assert.Equal(t, 2, res.Version)

	rr := doJSON(t, h, "POST", "/api/routines/drop", map[string]any{
		"routine_id": rid,
		"active_id":  dips,
		"pointer":    map[string]any{"x": 10, "y": 5},
		"nearest":    []string{bench, dips},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var dropped struct {
		treeResponse
		TargetID string `json:"target_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dropped))
	assert.True(t, dropped.Changed)
	assert.Equal(t, bench, dropped.TargetID)
	assert.Equal(t, []string{dips, bench}, dropped.TopLevelIDs)
	assert.Equal(t, 3, dropped.Version)

	rr = doJSON(t, h, "GET", "/api/routines/tree?routine_id="+rid, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{dips, bench}, decodeBody[projections.RoutineTreeResult](t, rr).TopLevelIDs)

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	assert.Equal(t, 1, snap.Drops.Count)
	require.Len(t, snap.DropOutcomes, 1)
	assert.Equal(t, "committed", snap.DropOutcomes[0].Path)
}

func TestRoutinesAPI_DropWithoutTargetIsNoOp(t *testing.T) {
	h, _ := newTestServer(t)
	rid := createRoutine(t, h)
	res := addExercise(t, h, rid, "Bench")

	rr := doJSON(t, h, "POST", "/api/routines/drop", map[string]any{
		"routine_id": rid,
		"active_id":  itemID(t, res.RoutineTreeResult, "Bench"),
	})
	require.Equal(t, http.StatusOK, rr.Code)
	out := decodeBody[treeResponse](t, rr)
	assert.False(t, out.Changed)
	assert.Equal(t, 1, out.Version)
}

func TestRoutinesAPI_GroupDropMoveAndRemove(t *testing.T) {
	h, _ := newTestServer(t)
	rid := createRoutine(t, h)
	addExercise(t, h, rid, "Bench")
	addExercise(t, h, rid, "Fly")

	rr := doJSON(t, h, "POST", "/api/routines/groups", map[string]any{"routine_id": rid, "name": "Superset A", "superset": true})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decodeBody[treeResponse](t, rr)
	require.Len(t, res.Groups, 1)
	container := res.Groups[0].ContainerID
	group := res.Groups[0].GroupID
	bench := itemID(t, res.RoutineTreeResult, "Bench")
	fly := itemID(t, res.RoutineTreeResult, "Fly")

	// Pointer inside the empty group's container demotes the exercise into it.
	rr = doJSON(t, h, "POST", "/api/routines/drop", map[string]any{
		"routine_id": rid,
		"active_id":  bench,
		"inside":     []string{container, "root-zone"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res = decodeBody[treeResponse](t, rr)
	require.True(t, res.Changed)
	require.Len(t, res.Groups[0].ItemIDs, 1)
	nestedBench := res.Groups[0].ItemIDs[0]
	assert.Equal(t, group+"-exercise-", nestedBench[:len(group)+len("-exercise-")])

	// Keyboard path: move Fly into the group, appended after Bench.
	rr = doJSON(t, h, "POST", "/api/routines/move", map[string]any{
		"routine_id": rid, "source_id": fly, "destination_id": group, "into_group": true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res = decodeBody[treeResponse](t, rr)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{group}, res.TopLevelIDs)
	require.Len(t, res.Groups[0].ItemIDs, 2)
	assert.Equal(t, nestedBench, res.Groups[0].ItemIDs[0])

	// A group onto its own child is rejected as a no-op.
	rr = doJSON(t, h, "POST", "/api/routines/move", map[string]any{
		"routine_id": rid, "source_id": group, "destination_id": nestedBench,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeBody[treeResponse](t, rr).Changed)

	rr = doJSON(t, h, "DELETE", "/api/routines/items", map[string]any{"routine_id": rid, "item_id": group})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res = decodeBody[treeResponse](t, rr)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.ExerciseCount)
}

func TestRoutinesAPI_RemoveItemByQuery(t *testing.T) {
	h, _ := newTestServer(t)
	rid := createRoutine(t, h)
	addExercise(t, h, rid, "Bench")
	res := addExercise(t, h, rid, "Fly")
	fly := itemID(t, res.RoutineTreeResult, "Fly")

	rr := doJSON(t, h, "DELETE", "/api/routines/items?routine_id="+rid+"&item_id="+fly, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decodeBody[treeResponse](t, rr)
	assert.True(t, out.Changed)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Bench", out.Items[0].Name)

	rr = doJSON(t, h, "DELETE", "/api/routines/items?routine_id="+rid+"&item_id=root-item-9", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutinesAPI_NotesRenderedAsHTML(t *testing.T) {
	h, _ := newTestServer(t)
	rid := createRoutine(t, h)

	rr := doJSON(t, h, "POST", "/api/routines/exercises", map[string]any{
		"routine_id": rid, "name": "Bench", "notes": "**pause** <script>x</script>",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	res := decodeBody[treeResponse](t, rr)
	require.Len(t, res.Items, 1)
	assert.Contains(t, res.Items[0].Notes, "<strong>pause</strong>")
	assert.NotContains(t, res.Items[0].Notes, "<script>")
}

func TestRoutinesAPI_Errors(t *testing.T) {
	h, collector := newTestServer(t)
	rid := createRoutine(t, h)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"tree without id", "GET", "/api/routines/tree", nil, http.StatusBadRequest},
		{"tree of unknown routine", "GET", "/api/routines/tree?routine_id=nope", nil, http.StatusNotFound},
		{"drop on unknown routine", "POST", "/api/routines/drop", map[string]any{"routine_id": "nope", "active_id": "x"}, http.StatusNotFound},
		{"drop without active id", "POST", "/api/routines/drop", map[string]any{"routine_id": rid}, http.StatusBadRequest},
		{"exercise into unknown group", "POST", "/api/routines/exercises", map[string]any{"routine_id": rid, "group_id": "nope", "name": "Row"}, http.StatusNotFound},
		{"exercise without name", "POST", "/api/routines/exercises", map[string]any{"routine_id": rid}, http.StatusBadRequest},
		{"group without name", "POST", "/api/routines/groups", map[string]any{"routine_id": rid}, http.StatusBadRequest},
		{"remove unknown item", "DELETE", "/api/routines/items", map[string]any{"routine_id": rid, "item_id": "root-item-9"}, http.StatusNotFound},
		{"wrong method", "PUT", "/api/routines/move", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	require.Len(t, snap.DropOutcomes, 1)
	assert.Equal(t, "failed", snap.DropOutcomes[0].Path)
}

func TestRoutinesAPI_ExportYAML(t *testing.T) {
	h, _ := newTestServer(t)
	rid := createRoutine(t, h)
	addExercise(t, h, rid, "Bench")

	rr := doJSON(t, h, "GET", "/api/routines/export?routine_id="+rid, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "name: Push day")
	assert.Contains(t, rr.Body.String(), "2026-03-02")
	assert.Contains(t, rr.Body.String(), "name: Bench")
}

func TestAdminPerf(t *testing.T) {
	h, _ := newTestServer(t)
	createRoutine(t, h)

	rr := doJSON(t, h, "GET", "/api/admin/perf?window=5m&top=3", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decodeBody[perf.Snapshot](t, rr)
	assert.Positive(t, snap.TotalRecorded)
	assert.GreaterOrEqual(t, snap.Requests.Count, 1)
	assert.NotEmpty(t, snap.SlowestQueries)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = doJSON(t, h, "GET", "/api/admin/perf?window=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
