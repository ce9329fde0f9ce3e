package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"routines/internal/adapters/http/perf"
	"routines/internal/adapters/routinefile"
	"routines/internal/application/orchestrators"
	"routines/internal/application/projections"
	"routines/internal/domain/routine"
)

// treeResponse is the routine tree projection after a mutation.
type treeResponse struct {
	projections.RoutineTreeResult
	Changed bool `json:"changed"`
}

func newTreeResponse(res orchestrators.TreeResult) treeResponse {
	return treeResponse{
		RoutineTreeResult: projections.BuildRoutineTree(res.Routine, res.Tree, renderNotes),
		Changed:           res.Changed,
	}
}

// handleRoutines handles GET (list) and POST (create) for /api/routines
func handleRoutines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		list, err := projections.QueryListRoutines(ctx, stores.RoutineStore)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case "POST":
		var input struct {
			Name string `json:"name"`
			Day  string `json:"day"`
		}
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		day, err := parseDay(input.Day)
		if err != nil {
			http.Error(w, "invalid day format (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}

		rt, err := orchestrators.ExecuteCreateRoutine(ctx, orchestrators.CreateRoutineInput{
			Name: input.Name,
			Day:  day,
		}, orchestrators.CreateRoutineDeps{
			RoutineStore: stores.RoutineStore,
			GenerateID:   generateID,
			Now:          timeNow,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, projections.BuildRoutineTree(rt, routine.Tree{}, renderNotes))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleRoutineTree returns the flattened tree (GET /api/routines/tree?routine_id=)
func handleRoutineTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("routine_id")
	if id == "" {
		http.Error(w, "routine_id is required", http.StatusBadRequest)
		return
	}

	res, err := projections.QueryGetRoutineTree(r.Context(), projections.GetRoutineTreeQuery{RoutineID: id}, projections.GetRoutineTreeDeps{
		RoutineStore: stores.RoutineStore,
		RenderNotes:  renderNotes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRoutineExport returns the routine as a YAML document (GET /api/routines/export?routine_id=)
func handleRoutineExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("routine_id")
	if id == "" {
		http.Error(w, "routine_id is required", http.StatusBadRequest)
		return
	}

	doc, err := orchestrators.ExecuteExportRoutine(r.Context(), id, orchestrators.ExportRoutineDeps{RoutineStore: stores.RoutineStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.yaml"`)
	if err := routinefile.Encode(w, doc); err != nil {
		internalError(w, err)
	}
}

// handleRoutineExercises adds an exercise (POST /api/routines/exercises)
func handleRoutineExercises(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var input struct {
		RoutineID  string `json:"routine_id"`
		GroupID    string `json:"group_id"`
		TemplateID string `json:"template_id"`
		Name       string `json:"name"`
		Sets       int    `json:"sets"`
		Reps       int    `json:"reps"`
		Notes      string `json:"notes"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	res, err := orchestrators.ExecuteAddExercise(r.Context(), orchestrators.AddExerciseInput{
		RoutineID:  input.RoutineID,
		GroupID:    input.GroupID,
		TemplateID: input.TemplateID,
		Name:       input.Name,
		Sets:       input.Sets,
		Reps:       input.Reps,
		Notes:      input.Notes,
	}, orchestrators.AddExerciseDeps{
		RoutineStore: stores.RoutineStore,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTreeResponse(res))
}

// handleRoutineGroups adds a group (POST /api/routines/groups)
func handleRoutineGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var input struct {
		RoutineID string `json:"routine_id"`
		Name      string `json:"name"`
		Superset  bool   `json:"superset"`
		Notes     string `json:"notes"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	res, err := orchestrators.ExecuteAddGroup(r.Context(), orchestrators.AddGroupInput{
		RoutineID: input.RoutineID,
		Name:      input.Name,
		Superset:  input.Superset,
		Notes:     input.Notes,
	}, orchestrators.AddGroupDeps{
		RoutineStore: stores.RoutineStore,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTreeResponse(res))
}

// handleRoutineItems removes an exercise or group (DELETE /api/routines/items)
// PRE: routine_id and item_id come from a JSON body or, when the body is empty, the query string
// POST: 200 with the resulting tree
func handleRoutineItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != "DELETE" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var input struct {
		RoutineID string `json:"routine_id"`
		ItemID    string `json:"item_id"`
	}
	// An empty body falls back to ?routine_id=&item_id=.
	if err := strictDecode(r, &input); errors.Is(err, io.EOF) {
		q := r.URL.Query()
		input.RoutineID = q.Get("routine_id")
		input.ItemID = q.Get("item_id")
	} else if err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	res, err := orchestrators.ExecuteRemoveItem(r.Context(), orchestrators.RemoveItemInput{
		RoutineID: input.RoutineID,
		ItemID:    input.ItemID,
	}, orchestrators.RemoveItemDeps{
		RoutineStore: stores.RoutineStore,
		Now:          timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTreeResponse(res))
}

// handleRoutineDrop applies one completed drag (POST /api/routines/drop)
// PRE: body names the dragged item and the last overlap candidates measured by the view
// POST: 200 with the resulting tree; changed=false when the drop was a no-op
func handleRoutineDrop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var input struct {
		RoutineID string `json:"routine_id"`
		ActiveID  string `json:"active_id"`
		TargetID  string `json:"target_id"`
		Pointer   struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"pointer"`
		Inside  []string `json:"inside"`
		Nearest []string `json:"nearest"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if input.RoutineID == "" || input.ActiveID == "" {
		http.Error(w, "routine_id and active_id are required", http.StatusBadRequest)
		return
	}

	res, err := orchestrators.ExecuteApplyDrop(r.Context(), orchestrators.ApplyDropInput{
		RoutineID:  input.RoutineID,
		ActiveID:   input.ActiveID,
		TargetID:   input.TargetID,
		Pointer:    routine.Point{X: input.Pointer.X, Y: input.Pointer.Y},
		Candidates: routine.Candidates{Inside: input.Inside, Nearest: input.Nearest},
	}, orchestrators.ApplyDropDeps{
		RoutineStore: stores.RoutineStore,
		Now:          timeNow,
		Observe: func(outcome string, elapsed time.Duration) {
			perfCollector.Record(perf.Entry{
				Kind:       perf.KindDrop,
				Path:       outcome,
				DurationMs: float64(elapsed.Microseconds()) / 1000.0,
				Timestamp:  timeNow(),
			})
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		treeResponse
		TargetID string `json:"target_id,omitempty"`
	}{newTreeResponse(res.TreeResult), res.TargetID})
}

// handleRoutineMove applies a direct move (POST /api/routines/move)
func handleRoutineMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var input struct {
		RoutineID     string `json:"routine_id"`
		SourceID      string `json:"source_id"`
		DestinationID string `json:"destination_id"`
		IntoGroup     bool   `json:"into_group"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	res, err := orchestrators.ExecuteMoveItem(r.Context(), orchestrators.MoveItemInput{
		RoutineID:     input.RoutineID,
		SourceID:      input.SourceID,
		DestinationID: input.DestinationID,
		IntoGroup:     input.IntoGroup,
	}, orchestrators.MoveItemDeps{
		RoutineStore: stores.RoutineStore,
		Now:          timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTreeResponse(res))
}
