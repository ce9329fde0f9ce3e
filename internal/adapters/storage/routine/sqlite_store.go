package routine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"routines/internal/adapters/storage"
	"routines/internal/domain/exercise"
	domain "routines/internal/domain/routine"
)

const (
	timeFormat = time.RFC3339
	dayFormat  = "2006-01-02"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
// PRE: db has been initialised with storage.InitDB
// POST: store is ready for use
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeFormat, s)
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dayFormat, s)
	return t
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dayFormat)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Routine metadata ---

// SaveRoutine inserts a routine or updates its name and day.
// The version is only written on insert; ReplaceTree owns it afterwards.
// PRE: r has a non-empty ID
// POST: routine is persisted
func (s *SQLiteStore) SaveRoutine(ctx context.Context, r domain.Routine) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routine (id, name, day, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, day=excluded.day, updated_at=excluded.updated_at`,
		r.ID, r.Name, formatDay(r.Day), r.Version, formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	return err
}

// GetRoutine retrieves a routine by ID.
// PRE: id is non-empty
// POST: returns the routine or domain.ErrRoutineNotFound
func (s *SQLiteStore) GetRoutine(ctx context.Context, id string) (domain.Routine, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, day, version, created_at, updated_at FROM routine WHERE id = ?`, id)
	r, err := scanRoutine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Routine{}, domain.ErrRoutineNotFound
	}
	return r, err
}

// ListRoutines returns all routines, most recent day first.
// PRE: none
// POST: returns all routines or empty slice
func (s *SQLiteStore) ListRoutines(ctx context.Context) ([]domain.Routine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, day, version, created_at, updated_at FROM routine ORDER BY day DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// DeleteRoutine removes a routine together with its tree.
// PRE: id is non-empty
// POST: routine, groups and exercises are removed
func (s *SQLiteStore) DeleteRoutine(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := clearTree(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM routine WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoutine(sc scanner) (domain.Routine, error) {
	var r domain.Routine
	var day, createdAt, updatedAt string
	if err := sc.Scan(&r.ID, &r.Name, &day, &r.Version, &createdAt, &updatedAt); err != nil {
		return domain.Routine{}, err
	}
	r.Day = parseDay(day)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

// --- Tree ---

// LoadTree reads the routine's tree in display order.
// PRE: routineID is non-empty
// POST: returns the tree, or domain.ErrRoutineNotFound if the routine does not exist
func (s *SQLiteStore) LoadTree(ctx context.Context, routineID string) (domain.Tree, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routine WHERE id = ?`, routineID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domain.ErrRoutineNotFound
	}

	top := make(map[int]domain.Item)
	groupPos := make(map[int64]int)

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_id, group_key, name, superset, notes, position
		 FROM routine_group WHERE routine_id = ? ORDER BY position`, routineID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var rowID int64
		var g domain.Group
		var superset, position int
		if err := rows.Scan(&rowID, &g.Key, &g.Name, &superset, &g.Notes, &position); err != nil {
			rows.Close()
			return nil, err
		}
		g.Superset = superset != 0
		g.Children = []domain.Leaf{}
		top[position] = g
		groupPos[rowID] = position
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT group_row_id, position, exercise_id, template_id, name, sets, reps, notes
		 FROM routine_exercise WHERE routine_id = ? ORDER BY position`, routineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var groupRowID sql.NullInt64
		var position int
		var e exercise.Exercise
		if err := rows.Scan(&groupRowID, &position, &e.ID, &e.TemplateID, &e.Name, &e.Sets, &e.Reps, &e.Notes); err != nil {
			return nil, err
		}
		if !groupRowID.Valid {
			top[position] = domain.Leaf{Exercise: e}
			continue
		}
		gp, ok := groupPos[groupRowID.Int64]
		if !ok {
			return nil, fmt.Errorf("exercise at position %d references missing group %d", position, groupRowID.Int64)
		}
		g := top[gp].(domain.Group)
		g.Children = append(g.Children, domain.Leaf{Exercise: e})
		top[gp] = g
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tree := make(domain.Tree, 0, len(top))
	for _, pos := range slices.Sorted(maps.Keys(top)) {
		tree = append(tree, top[pos])
	}
	return tree, nil
}

// ReplaceTree stores tree as the routine's complete tree and bumps its version.
// The write is rejected when the stored version no longer equals expectedVersion.
// PRE: tree passes domain.ValidateTree
// POST: on success the stored tree equals tree and the new version is returned;
// on domain.ErrVersionConflict or domain.ErrRoutineNotFound nothing changes
func (s *SQLiteStore) ReplaceTree(ctx context.Context, routineID string, tree domain.Tree, expectedVersion int, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE routine SET version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		formatTime(now), routineID, expectedVersion)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM routine WHERE id = ?`, routineID).Scan(&exists); err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, domain.ErrRoutineNotFound
		}
		return 0, domain.ErrVersionConflict
	}

	if err := clearTree(ctx, tx, routineID); err != nil {
		return 0, err
	}
	for pos, it := range tree {
		switch v := it.(type) {
		case domain.Leaf:
			if err := insertExercise(ctx, tx, routineID, nil, pos, v.Exercise); err != nil {
				return 0, err
			}
		case domain.Group:
			res, err := tx.ExecContext(ctx,
				`INSERT INTO routine_group (routine_id, group_key, name, superset, notes, position)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				routineID, v.Key, v.Name, boolToInt(v.Superset), v.Notes, pos)
			if err != nil {
				return 0, err
			}
			groupRowID, err := res.LastInsertId()
			if err != nil {
				return 0, err
			}
			for i, child := range v.Children {
				if err := insertExercise(ctx, tx, routineID, &groupRowID, i, child.Exercise); err != nil {
					return 0, err
				}
			}
		default:
			return 0, fmt.Errorf("item %d: %w", pos, domain.ErrNilItem)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return expectedVersion + 1, nil
}

func clearTree(ctx context.Context, tx *sql.Tx, routineID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM routine_exercise WHERE routine_id = ?`, routineID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM routine_group WHERE routine_id = ?`, routineID)
	return err
}

func insertExercise(ctx context.Context, tx *sql.Tx, routineID string, groupRowID *int64, pos int, e exercise.Exercise) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO routine_exercise (routine_id, group_row_id, position, exercise_id, template_id, name, sets, reps, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		routineID, groupRowID, pos, e.ID, e.TemplateID, e.Name, e.Sets, e.Reps, e.Notes)
	return err
}
