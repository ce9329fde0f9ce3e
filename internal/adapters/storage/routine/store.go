package routine

import (
	"context"
	"time"

	domain "routines/internal/domain/routine"
)

// Store persists routines and their exercise trees.
type Store interface {
	// Routine metadata
	SaveRoutine(ctx context.Context, r domain.Routine) error
	GetRoutine(ctx context.Context, id string) (domain.Routine, error)
	ListRoutines(ctx context.Context) ([]domain.Routine, error)
	DeleteRoutine(ctx context.Context, id string) error

	// Tree
	LoadTree(ctx context.Context, routineID string) (domain.Tree, error)
	ReplaceTree(ctx context.Context, routineID string, tree domain.Tree, expectedVersion int, now time.Time) (int, error)
}
