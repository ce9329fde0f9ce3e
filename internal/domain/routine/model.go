package routine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxRoutineNameLength = 100
	MaxGroupNameLength   = 100
)

// Domain errors
var (
	ErrEmptyName        = errors.New("routine name cannot be empty")
	ErrNameTooLong      = errors.New("routine name cannot exceed 100 characters")
	ErrEmptyGroupName   = errors.New("group name cannot be empty")
	ErrGroupNameTooLong = errors.New("group name cannot exceed 100 characters")
	ErrNilItem          = errors.New("tree contains an empty item")
	ErrRoutineNotFound  = errors.New("routine not found")
	ErrVersionConflict  = errors.New("routine was changed by another session")
)

// Routine is one editable list instance, e.g. the exercises scheduled for one day.
// INVARIANT: Version increases by one for every committed tree replacement.
type Routine struct {
	ID        string
	Name      string
	Day       time.Time // calendar day the routine is scheduled for (zero if unscheduled)
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks if the Routine has valid data.
// PRE: Routine struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Routine) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxRoutineNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Validate checks the group's display metadata.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (g Group) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrEmptyGroupName
	}
	if len(name) > MaxGroupNameLength {
		return ErrGroupNameTooLong
	}
	return nil
}

// ValidateTree checks every group and exercise in the tree.
// PRE: none
// POST: returns nil if valid, otherwise the first violation wrapped with its position
func ValidateTree(t Tree) error {
	for i, it := range t {
		switch v := it.(type) {
		case Leaf:
			if err := v.Exercise.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		case Group:
			if err := v.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			for j, child := range v.Children {
				if err := child.Exercise.Validate(); err != nil {
					return fmt.Errorf("item %d child %d: %w", i, j, err)
				}
			}
		default:
			return fmt.Errorf("item %d: %w", i, ErrNilItem)
		}
	}
	return nil
}
