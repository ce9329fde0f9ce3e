package exercise

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 100
	MaxNotesLength = 2000
)

// Domain errors
var (
	ErrEmptyName     = errors.New("exercise name cannot be empty")
	ErrNameTooLong   = errors.New("exercise name cannot exceed 100 characters")
	ErrNotesTooLong  = errors.New("exercise notes cannot exceed 2000 characters")
	ErrNegativeSets  = errors.New("sets cannot be negative")
	ErrNegativeReps  = errors.New("reps cannot be negative")
	ErrMissingSource = errors.New("exercise must reference a template or carry its own ID")
)

// Exercise is a single scheduled exercise, or a reference to an exercise template.
// It is the leaf payload of a routine tree.
// INVARIANT: the struct stays comparable with == so trees can be compared cheaply.
type Exercise struct {
	ID         string // set once the exercise has been persisted
	TemplateID string // library template this exercise was created from, if any
	Name       string
	Sets       int
	Reps       int
	Notes      string // markdown
}

// NaturalKey returns the exercise's own stable identifier.
// PRE: none
// POST: returns ID if set, else TemplateID, else ""
func (e Exercise) NaturalKey() string {
	if e.ID != "" {
		return e.ID
	}
	return e.TemplateID
}

// Validate checks if the Exercise has valid data.
// PRE: Exercise struct is populated
// POST: Returns nil if valid, error otherwise
func (e Exercise) Validate() error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(e.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	if e.Sets < 0 {
		return ErrNegativeSets
	}
	if e.Reps < 0 {
		return ErrNegativeReps
	}
	if e.NaturalKey() == "" {
		return ErrMissingSource
	}
	return nil
}
