// Package routinefile reads and writes routines as YAML documents.
//
// A document lists top-level items in display order. An item carrying a
// "group" key is a group; anything else is an exercise:
//
//	name: Push day
//	day: 2026-03-02
//	items:
//	  - name: Bench press
//	    sets: 5
//	    reps: 5
//	  - group: Superset A
//	    key: ss-a
//	    superset: true
//	    exercises:
//	      - name: Dips
//	        template_id: tpl-dips
package routinefile

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"routines/internal/domain/exercise"
	domain "routines/internal/domain/routine"
)

const dayFormat = "2006-01-02"

// ErrBadDay is returned when the day field is not YYYY-MM-DD.
var ErrBadDay = errors.New("day must be formatted YYYY-MM-DD")

// Document is a routine together with its tree.
type Document struct {
	Routine domain.Routine
	Tree    domain.Tree
}

type fileDoc struct {
	ID    string     `yaml:"id,omitempty"`
	Name  string     `yaml:"name"`
	Day   string     `yaml:"day,omitempty"`
	Items []fileItem `yaml:"items"`
}

type fileExercise struct {
	ID         string `yaml:"id,omitempty"`
	TemplateID string `yaml:"template_id,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Sets       int    `yaml:"sets,omitempty"`
	Reps       int    `yaml:"reps,omitempty"`
	Notes      string `yaml:"notes,omitempty"`
}

// fileItem is the union of both item shapes; Group is set only for groups.
type fileItem struct {
	fileExercise `yaml:",inline"`

	Group     string         `yaml:"group,omitempty"`
	Key       string         `yaml:"key,omitempty"`
	Superset  bool           `yaml:"superset,omitempty"`
	Exercises []fileExercise `yaml:"exercises,omitempty"`
}

func (e fileExercise) domain() exercise.Exercise {
	return exercise.Exercise{
		ID:         e.ID,
		TemplateID: e.TemplateID,
		Name:       e.Name,
		Sets:       e.Sets,
		Reps:       e.Reps,
		Notes:      e.Notes,
	}
}

func fromExercise(e exercise.Exercise) fileExercise {
	return fileExercise{
		ID:         e.ID,
		TemplateID: e.TemplateID,
		Name:       e.Name,
		Sets:       e.Sets,
		Reps:       e.Reps,
		Notes:      e.Notes,
	}
}

// Decode parses one YAML document. Unknown fields are rejected.
// The result is not validated; callers run domain validation before storing it.
// PRE: r yields a YAML document
// POST: returns the routine metadata and tree in file order
func Decode(r io.Reader) (Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f fileDoc
	if err := dec.Decode(&f); err != nil {
		return Document{}, fmt.Errorf("parse routine: %w", err)
	}

	doc := Document{Routine: domain.Routine{ID: f.ID, Name: f.Name}}
	if f.Day != "" {
		day, err := time.Parse(dayFormat, f.Day)
		if err != nil {
			return Document{}, fmt.Errorf("%w: %q", ErrBadDay, f.Day)
		}
		doc.Routine.Day = day
	}

	doc.Tree = make(domain.Tree, 0, len(f.Items))
	for i, it := range f.Items {
		if it.Group == "" {
			if len(it.Exercises) > 0 {
				return Document{}, fmt.Errorf("item %d: exercises listed without a group name", i)
			}
			doc.Tree = append(doc.Tree, domain.Leaf{Exercise: it.fileExercise.domain()})
			continue
		}
		if it.fileExercise != (fileExercise{Notes: it.Notes}) {
			return Document{}, fmt.Errorf("item %d: group %q carries exercise fields", i, it.Group)
		}
		g := domain.Group{
			Key:      it.Key,
			Name:     it.Group,
			Superset: it.Superset,
			Notes:    it.Notes,
			Children: make([]domain.Leaf, 0, len(it.Exercises)),
		}
		for _, e := range it.Exercises {
			g.Children = append(g.Children, domain.Leaf{Exercise: e.domain()})
		}
		doc.Tree = append(doc.Tree, g)
	}
	return doc, nil
}

// Encode writes doc as YAML.
// PRE: doc.Tree contains only Leaf and Group items
// POST: Decode of the output yields an equal tree
func Encode(w io.Writer, doc Document) error {
	f := fileDoc{
		ID:    doc.Routine.ID,
		Name:  doc.Routine.Name,
		Items: make([]fileItem, 0, len(doc.Tree)),
	}
	if !doc.Routine.Day.IsZero() {
		f.Day = doc.Routine.Day.Format(dayFormat)
	}
	for i, it := range doc.Tree {
		switch v := it.(type) {
		case domain.Leaf:
			f.Items = append(f.Items, fileItem{fileExercise: fromExercise(v.Exercise)})
		case domain.Group:
			fi := fileItem{
				fileExercise: fileExercise{Notes: v.Notes},
				Group:        v.Name,
				Key:          v.Key,
				Superset:     v.Superset,
			}
			for _, c := range v.Children {
				fi.Exercises = append(fi.Exercises, fromExercise(c.Exercise))
			}
			f.Items = append(f.Items, fi)
		default:
			return fmt.Errorf("item %d: %w", i, domain.ErrNilItem)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}
