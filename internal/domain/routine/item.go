package routine

import "routines/internal/domain/exercise"

// Item is one top-level entry of a Tree. It is either a Leaf or a Group;
// the unexported marker method keeps the set closed.
type Item interface {
	isItem()
}

// Leaf is a childless item wrapping one exercise.
type Leaf struct {
	Exercise exercise.Exercise
}

// Group is an ordered container of leaves (a superset or circuit).
// Children holds Leaf values only, so a Group can never nest another Group.
type Group struct {
	Key      string // stable caller-supplied identifier, may be empty for legacy data
	Name     string
	Superset bool
	Notes    string // markdown
	Children []Leaf
}

func (Leaf) isItem()  {}
func (Group) isItem() {}

// Tree is the ordered top-level sequence of one routine.
// Trees are replaced wholesale, never mutated in place.
type Tree []Item

// Clone returns a structurally independent copy of the tree.
// PRE: none
// POST: mutating the copy's slices never affects t
func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for i, it := range t {
		if g, ok := it.(Group); ok {
			children := make([]Leaf, len(g.Children))
			copy(children, g.Children)
			g.Children = children
			out[i] = g
			continue
		}
		out[i] = it
	}
	return out
}

// Equal reports whether a and b have the same structure and payloads.
// Nil and empty child lists are considered equal.
func Equal(a, b Tree) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		switch av := a[i].(type) {
		case Leaf:
			bv, ok := b[i].(Leaf)
			if !ok || av.Exercise != bv.Exercise {
				return false
			}
		case Group:
			bv, ok := b[i].(Group)
			if !ok || !groupsEqual(av, bv) {
				return false
			}
		default:
			if b[i] != nil {
				return false
			}
		}
	}
	return true
}

func groupsEqual(a, b Group) bool {
	if a.Key != b.Key || a.Name != b.Name || a.Superset != b.Superset || a.Notes != b.Notes {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if a.Children[i].Exercise != b.Children[i].Exercise {
			return false
		}
	}
	return true
}

// LeafCount returns the number of leaves at every level of the tree.
func (t Tree) LeafCount() int {
	n := 0
	for _, it := range t {
		switch v := it.(type) {
		case Leaf:
			n++
		case Group:
			n += len(v.Children)
		}
	}
	return n
}
