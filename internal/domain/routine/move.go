package routine

import (
	"slices"
	"strings"
)

// slot locates an item: group is the top-level index of its parent group, or -1 at top level.
type slot struct {
	group int
	index int
}

func slotOf(idx *Index, e FlatEntry) (slot, bool) {
	if e.ParentID == "" {
		return slot{group: -1, index: e.Position}, true
	}
	parent, ok := idx.Entry(e.ParentID)
	if !ok {
		return slot{}, false
	}
	return slot{group: parent.Position, index: e.Position}, true
}

type destKind int

const (
	destRootZone destKind = iota
	destContainer
	destItem
)

// destination is a resolved drop position in the current tree version.
type destination struct {
	kind  destKind
	group int // top-level index of the target group (container or nested item)
	entry FlatEntry
}

// Move returns a new tree with sourceID moved to destinationID.
// An item destination means "insert before it"; a group container or the root
// zone means "append to that scope". Invalid moves return an unchanged copy.
// PRE: none
// POST: result shares no slices with tree; leaves and groups are conserved
func Move(tree Tree, sourceID, destinationID string) Tree {
	return MoveWithHint(tree, sourceID, destinationID, nil)
}

// MoveWithHint is Move with recovery for a destination id missing from the
// current tree version. hint is the entry the destination pointed at when it was
// captured; a group is re-located by its Key, or by display name when exactly one
// group carries that name, and a leaf by its exercise's natural key.
// PRE: hint may be nil
// POST: as Move; an unrecoverable destination yields an unchanged copy
func MoveWithHint(tree Tree, sourceID, destinationID string, hint *FlatEntry) Tree {
	out := tree.Clone()
	if sourceID == "" || sourceID == destinationID {
		return out
	}
	idx := NewIndex(out)
	src, ok := idx.Entry(sourceID)
	if !ok {
		return out
	}
	from, ok := slotOf(idx, src)
	if !ok {
		return out
	}
	dst, ok := locate(idx, out, destinationID, hint)
	if !ok {
		return out
	}
	if dst.kind == destItem && dst.entry.ID == src.ID {
		return out
	}

	switch dst.kind {
	case destRootZone:
		return moveToTop(out, from, len(out))
	case destContainer:
		if src.IsGroup() {
			return out
		}
		return moveIntoGroup(out, from, dst.group, -1)
	case destItem:
		if dst.entry.ParentID == "" {
			return moveToTop(out, from, dst.entry.Position)
		}
		if src.IsGroup() {
			return out
		}
		return moveIntoGroup(out, from, dst.group, dst.entry.Position)
	}
	return out
}

// MoveToContainer appends sourceID to the end of a group. targetGroupID may be
// the group's id or its container id. Groups and direct children of the target
// are left where they are.
// PRE: none
// POST: result shares no slices with tree
func MoveToContainer(tree Tree, sourceID, targetGroupID string) Tree {
	out := tree.Clone()
	idx := NewIndex(out)
	src, ok := idx.Entry(sourceID)
	if !ok || src.IsGroup() {
		return out
	}
	if gid, ok := idx.GroupOfContainer(targetGroupID); ok {
		targetGroupID = gid
	}
	target, ok := idx.Entry(targetGroupID)
	if !ok || !target.IsGroup() || src.ParentID == target.ID {
		return out
	}
	from, ok := slotOf(idx, src)
	if !ok {
		return out
	}
	return moveIntoGroup(out, from, target.Position, -1)
}

func locate(idx *Index, tree Tree, id string, hint *FlatEntry) (destination, bool) {
	switch idx.Kind(id) {
	case KindRootZone:
		return destination{kind: destRootZone}, true
	case KindContainer:
		gid, _ := idx.GroupOfContainer(id)
		g, _ := idx.Entry(gid)
		return destination{kind: destContainer, group: g.Position, entry: g}, true
	case KindTopLevel:
		e, _ := idx.Entry(id)
		return destination{kind: destItem, group: -1, entry: e}, true
	case KindNested:
		e, _ := idx.Entry(id)
		parent, ok := idx.Entry(e.ParentID)
		if !ok {
			return destination{}, false
		}
		return destination{kind: destItem, group: parent.Position, entry: e}, true
	}
	return recoverDestination(idx, tree, id, hint)
}

// recoverDestination handles a resolution miss using the stale hint.
func recoverDestination(idx *Index, tree Tree, id string, hint *FlatEntry) (destination, bool) {
	if hint == nil {
		return destination{}, false
	}
	switch v := hint.Item.(type) {
	case Group:
		gi, ok := findGroup(tree, v)
		if !ok {
			return destination{}, false
		}
		g, ok := topLevelEntryAt(idx, gi)
		if !ok {
			return destination{}, false
		}
		if strings.HasSuffix(id, containerSuffix) {
			return destination{kind: destContainer, group: gi, entry: g}, true
		}
		return destination{kind: destItem, group: -1, entry: g}, true
	case Leaf:
		key := v.Exercise.NaturalKey()
		if key == "" {
			return destination{}, false
		}
		var match *FlatEntry
		for _, e := range idx.entries {
			leaf, ok := e.Item.(Leaf)
			if !ok || leaf.Exercise.NaturalKey() != key {
				continue
			}
			if match != nil {
				return destination{}, false
			}
			e := e
			match = &e
		}
		if match == nil {
			return destination{}, false
		}
		return locate(idx, tree, match.ID, nil)
	}
	return destination{}, false
}

// findGroup returns the top-level index of the group matching g by Key, or by
// name when g has no Key and exactly one group carries that name.
func findGroup(tree Tree, g Group) (int, bool) {
	found := -1
	for i, it := range tree {
		cand, ok := it.(Group)
		if !ok {
			continue
		}
		if g.Key != "" {
			if cand.Key == g.Key {
				return i, true
			}
			continue
		}
		if cand.Name != g.Name {
			continue
		}
		if found >= 0 {
			return -1, false
		}
		found = i
	}
	return found, found >= 0
}

func topLevelEntryAt(idx *Index, treeIndex int) (FlatEntry, bool) {
	for _, e := range idx.entries {
		if e.ParentID == "" && e.Position == treeIndex {
			return e, true
		}
	}
	return FlatEntry{}, false
}

// moveToTop removes the item at from and inserts it into the top-level
// sequence before index before (len(out) appends).
func moveToTop(out Tree, from slot, before int) Tree {
	if from.group < 0 {
		item := out[from.index]
		out = slices.Delete(out, from.index, from.index+1)
		if before > from.index {
			before--
		}
		return slices.Insert(out, before, item)
	}
	g, ok := out[from.group].(Group)
	if !ok {
		return out
	}
	leaf := g.Children[from.index]
	g.Children = slices.Delete(g.Children, from.index, from.index+1)
	out[from.group] = g
	return slices.Insert(out, before, Item(leaf))
}

// moveIntoGroup removes the leaf at from and inserts it into the group at
// top-level index gi before child index before (-1 appends).
func moveIntoGroup(out Tree, from slot, gi, before int) Tree {
	if _, ok := out[gi].(Group); !ok {
		return out
	}
	if from.group == gi {
		g := out[gi].(Group)
		leaf := g.Children[from.index]
		g.Children = slices.Delete(g.Children, from.index, from.index+1)
		switch {
		case before < 0:
			before = len(g.Children)
		case before > from.index:
			before--
		}
		g.Children = slices.Insert(g.Children, before, leaf)
		out[gi] = g
		return out
	}

	var leaf Leaf
	if from.group < 0 {
		l, ok := out[from.index].(Leaf)
		if !ok {
			return out
		}
		leaf = l
		out = slices.Delete(out, from.index, from.index+1)
		if from.index < gi {
			gi--
		}
	} else {
		src := out[from.group].(Group)
		leaf = src.Children[from.index]
		src.Children = slices.Delete(src.Children, from.index, from.index+1)
		out[from.group] = src
	}

	g := out[gi].(Group)
	if before < 0 || before > len(g.Children) {
		g.Children = append(g.Children, leaf)
	} else {
		g.Children = slices.Insert(g.Children, before, leaf)
	}
	out[gi] = g
	return out
}
