package routine

import "strconv"

// FlatEntry pairs an item with its parent scope and position.
// Entries are rebuilt for every tree version and never persisted.
type FlatEntry struct {
	ID       string
	ParentID string // "" for top-level items
	Position int    // index within the parent scope
	Item     Item   // Leaf, or Group for top-level group entries
}

// IsGroup reports whether the entry is a group.
func (e FlatEntry) IsGroup() bool {
	_, ok := e.Item.(Group)
	return ok
}

// TopLevel reports whether the entry lives in the top-level sequence.
func (e FlatEntry) TopLevel() bool {
	return e.ParentID == ""
}

// Flatten converts the tree into parent-linked entries in display order,
// each group immediately followed by its children.
// PRE: none
// POST: every returned ID is unique
func Flatten(tree Tree) []FlatEntry {
	entries, _ := flatten(tree)
	return entries
}

func flatten(tree Tree) ([]FlatEntry, map[string]string) {
	entries := make([]FlatEntry, 0, len(tree)+tree.LeafCount())
	containers := make(map[string]string)
	seen := map[string]bool{RootZoneID: true}

	claim := func(id, prefix string, pos int) string {
		if seen[id] {
			id = positionalID(prefix, pos)
		}
		for n := 1; seen[id]; n++ {
			id = positionalID(prefix, pos) + "~" + strconv.Itoa(n)
		}
		seen[id] = true
		return id
	}

	for i, it := range tree {
		if it == nil {
			continue
		}
		id := claim(ID(it, i, ""), RootScope, i)
		entries = append(entries, FlatEntry{ID: id, Position: i, Item: it})

		g, ok := it.(Group)
		if !ok {
			continue
		}
		cid := ContainerID(id)
		for n := 1; seen[cid]; n++ {
			cid = ContainerID(id + "~" + strconv.Itoa(n))
		}
		seen[cid] = true
		containers[cid] = id
		for j, child := range g.Children {
			childID := claim(ID(child, j, id), id, j)
			entries = append(entries, FlatEntry{ID: childID, ParentID: id, Position: j, Item: child})
		}
	}
	return entries, containers
}

// Rebuild reconstructs a tree from flattened entries.
// PRE: entries came from Flatten (display order, top-level positions dense)
// POST: Rebuild(Flatten(t)) is Equal to t
func Rebuild(entries []FlatEntry) Tree {
	var out Tree
	groupAt := make(map[string]int)
	for _, e := range entries {
		if e.ParentID == "" {
			if g, ok := e.Item.(Group); ok {
				g.Children = nil
				groupAt[e.ID] = len(out)
				out = append(out, g)
				continue
			}
			out = append(out, e.Item)
			continue
		}
		leaf, ok := e.Item.(Leaf)
		if !ok {
			continue
		}
		gi, ok := groupAt[e.ParentID]
		if !ok {
			continue
		}
		g := out[gi].(Group)
		g.Children = append(g.Children, leaf)
		out[gi] = g
	}
	return out
}

// TargetKind classifies an id for drop-target resolution.
type TargetKind int

// Target kinds
const (
	KindUnknown TargetKind = iota
	KindRootZone
	KindContainer
	KindTopLevel
	KindNested
)

// Index provides O(1) lookup over one flattened tree version.
type Index struct {
	entries     []FlatEntry
	byID        map[string]int
	topLevel    []string
	children    map[string][]string
	containers  map[string]string // container id -> group id
	containerOf map[string]string // group id -> container id
}

// NewIndex flattens tree and builds its lookup tables.
// PRE: none
// POST: returns an Index valid for this tree version only
func NewIndex(tree Tree) *Index {
	entries, containers := flatten(tree)
	idx := &Index{
		entries:     entries,
		byID:        make(map[string]int, len(entries)),
		children:    make(map[string][]string),
		containers:  containers,
		containerOf: make(map[string]string, len(containers)),
	}
	for cid, gid := range containers {
		idx.containerOf[gid] = cid
	}
	for i, e := range entries {
		idx.byID[e.ID] = i
		if e.ParentID == "" {
			idx.topLevel = append(idx.topLevel, e.ID)
			if e.IsGroup() {
				idx.children[e.ID] = []string{}
			}
			continue
		}
		idx.children[e.ParentID] = append(idx.children[e.ParentID], e.ID)
	}
	return idx
}

// Entries returns the flattened entries in display order.
func (x *Index) Entries() []FlatEntry {
	out := make([]FlatEntry, len(x.entries))
	copy(out, x.entries)
	return out
}

// Entry looks up an item entry by id. Container and zone ids are not entries.
func (x *Index) Entry(id string) (FlatEntry, bool) {
	i, ok := x.byID[id]
	if !ok {
		return FlatEntry{}, false
	}
	return x.entries[i], true
}

// TopLevelIDs returns the sortable order of the top-level scope.
func (x *Index) TopLevelIDs() []string {
	out := make([]string, len(x.topLevel))
	copy(out, x.topLevel)
	return out
}

// GroupIDs returns the sortable order inside a group, or nil if groupID is not a group.
func (x *Index) GroupIDs(groupID string) []string {
	ids, ok := x.children[groupID]
	if !ok {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// GroupOfContainer maps a container id back to its group id.
func (x *Index) GroupOfContainer(containerID string) (string, bool) {
	g, ok := x.containers[containerID]
	return g, ok
}

// ContainerOf returns the container id for a group id.
func (x *Index) ContainerOf(groupID string) (string, bool) {
	c, ok := x.containerOf[groupID]
	return c, ok
}

// Kind classifies id against this index.
func (x *Index) Kind(id string) TargetKind {
	if id == RootZoneID {
		return KindRootZone
	}
	if _, ok := x.containers[id]; ok {
		return KindContainer
	}
	e, ok := x.Entry(id)
	switch {
	case !ok:
		return KindUnknown
	case e.ParentID == "":
		return KindTopLevel
	default:
		return KindNested
	}
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.entries)
}
