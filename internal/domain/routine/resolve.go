package routine

// Candidates are the raw overlap signals reported by the pointer event source
// for one move event. Both lists are ranked best first.
type Candidates struct {
	Inside  []string // the pointer is inside the candidate's bounds
	Nearest []string // ordered by distance to the candidate's center
}

// Resolve converts raw overlap candidates into a ranked list of eligible drop
// targets for the dragged item. The first element is the authoritative target;
// an empty result means no valid target.
//
// Container entry is decided by the Inside list alone: a leaf whose pointer is
// inside another group's container gets that container outright. Otherwise the
// eligible Nearest candidates rank ahead of the eligible Inside ones, since the
// Inside list is dominated by large zones. A child still inside its own
// group's container may target that container last, which appends it within
// the group.
// PRE: idx describes the tree the candidates were measured against
// POST: every returned id is known to idx (or is RootZoneID) and appears once
func Resolve(idx *Index, activeID string, c Candidates) []string {
	active, ok := idx.Entry(activeID)
	if !ok {
		return nil
	}

	switch {
	case active.IsGroup():
		return rank(c, func(id string) bool {
			k := idx.Kind(id)
			return k == KindRootZone || k == KindTopLevel
		})

	case active.ParentID != "":
		own := active.ParentID
		ownContainer := ""
		for _, id := range c.Inside {
			gid, ok := idx.GroupOfContainer(id)
			if !ok {
				continue
			}
			if gid != own {
				return []string{id}
			}
			ownContainer = id
		}
		if ownContainer == "" {
			return rank(c, func(id string) bool {
				k := idx.Kind(id)
				return k == KindRootZone || k == KindTopLevel
			})
		}
		return append(rank(c, func(id string) bool {
			switch idx.Kind(id) {
			case KindRootZone, KindTopLevel:
				return true
			case KindContainer:
				gid, _ := idx.GroupOfContainer(id)
				return gid != own
			case KindNested:
				e, _ := idx.Entry(id)
				return e.ParentID == own
			}
			return false
		}), ownContainer)

	default:
		for _, id := range c.Inside {
			if idx.Kind(id) == KindContainer {
				return []string{id}
			}
		}
		return rank(c, func(id string) bool {
			k := idx.Kind(id)
			return k == KindRootZone || k == KindTopLevel
		})
	}
}

func rank(c Candidates, eligible func(string) bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range [][]string{c.Nearest, c.Inside} {
		for _, id := range list {
			if seen[id] || !eligible(id) {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
