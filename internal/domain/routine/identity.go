package routine

import "strconv"

// RootScope is the parent prefix for top-level items.
const RootScope = "root"

// RootZoneID identifies the top-level drop zone surrounding the whole list.
const RootZoneID = "root-zone"

const containerSuffix = "-container"

// ID derives the stable identity of an item from its natural key, scoped by its parent.
// Items without a natural key fall back to their position and lose stability across reorders.
// PRE: localIndex is the item's index within its parent scope; parentID is "" at top level
// POST: returns the same string for the same key and parent scope
func ID(item Item, localIndex int, parentID string) string {
	prefix := RootScope
	if parentID != "" {
		prefix = parentID
	}
	switch v := item.(type) {
	case Leaf:
		if key := v.Exercise.NaturalKey(); key != "" {
			return prefix + "-exercise-" + key
		}
	case Group:
		if v.Key != "" {
			return prefix + "-group-" + v.Key
		}
	}
	return positionalID(prefix, localIndex)
}

func positionalID(prefix string, localIndex int) string {
	return prefix + "-item-" + strconv.Itoa(localIndex)
}

// ContainerID returns the drop-zone id of a group's surface, distinct from the
// group's own sortable id.
func ContainerID(groupID string) string {
	return groupID + containerSuffix
}
