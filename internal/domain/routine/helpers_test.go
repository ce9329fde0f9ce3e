package routine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"routines/internal/domain/exercise"
	"routines/internal/domain/routine"
)

func leaf(key string) routine.Leaf {
	return routine.Leaf{Exercise: exercise.Exercise{ID: key, Name: "Exercise " + key, Sets: 3, Reps: 10}}
}

func group(key string, children ...routine.Leaf) routine.Group {
	if children == nil {
		children = []routine.Leaf{}
	}
	return routine.Group{Key: key, Name: "Group " + key, Superset: true, Children: children}
}

func tree(items ...routine.Item) routine.Tree {
	return routine.Tree(items)
}

// ids for keyed items, matching routine.ID
func top(key string) string      { return "root-exercise-" + key }
func grp(key string) string      { return "root-group-" + key }
func child(g, key string) string { return grp(g) + "-exercise-" + key }
func zone(g string) string       { return routine.ContainerID(grp(g)) }

// render prints a tree as e.g. "[A G{B C} D]".
func render(t routine.Tree) string {
	var parts []string
	for _, it := range t {
		switch v := it.(type) {
		case routine.Leaf:
			parts = append(parts, v.Exercise.NaturalKey())
		case routine.Group:
			var kids []string
			for _, c := range v.Children {
				kids = append(kids, c.Exercise.NaturalKey())
			}
			parts = append(parts, v.Key+"{"+strings.Join(kids, " ")+"}")
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func requireTree(t *testing.T, want, got routine.Tree) {
	t.Helper()
	require.True(t, routine.Equal(want, got), "want %s, got %s", render(want), render(got))
}

// keys returns the multiset of leaf and group keys in the tree.
func keys(t routine.Tree) map[string]int {
	out := make(map[string]int)
	for _, it := range t {
		switch v := it.(type) {
		case routine.Leaf:
			out["leaf:"+v.Exercise.NaturalKey()]++
		case routine.Group:
			out["group:"+v.Key]++
			for _, c := range v.Children {
				out["leaf:"+c.Exercise.NaturalKey()]++
			}
		}
	}
	return out
}
