package tree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSiblingExclusive(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       []string
	}{
		{"empty", []string{}, []string{}},
		{"single root", []string{"1_EU"}, []string{"1_EU"}},
		{"single country", []string{"2_FR"}, []string{"2_FR"}},
		{"open child of open root", []string{"2_FR", "1_EU"}, []string{"2_FR", "1_EU"}},
		{"sibling country replaces open one", []string{"2_DE", "2_FR", "1_EU"}, []string{"2_DE", "1_EU"}},
		{"other continent collapses everything", []string{"1_AS", "2_FR", "1_EU"}, []string{"1_AS"}},
		{"deeper entries are dropped on conflict", []string{"2_DE", "3_Paris", "2_FR", "1_EU"}, []string{"2_DE", "1_EU"}},
		{"malformed toggled id never cascades", []string{"bogus", "oops", "1_EU"}, []string{"bogus", "oops", "1_EU"}},
		{"malformed entries count as shallowest", []string{"2_DE", "bogus", "2_FR", "1_EU"}, []string{"2_DE", "bogus", "1_EU"}},
		{"repeat of toggled id is not a conflict", []string{"2_FR", "2_FR", "1_EU"}, []string{"2_FR", "2_FR", "1_EU"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SiblingExclusive(tt.candidates))
		})
	}
}

func TestSiblingExclusive_DoesNotAliasInput(t *testing.T) {
	in := []string{"2_FR", "1_EU"}
	out := SiblingExclusive(in)
	out[0] = "changed"
	assert.Equal(t, "2_FR", in[0])
}

func TestCollapseOnRootClose(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       []string
	}{
		{"lone country clears all", []string{"2_FR"}, []string{}},
		{"lone city clears all", []string{"3_Paris"}, []string{}},
		{"lone root stays", []string{"1_EU"}, []string{"1_EU"}},
		{"lone malformed id stays", []string{"bogus"}, []string{"bogus"}},
		{"falls through to accordion", []string{"2_DE", "2_FR", "1_EU"}, []string{"2_DE", "1_EU"}},
		{"verbatim otherwise", []string{"2_FR", "1_EU"}, []string{"2_FR", "1_EU"}},
		{"empty", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollapseOnRootClose(tt.candidates))
		})
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName(PolicyAccordion)
	require.NoError(t, err)
	assert.Equal(t, []string{"2_FR"}, p([]string{"2_FR"}))

	p, err = PolicyByName(PolicyCollapseRoot)
	require.NoError(t, err)
	assert.Empty(t, p([]string{"2_FR"}))

	_, err = PolicyByName("tabs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tabs")
}

func TestController_ScenariosBC(t *testing.T) {
	c := NewController(SiblingExclusive)
	c.Toggle([]string{"1_EU"})

	// B: open France under Europe
	got := c.Toggle([]string{"2_FR", "1_EU"})
	assert.Equal(t, []string{"2_FR", "1_EU"}, got)

	// C: open Germany; the widget still reports France as open
	got = c.Toggle([]string{"2_DE", "2_FR", "1_EU"})
	assert.Equal(t, []string{"2_DE", "1_EU"}, got)
	assert.True(t, c.IsExpanded("2_DE"))
	assert.False(t, c.IsExpanded("2_FR"))
}

func TestController_ExpandCollapse(t *testing.T) {
	forest := worldForest()

	for _, name := range PolicyNames {
		t.Run(name, func(t *testing.T) {
			policy, err := PolicyByName(name)
			require.NoError(t, err)
			c := NewController(policy)

			assert.Equal(t, []string{"1_EU"}, c.Expand(forest, "1_EU"))
			assert.Equal(t, []string{"2_FR", "1_EU"}, c.Expand(forest, "2_FR"))
			assert.Equal(t, []string{"2_DE", "1_EU"}, c.Expand(forest, "2_DE"))
			assert.Equal(t, []string{"2_DE", "1_EU"}, c.Expand(forest, "2_DE"), "expanding twice is a no-op")

			// closing the continent takes its open country with it
			assert.Empty(t, c.Collapse(forest, "1_EU"))
			assert.Empty(t, c.Collapse(forest, "1_EU"), "double collapse is a no-op")
		})
	}
}

func TestController_ExpandOtherContinent(t *testing.T) {
	forest := worldForest()
	c := NewController(nil)

	c.Expand(forest, "1_EU")
	c.Expand(forest, "2_FR")
	assert.Equal(t, []string{"1_AS"}, c.Expand(forest, "1_AS"))
}

func TestController_CollapseChildKeepsParent(t *testing.T) {
	forest := worldForest()
	c := NewController(CollapseOnRootClose)

	c.Expand(forest, "1_EU")
	c.Expand(forest, "2_FR")
	assert.Equal(t, []string{"1_EU"}, c.Collapse(forest, "2_FR"))
}

func TestController_ExpandedIsACopy(t *testing.T) {
	c := NewController(nil)
	c.Toggle([]string{"1_EU"})
	got := c.Expanded()
	got[0] = "mutated"
	assert.True(t, c.IsExpanded("1_EU"))

	c.Reset()
	assert.Empty(t, c.Expanded())
}

func TestCascade(t *testing.T) {
	forest := worldForest()

	assert.Equal(t, []string{"2_FR", "1_EU"}, Cascade(forest, []string{"2_FR", "1_EU"}))
	assert.Empty(t, Cascade(forest, []string{"2_FR"}), "parent closed")
	assert.Equal(t, []string{"1_AS"}, Cascade(forest, []string{"1_AS", "2_Gone"}), "unknown ids dropped")

	pruned := PruneChildren(forest, "1_EU")
	assert.Equal(t, []string{"1_EU"}, Cascade(pruned, []string{"2_FR", "1_EU"}), "pruned subtree cannot stay open")
}

// fullForest is a fully loaded three-level forest of the given fan-out.
func fullForest(fanout int) Forest {
	var build func(kind Kind, prefix string) []Node
	build = func(kind Kind, prefix string) []Node {
		if kind == KindNone {
			return nil
		}
		nodes := make([]Node, 0, fanout)
		for i := 0; i < fanout; i++ {
			raw := fmt.Sprintf("%s%d", prefix, i)
			n := NewNode(kind, raw, raw, fanout)
			if kind == City {
				n.Children = EmptyChildren()
				n.DeclaredChildCount = 0
			} else {
				n.Children = LoadedChildren(build(kind.Child(), raw+"."))
			}
			nodes = append(nodes, n)
		}
		return nodes
	}
	return build(Continent, "R")
}

func TestProperty_CascadingCollapse(t *testing.T) {
	forest := fullForest(3)
	ids := allIDs(forest)

	rapid.Check(t, func(t *rapid.T) {
		policy := rapid.SampledFrom([]Policy{SiblingExclusive, CollapseOnRootClose}).Draw(t, "policy")
		c := NewController(policy)

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			if rapid.Bool().Draw(t, "expand") {
				c.Expand(forest, id)
			} else {
				c.Collapse(forest, id)
			}

			open := make(map[string]bool)
			for _, e := range c.Expanded() {
				open[e] = true
			}
			for _, e := range c.Expanded() {
				chain, ok := Ancestors(forest, e)
				require.True(t, ok)
				for _, a := range chain {
					assert.True(t, open[a], "%s open while ancestor %s is closed", e, a)
				}
			}
		}
	})
}

func TestProperty_SingleOpenPerLevel(t *testing.T) {
	forest := fullForest(3)
	ids := allIDs(forest)

	rapid.Check(t, func(t *rapid.T) {
		policy := rapid.SampledFrom([]Policy{SiblingExclusive, CollapseOnRootClose}).Draw(t, "policy")
		c := NewController(policy)

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			prev := c.Expanded()
			if rapid.Bool().Draw(t, "expand") {
				if !c.IsExpanded(id) {
					c.Toggle(append([]string{id}, prev...))
				}
			} else {
				var candidates []string
				for _, e := range prev {
					if e != id {
						candidates = append(candidates, e)
					}
				}
				c.Toggle(candidates)
			}

			perLevel := make(map[int]int)
			for _, e := range c.Expanded() {
				perLevel[LevelOf(e)]++
			}
			for level, n := range perLevel {
				assert.LessOrEqual(t, n, 1, "level %d has %d open nodes: %v", level, n, c.Expanded())
			}
		}
	})
}
