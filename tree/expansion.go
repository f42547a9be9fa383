package tree

import (
	"fmt"
	"slices"

	"github.com/JakeTRogers/geoBuddy/logger"
)

// Policy maps the ids a tree widget wants expanded after a toggle (toggled
// id first, then the previously expanded ids) onto the ids that stay expanded.
type Policy func(candidateIDs []string) []string

const (
	PolicyAccordion    = "accordion"
	PolicyCollapseRoot = "collapse-root"
)

// PolicyNames lists the names accepted by PolicyByName.
var PolicyNames = []string{PolicyAccordion, PolicyCollapseRoot}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case PolicyAccordion:
		return SiblingExclusive, nil
	case PolicyCollapseRoot:
		return CollapseOnRootClose, nil
	default:
		return nil, fmt.Errorf("unknown expansion policy %q (want one of %v)", name, PolicyNames)
	}
}

// SiblingExclusive keeps one open branch per level. When another candidate
// sits at the same level as the toggled one, the result is the toggled id
// plus every candidate shallower than it; otherwise the candidates stand.
func SiblingExclusive(candidateIDs []string) []string {
	if len(candidateIDs) <= 1 {
		return slices.Clone(candidateIDs)
	}

	levels := make([]int, len(candidateIDs))
	for i, id := range candidateIDs {
		levels[i] = LevelOf(id)
	}
	first := levels[0]
	// level 0 means the toggled id did not parse; never cascade on it
	if first == 0 {
		return slices.Clone(candidateIDs)
	}

	conflict := false
	for i := 1; i < len(candidateIDs); i++ {
		if levels[i] == first && candidateIDs[i] != candidateIDs[0] {
			conflict = true
			break
		}
	}
	if !conflict {
		return slices.Clone(candidateIDs)
	}

	kept := []string{candidateIDs[0]}
	for i := 1; i < len(candidateIDs); i++ {
		if levels[i] < first {
			kept = append(kept, candidateIDs[i])
		}
	}
	return kept
}

// CollapseOnRootClose behaves like SiblingExclusive, except that a lone
// candidate below the root level clears the whole expansion. A widget
// reports exactly that after the only open continent is closed.
func CollapseOnRootClose(candidateIDs []string) []string {
	if len(candidateIDs) == 1 && LevelOf(candidateIDs[0]) > Continent.Level() {
		return []string{}
	}
	return SiblingExclusive(candidateIDs)
}

// Cascade drops every expanded id that is missing from the forest or has
// an ancestor that is not expanded.
func Cascade(forest Forest, expanded []string) []string {
	open := make(map[string]bool, len(expanded))
	for _, id := range expanded {
		open[id] = true
	}

	kept := make([]string, 0, len(expanded))
	for _, id := range expanded {
		chain, ok := Ancestors(forest, id)
		if !ok {
			continue
		}
		if !slices.ContainsFunc(chain, func(a string) bool { return !open[a] }) {
			kept = append(kept, id)
		}
	}
	return kept
}

// Controller holds the expanded ids of one tree view.
type Controller struct {
	policy   Policy
	expanded []string
}

// NewController returns a controller using policy; nil means SiblingExclusive.
func NewController(policy Policy) *Controller {
	if policy == nil {
		policy = SiblingExclusive
	}
	return &Controller{policy: policy, expanded: []string{}}
}

// Toggle applies the policy to candidateIDs and stores the result.
func (c *Controller) Toggle(candidateIDs []string) []string {
	l := logger.GetLogger()
	c.expanded = c.policy(candidateIDs)
	l.Trace().Strs("candidates", candidateIDs).Strs("expanded", c.expanded).Msg("toggle")
	return c.Expanded()
}

// Expand opens id the way a tree widget reports it and then collapses any
// branch left without an expanded ancestor.
func (c *Controller) Expand(forest Forest, id string) []string {
	if c.IsExpanded(id) {
		return c.Expanded()
	}
	candidates := append([]string{id}, c.expanded...)
	c.Toggle(candidates)
	c.expanded = Cascade(forest, c.expanded)
	return c.Expanded()
}

// Collapse closes id together with everything nested under it.
func (c *Controller) Collapse(forest Forest, id string) []string {
	if !c.IsExpanded(id) {
		return c.Expanded()
	}
	candidates := slices.DeleteFunc(slices.Clone(c.expanded), func(e string) bool { return e == id })
	c.Toggle(candidates)
	c.expanded = Cascade(forest, c.expanded)
	return c.Expanded()
}

// Expanded returns a copy of the expanded ids.
func (c *Controller) Expanded() []string {
	return slices.Clone(c.expanded)
}

// IsExpanded reports whether id is currently expanded.
func (c *Controller) IsExpanded(id string) bool {
	return slices.Contains(c.expanded, id)
}

// Reset clears the expansion.
func (c *Controller) Reset() {
	c.expanded = []string{}
}
