package tree

// InsertChildren returns a forest in which the first node matching targetID
// (depth-first, in order) holds Loaded(children). Only the nodes on the path
// to the target are copied; the input forest is never modified. When no node
// matches, forest is returned as is.
func InsertChildren(forest Forest, targetID string, children []Node) Forest {
	updated, ok := replace(forest, targetID, func(n Node) Node {
		n.Children = LoadedChildren(children)
		return n
	})
	if !ok {
		return forest
	}
	return updated
}

// PruneChildren returns a forest in which the first node matching targetID
// is reverted to Unloaded, discarding its cached subtree. No-op when absent.
func PruneChildren(forest Forest, targetID string) Forest {
	updated, ok := replace(forest, targetID, func(n Node) Node {
		n.Children = NoChildren()
		return n
	})
	if !ok {
		return forest
	}
	return updated
}

// replace rewrites the first node matching id and rebuilds the slices along
// the path to it. Siblings and untouched subtrees are shared.
func replace(nodes []Node, id string, fn func(Node) Node) ([]Node, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := make([]Node, len(nodes))
			copy(out, nodes)
			out[i] = fn(nodes[i])
			return out, true
		}
		if nodes[i].Children.state != Loaded {
			continue
		}
		kids, ok := replace(nodes[i].Children.nodes, id, fn)
		if !ok {
			continue
		}
		out := make([]Node, len(nodes))
		copy(out, nodes)
		out[i].Children = Children{state: Loaded, nodes: kids}
		return out, true
	}
	return nil, false
}

// Find returns the first node matching id.
func Find(forest Forest, id string) (Node, bool) {
	var found Node
	var ok bool
	Walk(forest, func(n Node, _ int) bool {
		if n.ID == id {
			found, ok = n, true
			return false
		}
		return true
	})
	return found, ok
}

// ParentOf returns the id of the node whose loaded children contain id.
// Roots and unknown ids report false.
func ParentOf(forest Forest, id string) (string, bool) {
	path, ok := Ancestors(forest, id)
	if !ok || len(path) == 0 {
		return "", false
	}
	return path[len(path)-1], true
}

// Ancestors returns the ids from the root down to, but excluding, id.
func Ancestors(forest Forest, id string) ([]string, bool) {
	var chain []string
	var search func(nodes []Node) bool
	search = func(nodes []Node) bool {
		for _, n := range nodes {
			if n.ID == id {
				return true
			}
			if n.Children.state != Loaded {
				continue
			}
			chain = append(chain, n.ID)
			if search(n.Children.nodes) {
				return true
			}
			chain = chain[:len(chain)-1]
		}
		return false
	}
	if !search(forest) {
		return nil, false
	}
	return chain, true
}

// Walk visits loaded nodes in pre-order with their depth (0 for roots).
// Returning false from fn stops the walk.
func Walk(forest Forest, fn func(n Node, depth int) bool) {
	var visit func(nodes []Node, depth int) bool
	visit = func(nodes []Node, depth int) bool {
		for _, n := range nodes {
			if !fn(n, depth) {
				return false
			}
			if n.Children.state == Loaded && !visit(n.Children.nodes, depth+1) {
				return false
			}
		}
		return true
	}
	visit(forest, 0)
}
