package tree

// ChildState is the load state of a node's children.
type ChildState int

const (
	// Unloaded children have not been fetched yet, or were pruned.
	Unloaded ChildState = iota
	// LoadedEmpty children were fetched and there are none.
	LoadedEmpty
	// Loaded children were fetched and are held in order.
	Loaded
)

func (s ChildState) String() string {
	switch s {
	case LoadedEmpty:
		return "loaded-empty"
	case Loaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// Children is the tagged child set of a node. The zero value is Unloaded.
type Children struct {
	state ChildState
	nodes []Node
}

// NoChildren returns an Unloaded child set.
func NoChildren() Children {
	return Children{}
}

// EmptyChildren returns a LoadedEmpty child set.
func EmptyChildren() Children {
	return Children{state: LoadedEmpty}
}

// LoadedChildren wraps fetched nodes. An empty slice yields LoadedEmpty.
func LoadedChildren(nodes []Node) Children {
	if len(nodes) == 0 {
		return EmptyChildren()
	}
	return Children{state: Loaded, nodes: nodes}
}

// State reports which variant the set holds.
func (c Children) State() ChildState {
	return c.state
}

// Nodes returns the loaded children; nil unless the state is Loaded.
func (c Children) Nodes() []Node {
	return c.nodes
}

// IsLoaded reports whether a fetch has populated the set.
func (c Children) IsLoaded() bool {
	return c.state != Unloaded
}

// Node is one entry of the geographic hierarchy.
type Node struct {
	ID   string
	Name string
	Kind Kind

	Children Children

	// DeclaredChildCount is the child count reported by the data source
	// before the children themselves are fetched.
	DeclaredChildCount int
}

// NewNode builds an Unloaded node for a backend identifier at the given kind.
func NewNode(kind Kind, rawID, name string, declaredChildCount int) Node {
	return Node{
		ID:                 Encode(kind.Level(), rawID),
		Name:               name,
		Kind:               kind,
		DeclaredChildCount: declaredChildCount,
	}
}

// Expandable reports whether the renderer should show an expand affordance.
func (n Node) Expandable() bool {
	switch n.Children.state {
	case Loaded:
		return true
	case Unloaded:
		return n.DeclaredChildCount > 0
	default:
		return false
	}
}

// ChildCount returns the number of loaded children, falling back to the
// declared count while the node is Unloaded.
func (n Node) ChildCount() int {
	if n.Children.IsLoaded() {
		return len(n.Children.nodes)
	}
	return n.DeclaredChildCount
}

// Forest is the ordered list of root nodes.
type Forest []Node
