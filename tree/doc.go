// Package tree holds the state of a lazily loaded continent → country →
// city hierarchy.
//
// # Node ids
//
// Every node id is "<level>_<rawId>", where level is 1 for continents, 2
// for countries and 3 for cities, and rawId is the identifier assigned by
// the data source. Nodes carry no parent pointers; ancestry is recovered
// by searching the forest from its roots.
//
// # Updates
//
// InsertChildren and PruneChildren never modify their input. They copy the
// path to the changed node and share everything else, so a forest held by
// a pending render or an in-flight fetch stays valid. A target that is no
// longer in the forest (a fetch that resolved after its node was pruned)
// is a no-op.
//
// # Expansion
//
// Controller applies one of two accordion policies to every toggle:
// SiblingExclusive keeps a single open branch per level, and
// CollapseOnRootClose additionally clears everything when the open
// continent is closed.
package tree
