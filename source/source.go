// Package source provides the data sources the explorer loads the
// continent → country → city hierarchy from.
package source

import (
	"context"
	"fmt"

	"github.com/JakeTRogers/geoBuddy/tree"
)

// Source fetches one level of the hierarchy at a time.
type Source interface {
	// Roots returns the continents, each Unloaded with its country count.
	Roots(ctx context.Context) (tree.Forest, error)
	// Children returns the nodes one level below parentID.
	Children(ctx context.Context, parentID string) ([]tree.Node, error)
}

// FetchError reports a failed fetch. ParentID is empty for root fetches.
type FetchError struct {
	ParentID string
	Err      error
}

func (e *FetchError) Error() string {
	if e.ParentID == "" {
		return fmt.Sprintf("fetch continents: %v", e.Err)
	}
	return fmt.Sprintf("fetch children of %s: %v", e.ParentID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// childKind decodes parentID and returns the kind of its children.
func childKind(parentID string) (tree.Kind, string, error) {
	kind, rawID, err := tree.Decode(parentID)
	if err != nil {
		return tree.KindNone, "", err
	}
	child := kind.Child()
	if child == tree.KindNone {
		return tree.KindNone, "", fmt.Errorf("%s nodes have no children", kind)
	}
	return child, rawID, nil
}
