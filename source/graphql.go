package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/JakeTRogers/geoBuddy/logger"
	"github.com/JakeTRogers/geoBuddy/tree"
)

const (
	continentsQuery = `query Continents {
  data: continentscountriescities_Continents(order: name_ASC) {
    results: edges { node { objectId name children: countries { count } } }
  }
}`

	countriesQuery = `query Countries($parent: ID!) {
  data: continentscountriescities_Countries(
    where: { continent: { have: { objectId: { equalTo: $parent } } } }
    order: name_ASC
  ) {
    results: edges { node { objectId name children: cities { count } } }
  }
}`

	citiesQuery = `query Cities($parent: ID!) {
  data: continentscountriescities_Cities(
    where: { country: { have: { objectId: { equalTo: $parent } } } }
    order: name_ASC
  ) {
    results: edges { node { objectId name } }
  }
}`
)

// GraphQLSource loads the hierarchy from a Parse-style GraphQL endpoint.
type GraphQLSource struct {
	endpoint   string
	appID      string
	apiKey     string
	httpClient *http.Client
}

// NewGraphQLSource creates a client for endpoint. appID and apiKey are sent
// as Parse headers when set.
func NewGraphQLSource(endpoint, appID, apiKey string, timeout time.Duration) *GraphQLSource {
	return &GraphQLSource{
		endpoint: endpoint,
		appID:    appID,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Roots fetches the continents.
func (g *GraphQLSource) Roots(ctx context.Context) (tree.Forest, error) {
	nodes, err := g.fetch(ctx, tree.Continent, continentsQuery, nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	return tree.Forest(nodes), nil
}

// Children fetches the countries of a continent or the cities of a country.
func (g *GraphQLSource) Children(ctx context.Context, parentID string) ([]tree.Node, error) {
	kind, rawID, err := childKind(parentID)
	if err != nil {
		return nil, &FetchError{ParentID: parentID, Err: err}
	}

	query := countriesQuery
	if kind == tree.City {
		query = citiesQuery
	}
	nodes, err := g.fetch(ctx, kind, query, map[string]any{"parent": rawID})
	if err != nil {
		return nil, &FetchError{ParentID: parentID, Err: err}
	}
	return nodes, nil
}

func (g *GraphQLSource) fetch(ctx context.Context, kind tree.Kind, query string, variables map[string]any) ([]tree.Node, error) {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.appID != "" {
		req.Header.Set("X-Parse-Application-Id", g.appID)
	}
	if g.apiKey != "" {
		req.Header.Set("X-Parse-REST-API-Key", g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("graphql API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, errors.New("graphql: " + strings.Join(msgs, "; "))
	}

	return toNodes(kind, out.Data.Data.Results), nil
}

// toNodes resolves payload edges into tree nodes of the given kind.
func toNodes(kind tree.Kind, edges []edge) []tree.Node {
	l := logger.GetLogger()
	nodes := make([]tree.Node, 0, len(edges))
	for _, e := range edges {
		if e.Node.ObjectID == "" {
			l.Warn().Str("name", e.Node.Name).Str("kind", kind.String()).Msg("skipping node without objectId")
			continue
		}
		node := tree.NewNode(kind, e.Node.ObjectID, e.Node.Name, 0)
		c := e.Node.Children
		switch {
		case c.edges != nil:
			node.Children = tree.LoadedChildren(toNodes(kind.Child(), c.edges))
			node.DeclaredChildCount = len(c.edges)
		case c.hasCount:
			node.DeclaredChildCount = c.count
		case kind == tree.City:
			node.Children = tree.EmptyChildren()
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// GraphQL wire types.

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data struct {
		Data struct {
			Results []edge `json:"results"`
		} `json:"data"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type edge struct {
	Node payloadNode `json:"node"`
}

type payloadNode struct {
	ObjectID string          `json:"objectId"`
	Name     string          `json:"name"`
	Children payloadChildren `json:"children"`
}

// payloadChildren is either {"count": n}, a list of edges, or null.
type payloadChildren struct {
	hasCount bool
	count    int
	edges    []edge
}

func (p *payloadChildren) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*p = payloadChildren{}
		return nil
	case data[0] == '[':
		edges := []edge{}
		if err := json.Unmarshal(data, &edges); err != nil {
			return fmt.Errorf("children list: %w", err)
		}
		*p = payloadChildren{edges: edges}
		return nil
	case data[0] == '{':
		var hint struct {
			Count *int `json:"count"`
		}
		if err := json.Unmarshal(data, &hint); err != nil {
			return fmt.Errorf("children count: %w", err)
		}
		*p = payloadChildren{}
		if hint.Count != nil {
			p.hasCount = true
			p.count = *hint.Count
		}
		return nil
	default:
		return fmt.Errorf("unexpected children payload %q", data)
	}
}
