package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeTRogers/geoBuddy/tree"
)

const continentsPayload = `{"data":{"data":{"results":[
	{"node":{"objectId":"EU","name":"Europe","children":{"count":44}}},
	{"node":{"objectId":"AN","name":"Antarctica","children":{"count":0}}}
]}}}`

const countriesPayload = `{"data":{"data":{"results":[
	{"node":{"objectId":"FR","name":"France","children":{"count":3}}},
	{"node":{"objectId":"VA","name":"Vatican City","children":[
		{"node":{"objectId":"VA-VAT","name":"Vatican City","children":null}}
	]}}
]}}}`

const citiesPayload = `{"data":{"data":{"results":[
	{"node":{"objectId":"FR-PAR","name":"Paris"}},
	{"node":{"objectId":"FR-LYS","name":"Lyon","children":null}}
]}}}`

type capturedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
	AppID     string         `json:"-"`
	APIKey    string         `json:"-"`
}

func newGraphQLServer(t *testing.T, status int, payload string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if got != nil {
			require.NoError(t, json.Unmarshal(body, got))
			got.AppID = r.Header.Get("X-Parse-Application-Id")
			got.APIKey = r.Header.Get("X-Parse-REST-API-Key")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGraphQLSource_Roots(t *testing.T) {
	var got capturedRequest
	srv := newGraphQLServer(t, http.StatusOK, continentsPayload, &got)
	g := NewGraphQLSource(srv.URL, "app", "key", 5*time.Second)

	roots, err := g.Roots(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 2)

	assert.Equal(t, "1_EU", roots[0].ID)
	assert.Equal(t, "Europe", roots[0].Name)
	assert.Equal(t, tree.Unloaded, roots[0].Children.State())
	assert.Equal(t, 44, roots[0].DeclaredChildCount)
	assert.True(t, roots[0].Expandable())
	assert.False(t, roots[1].Expandable())

	assert.Contains(t, got.Query, "continentscountriescities_Continents")
	assert.Empty(t, got.Variables)
	assert.Equal(t, "app", got.AppID)
	assert.Equal(t, "key", got.APIKey)
}

func TestGraphQLSource_Countries(t *testing.T) {
	var got capturedRequest
	srv := newGraphQLServer(t, http.StatusOK, countriesPayload, &got)
	g := NewGraphQLSource(srv.URL, "", "", 5*time.Second)

	countries, err := g.Children(context.Background(), "1_EU")
	require.NoError(t, err)
	require.Len(t, countries, 2)

	assert.Contains(t, got.Query, "continentscountriescities_Countries")
	assert.Equal(t, "EU", got.Variables["parent"])
	assert.Empty(t, got.AppID)

	assert.Equal(t, "2_FR", countries[0].ID)
	assert.Equal(t, tree.Unloaded, countries[0].Children.State())
	assert.Equal(t, 3, countries[0].DeclaredChildCount)

	// inline children arrive already loaded
	vatican := countries[1]
	assert.Equal(t, tree.Loaded, vatican.Children.State())
	require.Len(t, vatican.Children.Nodes(), 1)
	city := vatican.Children.Nodes()[0]
	assert.Equal(t, "3_VA-VAT", city.ID)
	assert.Equal(t, tree.City, city.Kind)
	assert.Equal(t, tree.LoadedEmpty, city.Children.State())
}

func TestGraphQLSource_Cities(t *testing.T) {
	var got capturedRequest
	srv := newGraphQLServer(t, http.StatusOK, citiesPayload, &got)
	g := NewGraphQLSource(srv.URL, "", "", 5*time.Second)

	cities, err := g.Children(context.Background(), "2_FR")
	require.NoError(t, err)
	require.Len(t, cities, 2)

	assert.Contains(t, got.Query, "continentscountriescities_Cities")
	assert.Equal(t, "FR", got.Variables["parent"])
	for _, c := range cities {
		assert.Equal(t, tree.City, c.Kind)
		assert.Equal(t, tree.LoadedEmpty, c.Children.State())
	}
}

func TestGraphQLSource_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		payload  string
		parentID string
		wantMsg  string
	}{
		{
			name:     "http status",
			status:   http.StatusUnauthorized,
			payload:  `{"error":"unauthorized"}`,
			parentID: "1_EU",
			wantMsg:  "status 401",
		},
		{
			name:     "graphql errors",
			status:   http.StatusOK,
			payload:  `{"errors":[{"message":"bad field"},{"message":"bad arg"}]}`,
			parentID: "1_EU",
			wantMsg:  "bad field; bad arg",
		},
		{
			name:     "invalid json",
			status:   http.StatusOK,
			payload:  `{"data":`,
			parentID: "1_EU",
			wantMsg:  "decode response",
		},
		{
			name:     "invalid children payload",
			status:   http.StatusOK,
			payload:  `{"data":{"data":{"results":[{"node":{"objectId":"FR","name":"France","children":"many"}}]}}}`,
			parentID: "1_EU",
			wantMsg:  "unexpected children payload",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGraphQLServer(t, tt.status, tt.payload, nil)
			g := NewGraphQLSource(srv.URL, "", "", 5*time.Second)

			_, err := g.Children(context.Background(), tt.parentID)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.parentID, fetchErr.ParentID)
		})
	}
}

func TestGraphQLSource_CityParentSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	g := NewGraphQLSource(srv.URL, "", "", time.Second)
	_, err := g.Children(context.Background(), "3_FR-PAR")
	require.Error(t, err)
	assert.False(t, called)
}

func TestGraphQLSource_ContextCancelled(t *testing.T) {
	srv := newGraphQLServer(t, http.StatusOK, continentsPayload, nil)
	g := NewGraphQLSource(srv.URL, "", "", 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Roots(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPayloadChildren_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		hasCount  bool
		wantEdges int
		isList    bool
	}{
		{name: "null", input: `null`},
		{name: "count", input: `{"count":12}`, wantCount: 12, hasCount: true},
		{name: "zero count", input: `{"count":0}`, hasCount: true},
		{name: "object without count", input: `{}`},
		{name: "empty list", input: `[]`, isList: true},
		{name: "list", input: ` [{"node":{"objectId":"A","name":"a"}},{"node":{"objectId":"B","name":"b"}}]`, wantEdges: 2, isList: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payloadChildren
			require.NoError(t, p.UnmarshalJSON([]byte(tt.input)))
			assert.Equal(t, tt.hasCount, p.hasCount)
			assert.Equal(t, tt.wantCount, p.count)
			assert.Equal(t, tt.isList, p.edges != nil)
			assert.Len(t, p.edges, tt.wantEdges)
		})
	}
}

func TestToNodes_SkipsMissingObjectID(t *testing.T) {
	var out response
	payload := `{"data":{"data":{"results":[{"node":{"name":"nameless"}},{"node":{"objectId":"EU","name":"Europe"}}]}}}`
	require.NoError(t, json.NewDecoder(strings.NewReader(payload)).Decode(&out))

	nodes := toNodes(tree.Continent, out.Data.Data.Results)
	require.Len(t, nodes, 1)
	assert.Equal(t, "1_EU", nodes[0].ID)
	// a continent without a count hint stays unloaded and is not expandable
	assert.Equal(t, tree.Unloaded, nodes[0].Children.State())
	assert.False(t, nodes[0].Expandable())
}
