package source

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/JakeTRogers/geoBuddy/logger"
	"github.com/JakeTRogers/geoBuddy/tree"
)

//go:embed schema.sql
var schemaSQL string

//go:embed seed.sql
var seedSQL string

// SQLiteSource reads the hierarchy from a local SQLite database. An empty
// database is seeded with a small built-in world on open.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSource, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// one connection: an in-memory database only exists on the connection that created it
	db.SetMaxOpenConns(1)

	s := &SQLiteSource{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteSource) migrate(ctx context.Context) error {
	if err := execScript(ctx, s.db, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM continents").Scan(&n); err != nil {
		return fmt.Errorf("count continents: %w", err)
	}
	if n > 0 {
		return nil
	}

	l := logger.GetLogger()
	l.Info().Str("db", s.path).Msg("seeding empty database with built-in world data")
	if err := execScript(ctx, s.db, seedSQL); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	return nil
}

func execScript(ctx context.Context, db *sql.DB, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Roots returns the continents in storage order with their country counts.
func (s *SQLiteSource) Roots(ctx context.Context) (tree.Forest, error) {
	const query = `
		SELECT c.id, c.name,
			(SELECT COUNT(*) FROM countries k WHERE k.continent_id = c.id)
		FROM continents c
		ORDER BY c.rowid
	`
	nodes, err := s.queryNodes(ctx, tree.Continent, query)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	return tree.Forest(nodes), nil
}

// Children returns the countries of a continent or the cities of a country.
func (s *SQLiteSource) Children(ctx context.Context, parentID string) ([]tree.Node, error) {
	kind, rawID, err := childKind(parentID)
	if err != nil {
		return nil, &FetchError{ParentID: parentID, Err: err}
	}

	var query string
	switch kind {
	case tree.Country:
		query = `
			SELECT k.id, k.name,
				(SELECT COUNT(*) FROM cities t WHERE t.country_id = k.id)
			FROM countries k
			WHERE k.continent_id = ?
			ORDER BY k.rowid
		`
	case tree.City:
		query = `
			SELECT id, name, 0
			FROM cities
			WHERE country_id = ?
			ORDER BY rowid
		`
	}

	nodes, err := s.queryNodes(ctx, kind, query, rawID)
	if err != nil {
		return nil, &FetchError{ParentID: parentID, Err: err}
	}
	return nodes, nil
}

func (s *SQLiteSource) queryNodes(ctx context.Context, kind tree.Kind, query string, args ...any) ([]tree.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s rows: %w", strings.ToLower(kind.String()), err)
	}
	defer rows.Close()

	var nodes []tree.Node
	for rows.Next() {
		var rawID, name string
		var count int
		if err := rows.Scan(&rawID, &name, &count); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", strings.ToLower(kind.String()), err)
		}
		node := tree.NewNode(kind, rawID, name, count)
		if kind == tree.City {
			node.Children = tree.EmptyChildren()
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", strings.ToLower(kind.String()), err)
	}
	return nodes, nil
}
