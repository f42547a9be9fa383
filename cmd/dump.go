package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/JakeTRogers/geoBuddy/metrics"
	"github.com/JakeTRogers/geoBuddy/source"
	"github.com/JakeTRogers/geoBuddy/tree"
)

// fetchConcurrency caps the number of children fetches in flight during a dump.
const fetchConcurrency = 8

// loadForest fetches the roots and then every level down to depth (1 for
// continents only, 3 for cities), splicing each batch in with InsertChildren.
func loadForest(ctx context.Context, src source.Source, depth int) (tree.Forest, error) {
	forest, err := src.Roots(ctx)
	if err != nil {
		return nil, err
	}

	for level := 1; level < depth; level++ {
		var frontier []string
		tree.Walk(forest, func(n tree.Node, d int) bool {
			if d == level-1 && n.Children.State() == tree.Unloaded && n.Expandable() {
				frontier = append(frontier, n.ID)
			}
			return true
		})
		if len(frontier) == 0 {
			break
		}
		l.Debug().Int("level", level).Int("parents", len(frontier)).Msg("fetching level")

		results := make([][]tree.Node, len(frontier))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fetchConcurrency)
		for i, id := range frontier {
			i, id := i, id
			g.Go(func() error {
				children, err := src.Children(gctx, id)
				if err != nil {
					return err
				}
				results[i] = children
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, id := range frontier {
			forest = tree.InsertChildren(forest, id, results[i])
		}
	}

	return forest, nil
}

// configureColoredTable applies the colored table style.
func configureColoredTable(t table.Writer) {
	t.SetStyle(table.StyleColoredBlackOnBlueWhite)
	t.Style().Title.Colors = text.Colors{text.BgHiBlue, text.FgHiWhite}
	t.Style().Color.RowAlternate = text.Colors{text.Color(30), text.Color(47)}
}

// configurePlainTable applies the rounded, uncolored table style.
func configurePlainTable(t table.Writer) {
	t.SetStyle(table.StyleRounded)
	t.Style().Options.DoNotColorBordersAndSeparators = true
	t.Style().Options.SeparateColumns = true
	t.Style().Options.SeparateRows = false
}

// printForest renders the loaded part of forest as a table, one row per node.
func printForest(w io.Writer, forest tree.Forest, colorEnabled bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if colorEnabled {
		configureColoredTable(t)
	} else {
		configurePlainTable(t)
	}
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle("World")
	t.AppendHeader(table.Row{"Continent", "Country", "City", "ID", "Children"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Children", Align: text.AlignRight},
	})

	counts := map[tree.Kind]int{}
	tree.Walk(forest, func(n tree.Node, depth int) bool {
		counts[n.Kind]++
		row := table.Row{"", "", "", n.ID, childSummary(n)}
		row[depth] = n.Name
		t.AppendRow(row)
		return true
	})

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d", counts[tree.Continent]),
		fmt.Sprintf("%d", counts[tree.Country]),
		fmt.Sprintf("%d", counts[tree.City]),
		"", "",
	})
	t.Render()
}

// childSummary describes a node's children for the Children column.
func childSummary(n tree.Node) string {
	switch n.Children.State() {
	case tree.Loaded:
		return fmt.Sprintf("%d", n.ChildCount())
	case tree.LoadedEmpty:
		if n.Kind == tree.City {
			return ""
		}
		return "0"
	default:
		if n.DeclaredChildCount == 0 {
			return "0"
		}
		return fmt.Sprintf("%d (not loaded)", n.DeclaredChildCount)
	}
}

// NewDumpCmd creates and returns a new dump command.
// Each call returns a fresh instance for test isolation.
func NewDumpCmd(v *viper.Viper) *cobra.Command {
	var (
		depth        int
		colorEnabled bool
	)

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the hierarchy as a table",
		Long: `Load the hierarchy from the configured data source and print it as a table.

Each level is fetched in parallel and spliced into the tree before the next level is requested, so --depth controls how
many requests are made:

  - 1: continents only
  - 2: continents and countries
  - 3: continents, countries and cities

Example:
  $ geoBuddy dump --depth 2`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return err
			}
			if depth < tree.Continent.Level() || depth > tree.City.Level() {
				return fmt.Errorf("invalid depth %d, expected 1 to 3", depth)
			}
			return nil
		},
	}

	runDumpCmd := func(cmd *cobra.Command, args []string) error {
		s, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}

		m := metrics.NewMetrics(prometheus.NewRegistry())
		ctx := commandContext(cmd)
		src, closeSource, err := newSource(ctx, s, m)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeSource(); err != nil {
				l.Error().Err(err).Msg("closing data source")
			}
		}()

		forest, err := loadForest(ctx, src, depth)
		if err != nil {
			return fmt.Errorf("dump failed: %w", err)
		}

		// remember an explicit --color choice like the explorer settings
		if cmd.Flags().Changed("color") {
			v.Set("color", colorEnabled)
			if err := v.WriteConfig(); err != nil {
				l.Error().Str("viper", err.Error()).Send()
			}
		}
		printForest(cmd.OutOrStdout(), forest, colorEnabled)
		return nil
	}

	dumpCmd.RunE = runDumpCmd
	dumpCmd.Flags().IntVarP(&depth, "depth", "d", tree.City.Level(), "``levels to load: 1=continents, 2=countries, 3=cities")
	dumpCmd.Flags().BoolVarP(&colorEnabled, "color", "c", false, "enable colorized table output")

	return dumpCmd
}
