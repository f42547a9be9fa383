// Copyright © 2025 Jake Rogers <code@supportoss.org>
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/JakeTRogers/geoBuddy/logger"
	"github.com/JakeTRogers/geoBuddy/metrics"
	"github.com/JakeTRogers/geoBuddy/source"
	"github.com/JakeTRogers/geoBuddy/tree"
)

// rowKind identifies what a visible line of the tree pane shows.
type rowKind int

const (
	// nodeRow shows a node of the forest.
	nodeRow rowKind = iota
	// loadingRow stands in for children that are being fetched.
	loadingRow
	// errorRow stands in for children whose fetch failed.
	errorRow
)

// treeRow is one visible line of the tree pane.
type treeRow struct {
	kind     rowKind
	node     tree.Node
	parentID string // set for loading and error rows
	depth    int
	err      error
}

// searchEntry is a loaded node offered to the fuzzy finder.
type searchEntry struct {
	id    string
	label string
}

// Messages produced by the explorer's commands.
type (
	rootsLoadedMsg struct {
		forest tree.Forest
		err    error
	}
	childrenLoadedMsg struct {
		parentID string
		nodes    []tree.Node
		err      error
	}
	selectionMsg struct {
		selection tree.Selection
		ok        bool
	}
	clipboardMsg struct {
		id  string
		err error
	}
)

// explorerModel is the Bubbletea model for the geographic explorer.
type explorerModel struct {
	// Data
	ctx        context.Context
	src        source.Source
	forest     tree.Forest
	controller *tree.Controller
	publisher  *tree.Publisher
	selections <-chan tree.Selection
	metrics    *metrics.Metrics

	// Settings
	policyName      string
	pruneOnCollapse bool

	// Load state
	rootsLoading bool
	rootsErr     error
	loading      map[string]bool  // parent ids with a fetch in flight
	failed       map[string]error // parent ids whose last fetch failed

	// UI State
	rows     []treeRow
	cursor   int
	selected tree.Selection // last value received from the selection hub
	status   string
	spinner  spinner.Model

	// Search
	searchMode    bool
	search        textinput.Model
	searchEntries []searchEntry
	searchResults fuzzy.Matches
	searchCursor  int

	// Dimensions
	width  int
	height int

	quitting bool
}

// Key bindings
type explorerKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Select   key.Binding
	Search   key.Binding
	Yank     key.Binding
	Retry    key.Binding
	Escape   key.Binding
	Quit     key.Binding
}

var explorerKeys = explorerKeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand/collapse")),
	Expand:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
	Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
	Select:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Yank:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
	Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel search")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Styles
var (
	focusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")). // Purple/blue
				Padding(0, 1)

	unfocusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")). // Gray
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // Bright pink
			Bold(true)

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	searchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)
)

// newExplorerModel creates a model that loads its roots from src on Init.
func newExplorerModel(ctx context.Context, src source.Source, controller *tree.Controller, publisher *tree.Publisher,
	selections <-chan tree.Selection, m *metrics.Metrics, s settings) explorerModel {

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	ti := textinput.New()
	ti.Prompt = "🔍 "
	ti.Placeholder = "name"
	ti.CharLimit = 64

	return explorerModel{
		ctx:             ctx,
		src:             src,
		controller:      controller,
		publisher:       publisher,
		selections:      selections,
		metrics:         m,
		policyName:      s.policy,
		pruneOnCollapse: s.pruneOnCollapse,
		rootsLoading:    true,
		loading:         make(map[string]bool),
		failed:          make(map[string]error),
		spinner:         sp,
		search:          ti,
		width:           80,
		height:          24,
	}
}

// fetchRoots loads the continents.
func fetchRoots(ctx context.Context, src source.Source) tea.Cmd {
	return func() tea.Msg {
		forest, err := src.Roots(ctx)
		return rootsLoadedMsg{forest: forest, err: err}
	}
}

// fetchChildren loads the children of parentID.
func fetchChildren(ctx context.Context, src source.Source, parentID string) tea.Cmd {
	return func() tea.Msg {
		nodes, err := src.Children(ctx, parentID)
		return childrenLoadedMsg{parentID: parentID, nodes: nodes, err: err}
	}
}

// listenSelection waits for the next selection published to the hub.
func listenSelection(ch <-chan tree.Selection) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		return selectionMsg{selection: s, ok: ok}
	}
}

// copyID writes id to the system clipboard.
func copyID(id string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{id: id, err: clipboard.WriteAll(id)}
	}
}

// Init implements tea.Model
func (m explorerModel) Init() tea.Cmd {
	return tea.Batch(fetchRoots(m.ctx, m.src), m.spinner.Tick, listenSelection(m.selections))
}

// busy reports whether any fetch is in flight.
func (m explorerModel) busy() bool {
	return m.rootsLoading || len(m.loading) > 0
}

// Update implements tea.Model
func (m explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case rootsLoadedMsg:
		m.rootsLoading = false
		m.rootsErr = msg.err
		if msg.err != nil {
			l.Error().Err(msg.err).Msg("loading continents")
			return m, nil
		}
		m.forest = msg.forest
		m.controller.Reset()
		m.loading = make(map[string]bool)
		m.failed = make(map[string]error)
		m.cursor = 0
		m.rebuildRows()
		return m, nil

	case childrenLoadedMsg:
		m.applyChildren(msg)
		return m, nil

	case selectionMsg:
		if !msg.ok {
			return m, nil
		}
		m.selected = msg.selection
		return m, listenSelection(m.selections)

	case clipboardMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("copied %s", msg.id)
		}
		return m, nil

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchInput(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey handles keyboard input while browsing the tree.
func (m explorerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, explorerKeys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, explorerKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, explorerKeys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, explorerKeys.Toggle):
		row, ok := m.currentRow()
		if !ok || row.kind != nodeRow {
			return m, nil
		}
		if m.controller.IsExpanded(row.node.ID) {
			m.collapse(row.node.ID)
			return m, nil
		}
		return m, m.expand(row.node.ID)

	case key.Matches(msg, explorerKeys.Expand):
		if row, ok := m.currentRow(); ok && row.kind == nodeRow {
			return m, m.expand(row.node.ID)
		}
		return m, nil

	case key.Matches(msg, explorerKeys.Collapse):
		row, ok := m.currentRow()
		if !ok {
			return m, nil
		}
		if row.kind == nodeRow && m.controller.IsExpanded(row.node.ID) {
			m.collapse(row.node.ID)
			return m, nil
		}
		// on a collapsed node or placeholder, close the enclosing branch instead
		parentID := row.parentID
		if row.kind == nodeRow {
			parentID, _ = tree.ParentOf(m.forest, row.node.ID)
		}
		if parentID != "" {
			m.collapse(parentID)
			m.moveCursorTo(parentID)
		}
		return m, nil

	case key.Matches(msg, explorerKeys.Select):
		if row, ok := m.currentRow(); ok && row.kind == nodeRow {
			m.publisher.Select(row.node.ID)
			m.metrics.Selections.WithLabelValues(row.node.Kind.String()).Inc()
		}
		return m, nil

	case key.Matches(msg, explorerKeys.Yank):
		if row, ok := m.currentRow(); ok && row.kind == nodeRow {
			return m, copyID(row.node.ID)
		}
		return m, nil

	case key.Matches(msg, explorerKeys.Retry):
		if m.rootsErr != nil {
			m.rootsErr = nil
			m.rootsLoading = true
			return m, tea.Batch(fetchRoots(m.ctx, m.src), m.spinner.Tick)
		}
		if row, ok := m.currentRow(); ok && row.kind == errorRow {
			return m, m.expand(row.parentID)
		}
		return m, nil

	case key.Matches(msg, explorerKeys.Search):
		m.enterSearchMode()
		return m, textinput.Blink
	}

	return m, nil
}

// expand opens id and starts a fetch when its children were never loaded.
func (m *explorerModel) expand(id string) tea.Cmd {
	node, ok := tree.Find(m.forest, id)
	if !ok || !node.Expandable() {
		return nil
	}

	if !m.controller.IsExpanded(id) {
		m.controller.Expand(m.forest, id)
		m.metrics.Toggles.WithLabelValues(m.policyName, "expand").Inc()
	}

	var cmd tea.Cmd
	if node.Children.State() == tree.Unloaded && !m.loading[id] {
		m.loading[id] = true
		delete(m.failed, id)
		cmd = tea.Batch(fetchChildren(m.ctx, m.src, id), m.spinner.Tick)
	}
	m.rebuildRows()
	return cmd
}

// collapse closes id, discarding its children when pruning is enabled.
func (m *explorerModel) collapse(id string) {
	if !m.controller.IsExpanded(id) {
		return
	}
	m.controller.Collapse(m.forest, id)
	m.metrics.Toggles.WithLabelValues(m.policyName, "collapse").Inc()
	if m.pruneOnCollapse && !m.loading[id] {
		m.forest = tree.PruneChildren(m.forest, id)
		delete(m.failed, id)
	}
	m.rebuildRows()
}

// applyChildren splices a finished fetch into the forest.
func (m *explorerModel) applyChildren(msg childrenLoadedMsg) {
	delete(m.loading, msg.parentID)
	if msg.err != nil {
		l.Error().Err(msg.err).Str("parent", msg.parentID).Msg("loading children")
		m.failed[msg.parentID] = msg.err
		m.rebuildRows()
		return
	}
	if _, ok := tree.Find(m.forest, msg.parentID); !ok {
		l.Warn().Str("parent", msg.parentID).Msg("dropping children of a node no longer in the tree")
		m.metrics.StaleLoads.Inc()
		return
	}
	m.forest = tree.InsertChildren(m.forest, msg.parentID, msg.nodes)
	m.rebuildRows()
}

// rebuildRows flattens the forest following the expanded ids, keeping the
// cursor on the same node when it is still visible.
func (m *explorerModel) rebuildRows() {
	var cursorID string
	if row, ok := m.currentRow(); ok {
		cursorID = rowID(row)
	}

	m.rows = nil
	var visit func(nodes []tree.Node, depth int)
	visit = func(nodes []tree.Node, depth int) {
		for _, n := range nodes {
			m.rows = append(m.rows, treeRow{kind: nodeRow, node: n, depth: depth})
			if !m.controller.IsExpanded(n.ID) {
				continue
			}
			switch {
			case m.loading[n.ID]:
				m.rows = append(m.rows, treeRow{kind: loadingRow, parentID: n.ID, depth: depth + 1})
			case m.failed[n.ID] != nil:
				m.rows = append(m.rows, treeRow{kind: errorRow, parentID: n.ID, depth: depth + 1, err: m.failed[n.ID]})
			case n.Children.State() == tree.Loaded:
				visit(n.Children.Nodes(), depth+1)
			}
		}
	}
	visit(m.forest, 0)

	if cursorID != "" {
		m.moveCursorTo(cursorID)
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

// rowID returns the id a row stands for: the node's own id, or the parent id
// for placeholders.
func rowID(r treeRow) string {
	if r.kind == nodeRow {
		return r.node.ID
	}
	return r.parentID
}

// moveCursorTo places the cursor on the node row for id if it is visible.
func (m *explorerModel) moveCursorTo(id string) {
	for i, r := range m.rows {
		if r.kind == nodeRow && r.node.ID == id {
			m.cursor = i
			return
		}
	}
}

// currentRow returns the row under the cursor.
func (m explorerModel) currentRow() (treeRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return treeRow{}, false
	}
	return m.rows[m.cursor], true
}

// handleSearchInput handles keyboard input in search mode
func (m explorerModel) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, explorerKeys.Escape):
		m.exitSearchMode()
		return m, nil

	case msg.Type == tea.KeyUp:
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case msg.Type == tea.KeyDown:
		if m.searchCursor < len(m.searchResults)-1 {
			m.searchCursor++
		}
		return m, nil

	case msg.Type == tea.KeyEnter:
		if m.searchCursor < len(m.searchResults) {
			target := m.searchEntries[m.searchResults[m.searchCursor].Index].id
			m.exitSearchMode()
			m.jumpTo(target)
		} else {
			m.exitSearchMode()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.performSearch()
	return m, cmd
}

// enterSearchMode collects the loaded nodes and focuses the search input.
func (m *explorerModel) enterSearchMode() {
	m.searchMode = true
	m.search.Reset()
	m.search.Focus()
	m.searchResults = nil
	m.searchCursor = 0
	m.searchEntries = nil
	tree.Walk(m.forest, func(n tree.Node, _ int) bool {
		m.searchEntries = append(m.searchEntries, searchEntry{id: n.ID, label: n.Name})
		return true
	})
}

// exitSearchMode cleans up search state
func (m *explorerModel) exitSearchMode() {
	m.searchMode = false
	m.search.Blur()
	m.search.Reset()
	m.searchResults = nil
	m.searchCursor = 0
}

// performSearch fuzzy-matches the query against loaded node names.
func (m *explorerModel) performSearch() {
	query := m.search.Value()
	if query == "" {
		m.searchResults = nil
		m.searchCursor = 0
		return
	}
	labels := make([]string, len(m.searchEntries))
	for i, e := range m.searchEntries {
		labels[i] = e.label
	}
	m.searchResults = fuzzy.Find(query, labels)
	if m.searchCursor >= len(m.searchResults) {
		m.searchCursor = 0
	}
}

// jumpTo expands the ancestors of id from the root down and puts the cursor on it.
func (m *explorerModel) jumpTo(id string) {
	chain, ok := tree.Ancestors(m.forest, id)
	if !ok {
		return
	}
	for _, ancestor := range chain {
		if !m.controller.IsExpanded(ancestor) {
			m.controller.Expand(m.forest, ancestor)
			m.metrics.Toggles.WithLabelValues(m.policyName, "expand").Inc()
		}
	}
	m.rebuildRows()
	m.moveCursorTo(id)
}

// View implements tea.Model
func (m explorerModel) View() string {
	if m.quitting {
		return ""
	}

	totalWidth := m.width - 4 // Account for borders
	leftWidth := totalWidth * 3 / 5
	rightWidth := totalWidth - leftWidth - 2 // -2 for gap

	if leftWidth < 30 {
		leftWidth = 30
	}
	if rightWidth < 30 {
		rightWidth = 30
	}

	contentHeight := m.height - 8
	if contentHeight < 10 {
		contentHeight = 10
	}

	treeContent := m.renderTreePane(leftWidth-4, contentHeight)
	treeStyle := focusedBorderStyle
	if m.searchMode {
		treeStyle = unfocusedBorderStyle
	}
	treePane := treeStyle.Width(leftWidth).Height(contentHeight + 2).Render(treeContent)

	detailContent := m.renderDetailPane(rightWidth - 4)
	detailPane := unfocusedBorderStyle.Width(rightWidth).Height(contentHeight + 2).Render(detailContent)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, treePane, "  ", detailPane)

	title := titleStyle.Render("🌍 geoBuddy")

	searchBar := ""
	if m.searchMode {
		searchBar = searchStyle.Render(" " + m.search.View() + " ")
		if len(m.searchResults) > 0 {
			searchBar += dimStyle.Render(fmt.Sprintf(" (%d matches)", len(m.searchResults)))
		} else if m.search.Value() != "" {
			searchBar += dimStyle.Render(" (no matches)")
		}
		searchBar += "\n"
	}

	footer := m.renderHelp()
	if m.status != "" {
		footer = dimStyle.Render(m.status) + "\n" + footer
	}

	return fmt.Sprintf("%s\n%s%s\n%s", title, searchBar, panes, footer)
}

// renderTreePane renders the left pane showing the hierarchy
func (m explorerModel) renderTreePane(width, height int) string {
	if m.searchMode && m.search.Value() != "" {
		return m.renderSearchResults(width, height)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("World"))
	b.WriteString("\n")

	switch {
	case m.rootsLoading:
		b.WriteString(m.spinner.View() + " loading continents…")
		return b.String()
	case m.rootsErr != nil:
		b.WriteString(errorStyle.Render(truncate("✗ "+m.rootsErr.Error(), width)))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  press r to retry"))
		return b.String()
	case len(m.rows) == 0:
		b.WriteString(dimStyle.Render("  (no continents)"))
		return b.String()
	}

	visibleCount := max(height-2, 1)
	startIdx := 0
	if m.cursor >= visibleCount {
		startIdx = m.cursor - visibleCount + 1
	}
	endIdx := min(startIdx+visibleCount, len(m.rows))

	for i := startIdx; i < endIdx; i++ {
		line := m.renderRow(m.rows[i], width-2)
		if i == m.cursor && !m.searchMode {
			b.WriteString(cursorStyle.Render("► ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if len(m.rows) > visibleCount {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))
	}

	return b.String()
}

// renderRow renders a single tree row
func (m explorerModel) renderRow(r treeRow, maxWidth int) string {
	indent := strings.Repeat("  ", r.depth)
	switch r.kind {
	case loadingRow:
		return indent + m.spinner.View() + dimStyle.Render(" loading…")
	case errorRow:
		return indent + errorStyle.Render(truncate("✗ "+r.err.Error(), maxWidth-len(indent)))
	}

	n := r.node
	icon := "•"
	if n.Expandable() {
		icon = "▸"
		if m.controller.IsExpanded(n.ID) {
			icon = "▾"
		}
	}

	suffix := ""
	if count := n.ChildCount(); count > 0 {
		suffix = fmt.Sprintf(" (%d)", count)
	}
	marker := ""
	if n.ID == m.selected.ID {
		marker = " ●"
	}

	nameWidth := maxWidth - len(indent) - 2 - runewidth.StringWidth(suffix) - runewidth.StringWidth(marker)
	line := fmt.Sprintf("%s%s %s%s", indent, icon, truncate(n.Name, nameWidth), dimStyle.Render(suffix))
	if marker != "" {
		line += checkStyle.Render(marker)
	}
	return line
}

// renderSearchResults renders the fuzzy matches
func (m explorerModel) renderSearchResults(width, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Search Results (%d)", len(m.searchResults))))
	b.WriteString("\n")

	if len(m.searchResults) == 0 {
		b.WriteString(dimStyle.Render("  No matches found"))
		return b.String()
	}

	visibleCount := max(height-2, 1)
	startIdx := 0
	if m.searchCursor >= visibleCount {
		startIdx = m.searchCursor - visibleCount + 1
	}
	endIdx := min(startIdx+visibleCount, len(m.searchResults))

	for i := startIdx; i < endIdx; i++ {
		entry := m.searchEntries[m.searchResults[i].Index]
		kind, _, _ := tree.Decode(entry.id)
		line := fmt.Sprintf("%s %s", truncate(entry.label, width-14), dimStyle.Render(kind.String()))
		if i == m.searchCursor {
			b.WriteString(cursorStyle.Render("► ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderDetailPane renders the right pane describing the selected node
func (m explorerModel) renderDetailPane(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Selection"))
	b.WriteString("\n")

	if m.selected.IsEmpty() {
		b.WriteString(dimStyle.Render("  (nothing selected)\n  press space on a node"))
		return b.String()
	}

	field := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", label)))
		b.WriteString(truncate(value, width-9))
		b.WriteString("\n")
	}

	field("ID", m.selected.ID)
	kind := m.selected.Kind.String()
	if kind == "" {
		kind = "unknown"
	}
	field("Kind", kind)

	node, ok := tree.Find(m.forest, m.selected.ID)
	if !ok {
		return b.String()
	}
	field("Name", node.Name)

	if chain, ok := tree.Ancestors(m.forest, node.ID); ok && len(chain) > 0 {
		names := make([]string, 0, len(chain))
		for _, id := range chain {
			if a, ok := tree.Find(m.forest, id); ok {
				names = append(names, a.Name)
			}
		}
		field("Path", strings.Join(names, " › "))
	}

	if node.Kind != tree.City {
		children := fmt.Sprintf("%d", node.ChildCount())
		if !node.Children.IsLoaded() {
			children += dimStyle.Render(" (not loaded)")
		}
		field("Children", children)
	}

	return b.String()
}

// renderHelp renders the help bar at the bottom
func (m explorerModel) renderHelp() string {
	if m.searchMode {
		return helpStyle.Render("↑↓: navigate • Enter: jump • Esc: cancel")
	}

	parts := []string{
		"↑↓: navigate",
		"Enter: expand/collapse",
		"Space: select",
		"/: search",
		"y: copy id",
		"q: quit",
	}
	if m.rootsErr != nil || len(m.failed) > 0 {
		parts = append(parts, "r: retry")
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

// truncate shortens s to at most width cells, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// runExplorer starts the interactive explorer and blocks until it exits.
func runExplorer(ctx context.Context, src source.Source, s settings, m *metrics.Metrics) error {
	policy, err := tree.PolicyByName(s.policy)
	if err != nil {
		return err
	}

	if s.logFile != "" {
		f, err := os.OpenFile(s.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
		defer logger.SetOutput(os.Stderr)
	} else {
		// Disable logging before starting TUI to prevent interference with display
		l.Warn().Msg("disabling logging for interactive explorer")
		logger.Disable()
	}

	hub := tree.NewSelectionHub()
	selections, cancel := hub.Subscribe(1)
	defer cancel()
	publisher := hub.Open()
	defer publisher.Teardown()

	model := newExplorerModel(ctx, src, tree.NewController(policy), publisher, selections, m, s)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running explorer: %w", err)
	}
	return nil
}
