// Package graph assembles extracted lineage facts into a typed dependency
// graph of tables, joins, outputs and columns, ready for flow layout.
package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chartline-io/chartline/internal/lineage"
)

// NodeKind identifies what a node represents. The set is closed: renderers
// key their color maps on it.
type NodeKind string

const (
	NodeTable  NodeKind = "table"
	NodeJoin   NodeKind = "join"
	NodeOutput NodeKind = "output"
	NodeColumn NodeKind = "column"
)

// EdgeKind identifies the relation an edge encodes. Closed set, like NodeKind.
type EdgeKind string

const (
	EdgeContains   EdgeKind = "contains"
	EdgeProjection EdgeKind = "projection"
	EdgeDerives    EdgeKind = "derives"
	EdgeJoinIn     EdgeKind = "join_in"
	EdgeJoinOut    EdgeKind = "join_out"
)

// Node is one vertex of the lineage graph. Table ids are the
// fully-qualified table identifier; join ids are synthetic ("__join__<n>");
// output ids are the canonical role name.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"type"`
	Label string   `json:"label"`
}

// Edge connects two nodes. Weight accumulates when multiple facts collapse
// into the same edge; Label carries predicate text for join edges so the UI
// can render it even when the predicate was unparsable.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"type"`
	Weight int      `json:"-"`
	Label  string   `json:"label,omitempty"`
}

// Graph is the builder output. Node and edge order is deterministic
// (first-seen), which truncation and layout both rely on.
type Graph struct {
	Nodes     []Node
	Edges     []Edge
	Truncated bool
}

// Default caps bounding layout cost.
const (
	DefaultMaxNodes = 800
	DefaultMaxEdges = 2000
)

// Options configures graph construction.
type Options struct {
	// IncludeColumns opts into column-level nodes for group-by and filter
	// references.
	IncludeColumns bool

	// MaxNodes and MaxEdges cap graph size; zero means the default.
	MaxNodes int
	MaxEdges int
}

// builder accumulates nodes and edges with first-seen dedup.
type builder struct {
	nodes     []Node
	nodeIndex map[string]int
	edges     []Edge
	edgeIndex map[string]int
}

func newBuilder() *builder {
	return &builder{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
	}
}

func (b *builder) addNode(id string, kind NodeKind, label string) {
	if id == "" {
		return
	}
	if _, ok := b.nodeIndex[id]; ok {
		return
	}
	b.nodeIndex[id] = len(b.nodes)
	b.nodes = append(b.nodes, Node{ID: id, Kind: kind, Label: label})
}

func (b *builder) addEdge(source, target string, kind EdgeKind, label string) {
	if source == "" || target == "" || source == target {
		return
	}
	key := source + "\x00" + target + "\x00" + string(kind)
	if i, ok := b.edgeIndex[key]; ok {
		b.edges[i].Weight++
		return
	}
	b.edgeIndex[key] = len(b.edges)
	b.edges = append(b.edges, Edge{Source: source, Target: target, Kind: kind, Weight: 1, Label: label})
}

func (b *builder) hasEdge(source, target string, kind EdgeKind) bool {
	_, ok := b.edgeIndex[source+"\x00"+target+"\x00"+string(kind)]
	return ok
}

// Build combines normalized lineage facts into a typed graph. It is a pure
// function of its inputs; zero-edge nodes are pruned and the result is
// truncated deterministically at the configured caps.
func Build(facts lineage.Facts, opts Options) *Graph {
	maxNodes := opts.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	maxEdges := opts.MaxEdges
	if maxEdges <= 0 {
		maxEdges = DefaultMaxEdges
	}

	b := newBuilder()

	for _, table := range facts.Sources {
		b.addNode(table, NodeTable, shortName(table))
	}

	// Output nodes, with best-effort DERIVES edges from every table the
	// output's expression references. No match means no edge, not a guess.
	for _, role := range lineage.Roles {
		expr, ok := facts.Outputs[role]
		if !ok || expr == "" {
			continue
		}
		b.addNode(role, NodeOutput, lineage.DisplayLabel(role, expr))
		for _, table := range referencedTables(expr, facts) {
			b.addEdge(table, role, EdgeDerives, "")
		}
	}

	// One join node per normalized edge, numbered in source order.
	joinEdges := lineage.NormalizeJoins(facts)
	for i, je := range joinEdges {
		id := fmt.Sprintf("__join__%d", i+1)
		b.addNode(id, NodeJoin, fmt.Sprintf("JOIN %d", i+1))

		left := sideTable(facts.Joins[i].Left, facts)
		right := sideTable(facts.Joins[i].Right, facts)
		if right == "" {
			right = facts.Joins[i].Table
		}
		b.addEdge(left, id, EdgeJoinIn, je.On)
		b.addEdge(right, id, EdgeJoinIn, je.On)

		routeJoinOutputs(b, id, left, right, facts)
	}

	if opts.IncludeColumns {
		addColumnDetail(b, facts)
	}

	g := &Graph{Nodes: b.nodes, Edges: b.edges}
	g.prune()
	g.truncate(maxNodes, maxEdges)
	return g
}

// routeJoinOutputs wires a join node to every output one of its input
// tables derives. This is an explicit heuristic, an approximation of true
// column-level lineage through the join, kept separate so it can be
// replaced without touching the rest of the builder.
func routeJoinOutputs(b *builder, joinID, left, right string, facts lineage.Facts) {
	for _, role := range lineage.Roles {
		if _, ok := facts.Outputs[role]; !ok {
			continue
		}
		if b.hasEdge(left, role, EdgeDerives) || b.hasEdge(right, role, EdgeDerives) {
			b.addEdge(joinID, role, EdgeJoinOut, "")
		}
	}
}

// sideTable resolves one side of a join predicate to its table.
func sideTable(ref lineage.ColumnRef, facts lineage.Facts) string {
	table, _ := lineage.ResolveTable(ref, facts.Aliases)
	return table
}

var reIdent = regexp.MustCompile(`[A-Za-z_][\w$]*(?:\.[A-Za-z_][\w$]*)*`)

// referencedTables scans an output expression for identifiers that match a
// known alias or table and returns the tables they resolve to, first-seen
// order, deduplicated.
func referencedTables(expr string, facts lineage.Facts) []string {
	var tables []string
	seen := make(map[string]bool)
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			tables = append(tables, t)
		}
	}

	for _, ident := range reIdent.FindAllString(expr, -1) {
		qualifier := ident
		if i := strings.Index(ident, "."); i >= 0 {
			qualifier = ident[:i]
		}
		if table, ok := facts.Aliases[qualifier]; ok {
			add(table)
			continue
		}
		for _, table := range facts.Sources {
			if qualifier == table || qualifier == shortName(table) {
				add(table)
				break
			}
		}
	}
	return tables
}

// addColumnDetail emits column nodes for group-by and filter references:
// PROJECTION edges from the owning table for grouped columns, CONTAINS for
// filtered ones. An identifier that is itself an output role is a SELECT
// alias, not a table column, and is skipped.
func addColumnDetail(b *builder, facts lineage.Facts) {
	for _, raw := range facts.GroupBy {
		addColumnRef(b, facts, raw, EdgeProjection)
	}
	for _, raw := range facts.Filters {
		addColumnRef(b, facts, raw, EdgeContains)
	}
}

func addColumnRef(b *builder, facts lineage.Facts, raw string, kind EdgeKind) {
	ident := columnIdent(raw)
	if ident == "" {
		return
	}
	if _, ok := facts.Outputs[strings.ToLower(ident)]; ok {
		return
	}
	qualifier := ""
	if i := strings.Index(ident, "."); i >= 0 {
		qualifier = ident[:i]
	}

	b.addNode(ident, NodeColumn, shortName(ident))
	if table, ok := facts.Aliases[qualifier]; ok {
		b.addEdge(table, ident, kind, "")
	}
}

// columnIdent picks the first identifier in a fact fragment that looks like
// a column reference: function-call names (followed by an open paren) are
// skipped, so "DATE(ts)" yields "ts".
func columnIdent(raw string) string {
	for _, loc := range reIdent.FindAllStringIndex(raw, -1) {
		rest := strings.TrimLeft(raw[loc[1]:], " \t\r\n")
		if strings.HasPrefix(rest, "(") {
			continue
		}
		return raw[loc[0]:loc[1]]
	}
	return ""
}

// prune drops nodes that participate in no edge; isolated nodes add no
// visual value.
func (g *Graph) prune() {
	connected := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		connected[e.Source] = true
		connected[e.Target] = true
	}

	kept := g.Nodes[:0]
	for _, n := range g.Nodes {
		if connected[n.ID] {
			kept = append(kept, n)
		}
	}
	g.Nodes = kept
}

// truncate enforces the node/edge caps, keeping first-seen order. Edges
// referencing a dropped node are dropped with it.
func (g *Graph) truncate(maxNodes, maxEdges int) {
	if len(g.Nodes) > maxNodes {
		g.Nodes = g.Nodes[:maxNodes]
		g.Truncated = true
	}

	kept := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		kept[n.ID] = true
	}

	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if kept[e.Source] && kept[e.Target] {
			edges = append(edges, e)
		}
	}
	g.Edges = edges

	if len(g.Edges) > maxEdges {
		g.Edges = g.Edges[:maxEdges]
		g.Truncated = true
	}
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func shortName(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}
