package engine

import (
	"github.com/chartline-io/chartline/internal/graph"
	"github.com/chartline-io/chartline/internal/layout"
	"github.com/chartline-io/chartline/internal/lineage"
)

// Default viewport used when the caller does not supply one.
const (
	defaultViewportWidth  = 1200.0
	defaultViewportHeight = 800.0
)

// GraphRequest describes one graph-and-layout computation.
type GraphRequest struct {
	SQL              string
	FilterDateColumn string
	// Viewport size in pixels. Zero values fall back to defaults.
	Width, Height float64
	// IncludeColumns adds column-level detail nodes for filter and
	// group-by columns.
	IncludeColumns bool
}

// GraphPayload is the node/edge list handed to the renderer.
type GraphPayload struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// GraphLayout is the positioned graph wire shape: the typed graph, node
// rectangles, rendered links, and the transform fitting it all into the
// requested viewport.
type GraphLayout struct {
	Graph         GraphPayload           `json:"graph"`
	Positions     map[string]layout.Rect `json:"positions"`
	Links         []layout.Link          `json:"links"`
	ViewTransform layout.Transform       `json:"view_transform"`
	Truncated     bool                   `json:"truncated"`
}

// BuildGraphAndLayout extracts lineage from the request SQL, builds the
// typed graph and positions it for the requested viewport.
func (e *Engine) BuildGraphAndLayout(req GraphRequest) (*GraphLayout, error) {
	if err := validateSQL(req.SQL); err != nil {
		return nil, err
	}

	width, height := req.Width, req.Height
	if width <= 0 {
		width = defaultViewportWidth
	}
	if height <= 0 {
		height = defaultViewportHeight
	}

	facts := lineage.Extract(req.SQL)
	if req.FilterDateColumn != "" {
		facts.FilterDateColumn = req.FilterDateColumn
	}

	g := graph.Build(facts, graph.Options{IncludeColumns: req.IncludeColumns})
	positioned := layout.Flow(g, width, height)

	result := &GraphLayout{
		Graph: GraphPayload{
			Nodes: g.Nodes,
			Edges: g.Edges,
		},
		Positions:     positioned.Rects,
		Links:         positioned.Links,
		ViewTransform: positioned.Transform,
		Truncated:     g.Truncated,
	}
	if result.Graph.Nodes == nil {
		result.Graph.Nodes = []graph.Node{}
	}
	if result.Graph.Edges == nil {
		result.Graph.Edges = []graph.Edge{}
	}
	if result.Links == nil {
		result.Links = []layout.Link{}
	}
	return result, nil
}
