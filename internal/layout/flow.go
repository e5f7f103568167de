// Package layout positions a lineage graph with a directed, column-based
// flow layout: nodes ordered left to right by topological rank, stacked
// vertically within a column, edges sized by flow weight. Every call is a
// pure function of its inputs.
package layout

import (
	"math"

	"github.com/chartline-io/chartline/internal/graph"
)

// Geometry constants, in layout units before the view transform.
const (
	nodeWidth    = 140.0
	minNodeGap   = 12.0
	minHeight    = 26.0
	heightPerArc = 14.0
	columnGap    = 90.0
	margin       = 24.0

	// View scale clamp; avoids degenerate zoom on very sparse or very
	// dense graphs.
	minScale = 0.3
	maxScale = 1.2
)

// Rect is a node rectangle in layout units.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Link is a rendered edge: a smooth curve from the right edge of the source
// rectangle to the left edge of the target, with thickness Width.
type Link struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Kind   graph.EdgeKind `json:"type"`
	Width  float64        `json:"width"`
	X0     float64        `json:"x0"`
	Y0     float64        `json:"y0"`
	X1     float64        `json:"x1"`
	Y1     float64        `json:"y1"`
}

// Transform fits the layout bounding box into the requested viewport:
// scale uniformly, then translate.
type Transform struct {
	Scale float64 `json:"scale"`
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`
}

// Positioned is a graph plus computed geometry.
type Positioned struct {
	Graph     *graph.Graph
	Rects     map[string]Rect
	Links     []Link
	Transform Transform
}

// Flow lays out g for a viewport of the given size. Degenerate graphs
// (nil, empty, cyclic from malformed input) yield an empty positioned
// value rather than failing.
func Flow(g *graph.Graph, width, height float64) *Positioned {
	p := &Positioned{
		Graph:     g,
		Rects:     make(map[string]Rect),
		Transform: Transform{Scale: 1},
	}
	if g == nil || len(g.Nodes) == 0 {
		return p
	}

	ranks := rankNodes(g)

	// Group nodes into columns, preserving first-appearance order.
	maxRank := 0
	for _, r := range ranks {
		if r > maxRank {
			maxRank = r
		}
	}
	columns := make([][]string, maxRank+1)
	for _, n := range g.Nodes {
		r := ranks[n.ID]
		columns[r] = append(columns[r], n.ID)
	}

	weights := nodeWeights(g)

	for rank, column := range columns {
		x0 := margin + float64(rank)*(nodeWidth+columnGap)
		y := margin
		for _, id := range column {
			h := minHeight
			if w := weights[id]; w > 1 {
				h = math.Max(minHeight, float64(w)*heightPerArc)
			}
			p.Rects[id] = Rect{X0: x0, Y0: y, X1: x0 + nodeWidth, Y1: y + h}
			y += h + minNodeGap
		}
	}

	for _, e := range g.Edges {
		src, ok := p.Rects[e.Source]
		if !ok {
			continue
		}
		dst, ok := p.Rects[e.Target]
		if !ok {
			continue
		}
		w := float64(e.Weight)
		if w < 1 {
			w = 1
		}
		p.Links = append(p.Links, Link{
			Source: e.Source,
			Target: e.Target,
			Kind:   e.Kind,
			Width:  w,
			X0:     src.X1,
			Y0:     (src.Y0 + src.Y1) / 2,
			X1:     dst.X0,
			Y1:     (dst.Y0 + dst.Y1) / 2,
		})
	}

	p.Transform = fitTransform(p.Rects, width, height)
	return p
}

// rankNodes assigns each node a column index such that edges point from a
// lower or equal column to a higher one wherever the graph is acyclic.
// Relaxation is bounded at len(nodes) passes so a back edge from
// malformed input cannot loop forever.
func rankNodes(g *graph.Graph) map[string]int {
	ranks := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		ranks[n.ID] = 0
	}

	for pass := 0; pass < len(g.Nodes); pass++ {
		changed := false
		for _, e := range g.Edges {
			if _, ok := ranks[e.Source]; !ok {
				continue
			}
			if _, ok := ranks[e.Target]; !ok {
				continue
			}
			if ranks[e.Target] <= ranks[e.Source] {
				ranks[e.Target] = ranks[e.Source] + 1
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return ranks
}

// nodeWeights sums incident edge weight per node.
func nodeWeights(g *graph.Graph) map[string]int {
	weights := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		w := e.Weight
		if w < 1 {
			w = 1
		}
		weights[e.Source] += w
		weights[e.Target] += w
	}
	return weights
}

// fitTransform computes a uniform scale and translation fitting the node
// bounding box into the viewport with a small margin, clamped to the sane
// scale range.
func fitTransform(rects map[string]Rect, width, height float64) Transform {
	if len(rects) == 0 || width <= 0 || height <= 0 {
		return Transform{Scale: 1}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range rects {
		minX = math.Min(minX, r.X0)
		minY = math.Min(minY, r.Y0)
		maxX = math.Max(maxX, r.X1)
		maxY = math.Max(maxY, r.Y1)
	}

	bw := maxX - minX
	bh := maxY - minY
	if bw <= 0 {
		bw = 1
	}
	if bh <= 0 {
		bh = 1
	}

	scale := math.Min((width-2*margin)/bw, (height-2*margin)/bh)
	scale = math.Min(maxScale, math.Max(minScale, scale))

	// Center the scaled bounding box in the viewport.
	tx := (width-bw*scale)/2 - minX*scale
	ty := (height-bh*scale)/2 - minY*scale

	return Transform{Scale: scale, TX: tx, TY: ty}
}
