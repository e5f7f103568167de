package lineage

// LineageRequest is the body of POST /api/lineage.
type LineageRequest struct {
	SQL string `json:"sql"`
	// FilterDateColumn is caller-known metadata; when set it overrides
	// the inferred filter date column.
	FilterDateColumn string `json:"filter_date_column,omitempty"`
}

// Viewport is the target rendering area in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GraphRequest is the body of POST /api/lineage/graph.
type GraphRequest struct {
	SQL              string   `json:"sql"`
	FilterDateColumn string   `json:"filter_date_column,omitempty"`
	Viewport         Viewport `json:"viewport"`
	IncludeColumns   bool     `json:"include_columns,omitempty"`
}

// errorResponse is the JSON body returned for request failures.
type errorResponse struct {
	Error string `json:"error"`
}
