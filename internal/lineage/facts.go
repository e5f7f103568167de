package lineage

// Roles are the canonical chart-data roles a SELECT-list alias may bind to.
var Roles = []string{"x", "y", "label", "value"}

// ColumnRef is one side of a join predicate, as written in the SQL.
// Alias is the raw qualifier ("o" in "o.customer_id") and may be empty.
type ColumnRef struct {
	Alias  string
	Column string
}

// JoinFact is one detected JOIN clause. For USING joins the extractor emits
// one JoinFact per column. When the predicate could not be parsed, Left and
// Right are zero and On carries the raw predicate text verbatim.
type JoinFact struct {
	Kind  string // LEFT, INNER, ... empty for plain JOIN
	Table string // right-hand table, canonicalized
	Left  ColumnRef
	Right ColumnRef
	On    string // human-readable predicate text
}

// JoinEdge is a normalized join with both sides resolved to display form.
type JoinEdge struct {
	Kind  string `json:"kind,omitempty"`
	Left  string `json:"left"`
	Right string `json:"right"`
	On    string `json:"on"`
}

// Facts is the flat record produced by Extract. It is pure data: every
// field may be empty, and values are canonicalized (quote characters
// stripped from identifiers).
type Facts struct {
	// Sources holds fully-qualified table identifiers in first-seen order,
	// deduplicated.
	Sources []string

	// Aliases maps alias -> fully-qualified table. Valid for one query only.
	Aliases map[string]string

	// AliasOrder records aliases in declaration order. The USING heuristic
	// depends on it.
	AliasOrder []string

	// Joins preserves source order; synthetic join numbering is derived
	// from it.
	Joins []JoinFact

	// Filters is the WHERE clause (then HAVING) split on top-level AND.
	Filters []string

	// GroupBy is the GROUP BY list split on top-level commas.
	GroupBy []string

	// Outputs maps a canonical role (x, y, label, value) to the SELECT-list
	// expression aliased to it.
	Outputs map[string]string

	// FilterDateColumn is inferred from a DATE(...) AS <col> projection
	// when the caller did not already know it.
	FilterDateColumn string
}

// HasSource reports whether table is already recorded as a source.
func (f *Facts) HasSource(table string) bool {
	for _, s := range f.Sources {
		if s == table {
			return true
		}
	}
	return false
}

// addSource records a table, preserving first-seen order.
func (f *Facts) addSource(table string) {
	if table == "" || f.HasSource(table) {
		return
	}
	f.Sources = append(f.Sources, table)
}

// addAlias records an alias declaration, preserving declaration order.
func (f *Facts) addAlias(alias, table string) {
	if alias == "" || table == "" {
		return
	}
	if _, ok := f.Aliases[alias]; !ok {
		f.AliasOrder = append(f.AliasOrder, alias)
	}
	f.Aliases[alias] = table
}
