package lineage

// NormalizeJoins turns extracted join facts into canonical edges with both
// sides rendered for display. Unparsable predicates yield an edge with empty
// sides and the raw predicate preserved verbatim.
func NormalizeJoins(facts Facts) []JoinEdge {
	edges := make([]JoinEdge, 0, len(facts.Joins))
	for _, j := range facts.Joins {
		edges = append(edges, JoinEdge{
			Kind:  j.Kind,
			Left:  ResolveRef(j.Left, facts.Aliases),
			Right: ResolveRef(j.Right, facts.Aliases),
			On:    j.On,
		})
	}
	return edges
}
