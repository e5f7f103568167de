package lineage

// ResolveRef renders a column reference for display. A known alias keeps its
// alias form ("o.customer_id") rather than expanding to the full table id,
// which is what a human reading the join expects to see. Unknown aliases
// degrade to the literal text unchanged; a bare column stays bare.
func ResolveRef(ref ColumnRef, aliases map[string]string) string {
	if ref.Column == "" {
		return ""
	}
	if ref.Alias == "" {
		return ref.Column
	}
	// A known alias and an unknown one render identically: unknown aliases
	// degrade to the literal "alias.column" text rather than erroring.
	return ref.Alias + "." + ref.Column
}

// ResolveTable maps a column reference to the fully-qualified table it
// belongs to, via the alias map. Falls back to the raw alias (which may
// itself be a table name) and reports whether the mapping was exact.
func ResolveTable(ref ColumnRef, aliases map[string]string) (string, bool) {
	if ref.Alias == "" {
		return "", false
	}
	if table, ok := aliases[ref.Alias]; ok {
		return table, true
	}
	return ref.Alias, false
}
