package lineage

import (
	"regexp"
	"strings"
)

// Structural patterns. Each is independent; a miss leaves its Facts field
// empty rather than failing the extraction.
var (
	// Three-part project.dataset.table identifiers inside backticks or
	// double quotes, anywhere in the text.
	reQuotedSource = regexp.MustCompile("[`\"]([\\w$-]+\\.[\\w$-]+\\.[\\w$-]+)[`\"]")

	// FROM/JOIN targets. The alias is matched separately with reAliasAfter
	// so an unaliased target followed by a keyword does not swallow that
	// keyword and skip the clause it opens.
	reFromJoin = regexp.MustCompile("(?is)\\b(from|join)\\s+(`[^`]+`|\"[^\"]+\"|[A-Za-z_][\\w$.]*)")

	// An [AS] alias token directly after a FROM/JOIN target.
	reAliasAfter = regexp.MustCompile(`(?is)\A\s+(?:as\s+)?([A-Za-z_][\w$]*)`)

	// JOIN keyword with its optional kind prefix.
	reJoinKeyword = regexp.MustCompile(`(?i)\b((?:left|right|full|inner|cross)(?:\s+outer)?\s+|outer\s+)?join\b`)

	// Keywords that terminate a JOIN span or a clause capture. A following
	// join's kind prefix is part of the boundary so it does not leak into
	// the previous span's predicate text.
	reClauseBoundary = regexp.MustCompile(`(?i)\b(?:(?:left|right|full|inner|cross)(?:\s+outer)?\s+join|outer\s+join|join|where|group\s+by|order\s+by|limit|having|union|qualify|window)\b`)

	reJoinTarget = regexp.MustCompile("(?is)\\A\\s*(`[^`]+`|\"[^\"]+\"|[A-Za-z_][\\w$.]*)(?:\\s+(?:as\\s+)?([A-Za-z_][\\w$]*))?")
	reOn         = regexp.MustCompile(`(?is)\bon\b(.*)\z`)
	reUsing      = regexp.MustCompile(`(?is)\busing\s*\(([^)]*)\)`)
	reEquality   = regexp.MustCompile(`(?i)\A([A-Za-z_][\w$]*(?:\.[A-Za-z_][\w$]*)?)\s*=\s*([A-Za-z_][\w$]*(?:\.[A-Za-z_][\w$]*)?)\z`)

	reWhere   = regexp.MustCompile(`(?is)\bwhere\b(.*?)(?:\b(?:group\s+by|order\s+by|limit|having|qualify|window|union)\b|\z)`)
	reHaving  = regexp.MustCompile(`(?is)\bhaving\b(.*?)(?:\b(?:order\s+by|limit|qualify|window|union)\b|\z)`)
	reGroupBy = regexp.MustCompile(`(?is)\bgroup\s+by\b(.*?)(?:\b(?:order\s+by|limit|having|qualify|window|union)\b|\z)`)
	reSelect  = regexp.MustCompile(`(?i)\bselect\b`)

	reAsAlias  = regexp.MustCompile(`(?is)\s+as\s+([A-Za-z_][\w$]*)\s*\z`)
	reDateCall = regexp.MustCompile(`(?is)\A\s*date\s*\(`)
)

// keywords that can never be a table alias.
var aliasStopwords = map[string]bool{
	"on": true, "using": true, "where": true, "group": true, "order": true,
	"limit": true, "having": true, "join": true, "left": true, "right": true,
	"inner": true, "full": true, "outer": true, "cross": true, "natural": true,
	"union": true, "select": true, "as": true, "and": true, "or": true,
	"not": true, "qualify": true, "window": true, "set": true, "when": true,
}

// Extract scans sql with the fixed pattern set and returns the facts it
// could recover. It never panics, for any input; unmatched patterns simply
// leave fields empty.
func Extract(sql string) Facts {
	f := Facts{
		Aliases: make(map[string]string),
		Outputs: make(map[string]string),
	}
	if strings.TrimSpace(sql) == "" {
		return f
	}

	// Quoted three-part identifiers anywhere count as sources, independent
	// of clause context.
	for _, m := range reQuotedSource.FindAllStringSubmatch(sql, -1) {
		f.addSource(m[1])
	}

	// FROM/JOIN targets populate sources and the alias map. Declaration
	// offsets are kept because the USING heuristic is position-sensitive.
	var decls []aliasDecl
	for _, loc := range reFromJoin.FindAllStringSubmatchIndex(sql, -1) {
		table := canonicalIdent(sql[loc[4]:loc[5]])
		if table == "" {
			continue
		}
		f.addSource(table)
		if am := reAliasAfter.FindStringSubmatch(sql[loc[5]:]); am != nil {
			alias := am[1]
			if !aliasStopwords[strings.ToLower(alias)] {
				f.addAlias(alias, table)
				decls = append(decls, aliasDecl{pos: loc[0], alias: alias})
			}
		}
	}

	f.Joins = extractJoins(sql, decls)
	f.Filters = extractFilters(sql)
	f.GroupBy = extractGroupBy(sql)
	extractSelectList(sql, &f)

	return f
}

// aliasDecl is an alias declaration at a byte offset in the query text.
type aliasDecl struct {
	pos   int
	alias string
}

// extractJoins walks every JOIN span (JOIN keyword up to the next clause
// keyword or end of string; spans may cross newlines) and emits JoinFacts.
func extractJoins(sql string, decls []aliasDecl) []JoinFact {
	var joins []JoinFact

	for _, loc := range reJoinKeyword.FindAllStringSubmatchIndex(sql, -1) {
		kind := ""
		if loc[2] >= 0 {
			kind = normalizeJoinKind(sql[loc[2]:loc[3]])
		}

		span := sql[loc[1]:]
		if b := reClauseBoundary.FindStringIndex(span); b != nil {
			span = span[:b[0]]
		}

		var table, rightAlias string
		if tm := reJoinTarget.FindStringSubmatch(span); tm != nil {
			table = canonicalIdent(tm[1])
			if a := tm[2]; a != "" && !aliasStopwords[strings.ToLower(a)] {
				rightAlias = a
			}
		}

		// USING first, then a single equality, then the raw predicate.
		if um := reUsing.FindStringSubmatch(span); um != nil {
			leftAlias, curAlias := lastTwoAliases(decls, loc[0], rightAlias, table)
			for _, col := range strings.Split(um[1], ",") {
				col = strings.TrimSpace(col)
				if col == "" {
					continue
				}
				joins = append(joins, JoinFact{
					Kind:  kind,
					Table: table,
					Left:  ColumnRef{Alias: leftAlias, Column: col},
					Right: ColumnRef{Alias: curAlias, Column: col},
					On:    "USING(" + col + ")",
				})
			}
			continue
		}

		pred := ""
		if om := reOn.FindStringSubmatch(span); om != nil {
			pred = strings.TrimSpace(om[1])
		}
		pred = strings.TrimSuffix(pred, ";")

		if em := reEquality.FindStringSubmatch(pred); em != nil {
			joins = append(joins, JoinFact{
				Kind:  kind,
				Table: table,
				Left:  splitRef(em[1]),
				Right: splitRef(em[2]),
				On:    pred,
			})
			continue
		}

		// Unparsable or absent predicate: keep the raw text so the UI can
		// still show something meaningful.
		joins = append(joins, JoinFact{Kind: kind, Table: table, On: pred})
	}

	return joins
}

// lastTwoAliases pairs the join's own right-hand alias with the alias most
// recently declared before the join. This is the documented USING heuristic:
// with 3+ tables in scope it is best-effort, not provably correct. Missing
// aliases degrade to the table's short name or an empty qualifier.
func lastTwoAliases(decls []aliasDecl, joinPos int, rightAlias, rightTable string) (left, right string) {
	if rightAlias == "" {
		rightAlias = shortName(rightTable)
	}
	for i := len(decls) - 1; i >= 0; i-- {
		if decls[i].pos < joinPos && decls[i].alias != rightAlias {
			left = decls[i].alias
			break
		}
	}
	return left, rightAlias
}

// shortName returns the last dot segment of a qualified identifier.
func shortName(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

func extractFilters(sql string) []string {
	var filters []string
	if m := reWhere.FindStringSubmatch(sql); m != nil {
		filters = append(filters, splitTopLevelAnd(m[1])...)
	}
	if m := reHaving.FindStringSubmatch(sql); m != nil {
		filters = append(filters, splitTopLevelAnd(m[1])...)
	}
	return filters
}

func extractGroupBy(sql string) []string {
	m := reGroupBy.FindStringSubmatch(sql)
	if m == nil {
		return nil
	}
	var cols []string
	for _, part := range splitTopLevel(m[1], ',') {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if part != "" {
			cols = append(cols, part)
		}
	}
	return cols
}

// extractSelectList binds SELECT-list aliases to the canonical roles and
// infers the date-filter column from a DATE(...) AS <col> projection.
func extractSelectList(sql string, f *Facts) {
	loc := reSelect.FindStringIndex(sql)
	if loc == nil {
		return
	}
	list := sql[loc[1]:]
	if end := topLevelKeywordIndex(list, "from"); end >= 0 {
		list = list[:end]
	}

	for _, item := range splitTopLevel(list, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		am := reAsAlias.FindStringSubmatch(item)
		if am == nil {
			continue
		}
		alias := am[1]
		if role := strings.ToLower(alias); isRole(role) {
			if _, seen := f.Outputs[role]; !seen {
				f.Outputs[role] = item
			}
		}
		if f.FilterDateColumn == "" && reDateCall.MatchString(item) {
			f.FilterDateColumn = alias
		}
	}
}

func isRole(s string) bool {
	for _, r := range Roles {
		if s == r {
			return true
		}
	}
	return false
}

// canonicalIdent strips backtick/quote characters from an identifier.
func canonicalIdent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`\"")
	return strings.TrimSuffix(s, ";")
}

// splitRef splits "alias.column" (or a bare column) into a ColumnRef.
func splitRef(s string) ColumnRef {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return ColumnRef{Alias: s[:i], Column: s[i+1:]}
	}
	return ColumnRef{Column: s}
}

func normalizeJoinKind(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// splitTopLevel splits s on sep occurrences outside parentheses and quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// splitTopLevelAnd splits a predicate on top-level AND (case-insensitive).
// OR is left alone and parentheses are not descended into.
func splitTopLevelAnd(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (c == 'a' || c == 'A') && i+3 <= len(s):
			if strings.EqualFold(s[i:i+3], "and") && boundaryBefore(s, i) && boundaryAfter(s, i+3) {
				parts = appendFilter(parts, s[start:i])
				start = i + 3
				i += 2
			}
		}
	}
	parts = appendFilter(parts, s[start:])
	return parts
}

func appendFilter(parts []string, s string) []string {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || !isWordByte(s[i])
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// topLevelKeywordIndex finds the byte offset of a keyword at paren depth
// zero, outside quotes. Returns -1 when absent.
func topLevelKeywordIndex(s, keyword string) int {
	depth := 0
	var quote byte
	n := len(keyword)
	for i := 0; i+n <= len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			if strings.EqualFold(s[i:i+n], keyword) && boundaryBefore(s, i) && boundaryAfter(s, i+n) {
				return i
			}
		}
	}
	return -1
}
