package lineage

import (
	"regexp"
	"strings"
)

var (
	reFuncCall  = regexp.MustCompile(`(?is)\A\s*([A-Za-z_][\w$]*)\s*\((.*)\)\s*\z`)
	reFirstWord = regexp.MustCompile(`[A-Za-z_][\w$.]*`)
)

// Aggregate verbs for friendlier output-node labels.
var funcVerbs = map[string]string{
	"sum":   "Total",
	"avg":   "Average",
	"count": "Count of",
	"min":   "Minimum",
	"max":   "Maximum",
}

// DisplayLabel derives a friendly label for an output role from its aliased
// SQL expression, e.g. "AVG(sale_price) AS value" becomes "Average Sale
// Price". Falls back to the upper-cased role when nothing useful can be
// read out of the expression.
func DisplayLabel(role, expr string) string {
	expr = strings.TrimSpace(expr)
	if am := reAsAlias.FindStringIndex(expr); am != nil {
		expr = strings.TrimSpace(expr[:am[0]])
	}

	if m := reFuncCall.FindStringSubmatch(expr); m != nil {
		verb := funcVerbs[strings.ToLower(m[1])]
		arg := humanizeIdent(m[2])
		switch {
		case verb != "" && arg != "":
			return verb + " " + arg
		case verb != "":
			return verb + " " + humanizeIdent(role)
		case arg != "":
			// DATE(created_at) and friends: the argument carries the meaning.
			return arg
		}
	}

	if label := humanizeIdent(expr); label != "" {
		return label
	}
	return strings.ToUpper(role)
}

// humanizeIdent turns the first identifier in an expression fragment into
// Title Case words: "o.sale_price" -> "Sale Price". "*" and literals yield
// an empty string.
func humanizeIdent(s string) string {
	ident := reFirstWord.FindString(s)
	if ident == "" {
		return ""
	}
	ident = shortName(ident)
	words := strings.Split(ident, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
