package engine

import (
	"encoding/json"

	"github.com/chartline-io/chartline/internal/lineage"
)

// JoinInfo is one join in the wire-shaped lineage result.
type JoinInfo struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	On    string `json:"on"`
	Kind  string `json:"kind,omitempty"`
}

// Lineage is the JSON shape returned to the presentation layer. Sources
// and Joins are always present, defaulting to empty lists; the remaining
// fields are omitted when empty.
type Lineage struct {
	Sources          []string          `json:"sources"`
	Joins            []JoinInfo        `json:"joins"`
	Filters          []string          `json:"filters,omitempty"`
	GroupBy          []string          `json:"group_by,omitempty"`
	Outputs          map[string]string `json:"outputs,omitempty"`
	FilterDateColumn string            `json:"filter_date_column,omitempty"`
}

// ComputeLineage extracts lineage from sql. knownFilterDateCol is caller
// metadata that overrides the inferred filter date column when set.
// Identical inputs always produce identical results.
func (e *Engine) ComputeLineage(sql, knownFilterDateCol string) (*Lineage, error) {
	if err := validateSQL(sql); err != nil {
		return nil, err
	}

	key := cacheKey(sql, knownFilterDateCol)
	if cached := e.cachedLineage(key); cached != nil {
		return cached, nil
	}

	facts := lineage.Extract(sql)
	if knownFilterDateCol != "" {
		facts.FilterDateColumn = knownFilterDateCol
	}

	result := lineageFromFacts(facts)
	e.storeLineage(key, result)
	return result, nil
}

// lineageFromFacts maps extracted facts onto the wire shape.
func lineageFromFacts(facts lineage.Facts) *Lineage {
	result := &Lineage{
		Sources:          facts.Sources,
		Joins:            make([]JoinInfo, 0, len(facts.Joins)),
		Filters:          facts.Filters,
		GroupBy:          facts.GroupBy,
		FilterDateColumn: facts.FilterDateColumn,
	}
	if result.Sources == nil {
		result.Sources = []string{}
	}
	for _, je := range lineage.NormalizeJoins(facts) {
		result.Joins = append(result.Joins, JoinInfo{
			Left:  je.Left,
			Right: je.Right,
			On:    je.On,
			Kind:  je.Kind,
		})
	}
	if len(facts.Outputs) > 0 {
		result.Outputs = facts.Outputs
	}
	return result
}

// cachedLineage returns a previously computed result, or nil on any miss
// or cache failure. Cache trouble is never surfaced to the caller.
func (e *Engine) cachedLineage(key string) *Lineage {
	if e.cache == nil {
		return nil
	}
	payload, ok, err := e.cache.GetLineage(key)
	if err != nil {
		e.logger.Warn("lineage cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var result Lineage
	if err := json.Unmarshal(payload, &result); err != nil {
		e.logger.Warn("lineage cache entry corrupt", "error", err)
		return nil
	}
	if result.Sources == nil {
		result.Sources = []string{}
	}
	if result.Joins == nil {
		result.Joins = []JoinInfo{}
	}
	return &result
}

func (e *Engine) storeLineage(key string, result *Lineage) {
	if e.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		e.logger.Warn("lineage cache encode failed", "error", err)
		return
	}
	if err := e.cache.PutLineage(key, payload); err != nil {
		e.logger.Warn("lineage cache write failed", "error", err)
	}
}
