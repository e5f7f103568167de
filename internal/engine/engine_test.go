package engine

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersSQL = "SELECT DATE(o.created_at) AS x, SUM(o.amount) AS y " +
	"FROM `p.d.orders` o JOIN `p.d.customers` c ON o.customer_id = c.id " +
	"WHERE o.status = 'paid' GROUP BY x"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestComputeLineage(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"p.d.orders", "p.d.customers"}, got.Sources)
	require.Len(t, got.Joins, 1)
	assert.Equal(t, "o.customer_id", got.Joins[0].Left)
	assert.Equal(t, "c.id", got.Joins[0].Right)
	assert.Equal(t, []string{"o.status = 'paid'"}, got.Filters)
	assert.Equal(t, []string{"x"}, got.GroupBy)
	assert.NotEmpty(t, got.Outputs["x"])
	assert.NotEmpty(t, got.Outputs["y"])
	assert.Equal(t, "x", got.FilterDateColumn)
}

func TestComputeLineageIdempotent(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)
	b, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeLineageValidation(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ComputeLineage(strings.Repeat("x", MaxSQLBytes+1), "")
	assert.ErrorIs(t, err, ErrSQLTooLarge)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.ComputeLineage("SELECT \xff", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, errors.Is(err, ErrSQLTooLarge))
}

func TestComputeLineageMetadataOverride(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.ComputeLineage(ordersSQL, "order_date")
	require.NoError(t, err)
	assert.Equal(t, "order_date", got.FilterDateColumn)
}

func TestComputeLineageTrivialQuery(t *testing.T) {
	e := newTestEngine(t)

	// Empty lineage is a legitimate answer, with list fields present.
	// That includes the empty string, which degrades like any other text
	// the extractor cannot match.
	for _, sql := range []string{"SELECT 1", ""} {
		got, err := e.ComputeLineage(sql, "")
		require.NoError(t, err)

		assert.NotNil(t, got.Sources)
		assert.NotNil(t, got.Joins)
		assert.Empty(t, got.Sources)
		assert.Empty(t, got.Joins)

		payload, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, `{"sources":[],"joins":[]}`, string(payload))
	}
}

// recordingStore counts cache traffic around an in-memory map.
type recordingStore struct {
	entries map[string][]byte
	gets    int
	puts    int
}

func (s *recordingStore) GetLineage(key string) ([]byte, bool, error) {
	s.gets++
	payload, ok := s.entries[key]
	return payload, ok, nil
}

func (s *recordingStore) PutLineage(key string, payload []byte) error {
	s.puts++
	s.entries[key] = payload
	return nil
}

func (s *recordingStore) Close() error { return nil }

func TestComputeLineageCaching(t *testing.T) {
	store := &recordingStore{entries: make(map[string][]byte)}
	e := newTestEngine(t)
	e.cache = store

	first, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)
	require.Equal(t, 1, store.puts)

	second, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.puts, "cache hit should not rewrite the entry")
	assert.Equal(t, 2, store.gets)

	// Different metadata means a different key.
	_, err = e.ComputeLineage(ordersSQL, "order_date")
	require.NoError(t, err)
	assert.Equal(t, 2, store.puts)
}

func TestComputeLineageCacheCorruptEntry(t *testing.T) {
	store := &recordingStore{entries: make(map[string][]byte)}
	store.entries[cacheKey(ordersSQL, "")] = []byte("not json")

	e := newTestEngine(t)
	e.cache = store

	got, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"p.d.orders", "p.d.customers"}, got.Sources)
}

func TestEngineWithSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	e, err := New(Config{StatePath: path})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	first, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)
	second, err := e.ComputeLineage(ordersSQL, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildGraphAndLayout(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.BuildGraphAndLayout(GraphRequest{SQL: ordersSQL, Width: 1200, Height: 800})
	require.NoError(t, err)

	assert.Len(t, got.Graph.Nodes, 5, "2 tables, 1 join, 2 outputs")
	assert.Len(t, got.Positions, 5)
	assert.Len(t, got.Links, len(got.Graph.Edges))
	assert.False(t, got.Truncated)
	assert.GreaterOrEqual(t, got.ViewTransform.Scale, 0.3)
	assert.LessOrEqual(t, got.ViewTransform.Scale, 1.2)
}

func TestBuildGraphAndLayoutDefaults(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.BuildGraphAndLayout(GraphRequest{SQL: ordersSQL})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.ViewTransform.Scale, 0.3)
	assert.LessOrEqual(t, got.ViewTransform.Scale, 1.2)
}

func TestBuildGraphAndLayoutValidation(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.BuildGraphAndLayout(GraphRequest{SQL: "SELECT \xff"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildGraphAndLayoutTrivialQuery(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.BuildGraphAndLayout(GraphRequest{SQL: "SELECT 1"})
	require.NoError(t, err)
	assert.NotNil(t, got.Graph.Nodes)
	assert.NotNil(t, got.Graph.Edges)
	assert.Empty(t, got.Graph.Nodes)
}
