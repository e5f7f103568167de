// Package engine is the consumer-facing facade over lineage extraction,
// graph building and layout. It validates caller input, applies optional
// metadata, and optionally caches computed lineage in a state store.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/chartline-io/chartline/internal/state"
)

// MaxSQLBytes is the largest query the facade accepts. Anything larger is
// rejected before extraction so the extractor's never-fails contract only
// has to hold for reasonable input.
const MaxSQLBytes = 1 << 20

var (
	// ErrInvalidInput marks input rejected at the facade boundary.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSQLTooLarge wraps ErrInvalidInput so callers can match either.
	ErrSQLTooLarge = fmt.Errorf("%w: sql exceeds %d bytes", ErrInvalidInput, MaxSQLBytes)
)

// Engine computes lineage and positioned graphs from raw SQL text.
// It holds no per-query state; every computation is a pure function of
// its inputs, with an optional read-through cache in front.
type Engine struct {
	logger *slog.Logger
	cache  state.Store
}

// Config holds engine configuration.
type Config struct {
	// StatePath is the path to the SQLite cache database. Empty disables
	// caching entirely.
	StatePath string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine, opening the lineage cache when configured.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e := &Engine{logger: logger}

	if cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.InitSchema(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		e.cache = store
	}

	return e, nil
}

// Close releases the cache store, if any.
func (e *Engine) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

// validateSQL enforces the facade input contract. Extraction degrades on
// anything it cannot match, including the empty string, so the only
// rejections are malformed or oversized input.
func validateSQL(sql string) error {
	if len(sql) > MaxSQLBytes {
		return ErrSQLTooLarge
	}
	if !utf8.ValidString(sql) {
		return fmt.Errorf("%w: sql is not valid utf-8", ErrInvalidInput)
	}
	return nil
}

// cacheKey derives the cache key from the query text and the metadata that
// affects the result.
func cacheKey(sql, filterDateColumn string) string {
	sum := sha256.Sum256([]byte(sql + "\x00" + filterDateColumn))
	return hex.EncodeToString(sum[:])
}
