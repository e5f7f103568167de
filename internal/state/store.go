// Package state persists computed lineage results in SQLite so repeated
// requests for the same query skip re-extraction.
package state

// Store is the persistence interface for cached lineage payloads.
// Keys are content hashes; payloads are opaque serialized results.
type Store interface {
	// GetLineage returns the cached payload for key. The second return
	// reports whether an entry existed.
	GetLineage(key string) ([]byte, bool, error)

	// PutLineage stores payload under key, replacing any previous entry.
	PutLineage(key string, payload []byte) error

	// Close releases the underlying storage.
	Close() error
}
