package state

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(nil)
	if err := s.Open(":memory:"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return s
}

func TestLineageCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.GetLineage("missing"); err != nil || ok {
		t.Fatalf("GetLineage on empty cache: ok=%v err=%v", ok, err)
	}

	payload := []byte(`{"sources":["p.d.orders"]}`)
	if err := s.PutLineage("k1", payload); err != nil {
		t.Fatalf("PutLineage: %v", err)
	}

	got, ok, err := s.GetLineage("k1")
	if err != nil || !ok {
		t.Fatalf("GetLineage: ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestLineageCacheReplace(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutLineage("k1", []byte("old")); err != nil {
		t.Fatalf("PutLineage: %v", err)
	}
	if err := s.PutLineage("k1", []byte("new")); err != nil {
		t.Fatalf("PutLineage replace: %v", err)
	}

	got, ok, err := s.GetLineage("k1")
	if err != nil || !ok {
		t.Fatalf("GetLineage: ok=%v err=%v", ok, err)
	}
	if string(got) != "new" {
		t.Errorf("payload = %q, want %q", got, "new")
	}
}

func TestLineageCacheKeysIndependent(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutLineage("a", []byte("1")); err != nil {
		t.Fatalf("PutLineage: %v", err)
	}
	if err := s.PutLineage("b", []byte("2")); err != nil {
		t.Fatalf("PutLineage: %v", err)
	}

	got, ok, _ := s.GetLineage("a")
	if !ok || string(got) != "1" {
		t.Errorf("key a = %q ok=%v", got, ok)
	}
	got, ok, _ = s.GetLineage("b")
	if !ok || string(got) != "2" {
		t.Errorf("key b = %q ok=%v", got, ok)
	}
}

func TestStoreNotOpened(t *testing.T) {
	s := NewSQLiteStore(nil)

	if err := s.InitSchema(); err == nil {
		t.Error("InitSchema on unopened store should fail")
	}
	if _, _, err := s.GetLineage("k"); err == nil {
		t.Error("GetLineage on unopened store should fail")
	}
	if err := s.PutLineage("k", nil); err == nil {
		t.Error("PutLineage on unopened store should fail")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close on unopened store: %v", err)
	}
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineage.db")

	s := NewSQLiteStore(nil)
	if err := s.Open(path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	if err := s.PutLineage("k", []byte("v")); err != nil {
		t.Fatalf("PutLineage: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen and confirm the entry survived.
	s2 := NewSQLiteStore(nil)
	if err := s2.Open(path); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	got, ok, err := s2.GetLineage("k")
	if err != nil || !ok || string(got) != "v" {
		t.Errorf("after reopen: payload=%q ok=%v err=%v", got, ok, err)
	}
}

func TestGetLineageQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT payload FROM lineage_cache").
		WillReturnError(sqlmock.ErrCancelled)

	s := &SQLiteStore{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if _, _, err := s.GetLineage("k"); err == nil {
		t.Error("expected error from failing query")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPutLineageInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM lineage_cache").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO lineage_cache").
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	s := &SQLiteStore{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := s.PutLineage("k", []byte("v")); err == nil {
		t.Error("expected error from failing insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
