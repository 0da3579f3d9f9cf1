package tables

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"tablekv/lib/store"
	"tablekv/lib/store/memstore"
	"tablekv/lib/store/pebbledb"
)

// memFactory backs manager tests with in-memory stores so they stay fast
// and disk-free; path handling is covered separately.
func memFactory(table, _ string) (store.Store, error) {
	return memstore.New(table, nil), nil
}

func TestPath(t *testing.T) {
	m := NewManager("/var/data/tables")
	if got, want := m.Path("wordcounts"), filepath.Join("/var/data/tables", "wordcounts.db"); got != want {
		t.Errorf("Expected path %q, got %q", want, got)
	}
}

func TestInvalidTableNames(t *testing.T) {
	m := NewManager(t.TempDir(), WithFactory(memFactory))
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := m.Get(name); !errors.Is(err, ErrInvalidTableName) {
			t.Errorf("Expected ErrInvalidTableName for %q, got %v", name, err)
		}
	}
}

func TestGetSharesInstances(t *testing.T) {
	m := NewManager(t.TempDir(), WithFactory(memFactory))
	defer m.Close()

	a, err := m.Get("orders")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Get("orders")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("Expected repeat Get to return the same instance")
	}

	other, err := m.Get("payments")
	if err != nil {
		t.Fatal(err)
	}
	if other == a {
		t.Errorf("Expected distinct tables to get distinct instances")
	}

	names := m.Tables()
	if len(names) != 2 {
		t.Errorf("Expected 2 live tables, got %v", names)
	}
}

func TestGetConcurrent(t *testing.T) {
	m := NewManager(t.TempDir(), WithFactory(memFactory))
	defer m.Close()

	stores := make([]store.Store, 16)
	var wg sync.WaitGroup
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Get("shared")
			if err != nil {
				t.Error(err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(stores); i++ {
		if stores[i] != stores[0] {
			t.Fatalf("Concurrent Get returned different instances")
		}
	}
}

func TestResetForgetsInstance(t *testing.T) {
	m := NewManager(t.TempDir(), WithFactory(memFactory))
	defer m.Close()

	s, err := m.Get("orders")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}

	if err := m.Reset("orders"); err != nil {
		t.Fatal(err)
	}

	fresh, err := m.Get("orders")
	if err != nil {
		t.Fatal(err)
	}
	if fresh == s {
		t.Errorf("Expected Reset to forget the old instance")
	}
	n, err := fresh.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Expected empty store after reset, got %d entries", n)
	}
}

func TestResetUnknownTable(t *testing.T) {
	m := NewManager(t.TempDir(), WithFactory(memFactory))
	defer m.Close()
	if err := m.Reset("never-seen"); err != nil {
		t.Errorf("Reset of an unknown table should succeed, got %v", err)
	}
}

func TestFactoryError(t *testing.T) {
	boom := errors.New("factory boom")
	m := NewManager(t.TempDir(), WithFactory(func(table, dir string) (store.Store, error) {
		return nil, boom
	}))

	if _, err := m.Get("orders"); !errors.Is(err, boom) {
		t.Fatalf("Expected factory error, got %v", err)
	}

	// a failed creation leaves no entry behind
	if len(m.Tables()) != 0 {
		t.Errorf("Expected no live tables after factory failure")
	}
}

func TestDefaultFactoryOnDisk(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, WithEngineOptions(&pebbledb.Options{
		WriteBufferSize:          1 << 20,
		BlockCacheSize:           1 << 20,
		BlockCacheCompressedSize: 1 << 20,
	}))
	defer m.Close()

	s, err := m.Get("durable")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}

	// the store landed at the manager's path
	if _, err := os.Stat(m.Path("durable")); err != nil {
		t.Errorf("Expected engine directory at %s: %v", m.Path("durable"), err)
	}

	// manager reset removes the directory
	if err := m.Reset("durable"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(m.Path("durable")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected engine directory removed after reset, stat err=%v", err)
	}
}
