package memstore

import (
	"sync"
	"testing"

	"tablekv/lib/changelog"
	"tablekv/lib/checkpoints"
	"tablekv/lib/store"
	"tablekv/lib/store/storetest"
)

func factory(tb testing.TB) store.Store {
	s := New("test-table", nil)
	tb.Cleanup(func() { s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.RunStoreTests(t, "memstore", factory)
}

func BenchmarkStore(b *testing.B) {
	storetest.RunStoreBenchmarks(b, "memstore", factory)
}

func TestOffsetDelegation(t *testing.T) {
	cp := checkpoints.NewMemory()
	tp := changelog.TP("table-changelog", 4)
	if err := cp.SetOffset(tp, 99); err != nil {
		t.Fatal(err)
	}

	s := New("test-table", cp)
	offset, found, err := s.PersistedOffset(tp)
	if err != nil {
		t.Fatal(err)
	}
	if !found || offset != 99 {
		t.Errorf("Expected offset 99, got found=%v offset=%d", found, offset)
	}

	_, found, err = s.PersistedOffset(changelog.TP("table-changelog", 5))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Errorf("Expected no offset for an unrecorded partition")
	}
}

func TestConcurrentPointOps(t *testing.T) {
	s := New("test-table", nil)
	defer s.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			key := []byte{byte(g)}
			for i := 0; i < 1000; i++ {
				if err := s.Set(key, []byte("v")); err != nil {
					t.Error(err)
					return
				}
				if _, _, err := s.Get(key); err != nil {
					t.Error(err)
					return
				}
				if _, err := s.Has(key); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	n, err := s.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Errorf("Expected 8 keys after concurrent writes, got %d", n)
	}
}

func TestIterationSnapshot(t *testing.T) {
	s := New("test-table", nil)
	defer s.Close()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set([]byte(k), []byte("v")); err != nil {
			t.Fatal(err)
		}
	}

	it, err := s.Keys()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	// writes after iterator creation are invisible to it
	if err := s.Set([]byte("d"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete([]byte("a")); err != nil {
		t.Fatal(err)
	}

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Expected snapshot [a b c], got %v", got)
	}
}
