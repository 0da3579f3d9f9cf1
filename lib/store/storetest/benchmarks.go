package storetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"tablekv/lib/store"
)

// benchKeySpread is the number of distinct keys the benchmarks cycle
// through, enough to defeat a single hot cache line without blowing up the
// working set.
const benchKeySpread = 1 << 12

// RunStoreBenchmarks runs the shared benchmark suite for a store.Store
// implementation. The factory contract is the same as for RunStoreTests.
func RunStoreBenchmarks(b *testing.B, name string, factory Factory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchSet(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchGet(b, factory(b))
		})

		b.Run("Has", func(b *testing.B) {
			benchHas(b, factory(b), true)
		})

		b.Run("HasAbsent", func(b *testing.B) {
			benchHas(b, factory(b), false)
		})

		b.Run("Items", func(b *testing.B) {
			benchItems(b, factory(b))
		})

		b.Run("BatchApply", func(b *testing.B) {
			benchBatchApply(b, factory(b))
		})
	})
}

func benchKey(i int) []byte {
	return []byte(fmt.Sprintf("bench-key-%08d", i%benchKeySpread))
}

// fill seeds the store with the full benchmark key spread.
func fill(b *testing.B, s store.Store) {
	b.Helper()
	value := []byte("bench-value")
	for i := 0; i < benchKeySpread; i++ {
		if err := s.Set(benchKey(i), value); err != nil {
			b.Fatal(err)
		}
	}
}

func benchSet(b *testing.B, s store.Store) {
	value := []byte("bench-value")
	var n atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(n.Add(1))
			if err := s.Set(benchKey(i), value); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func benchGet(b *testing.B, s store.Store) {
	fill(b, s)
	var n atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(n.Add(1))
			if _, _, err := s.Get(benchKey(i)); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// benchHas measures the probe-backed existence check. With present=false
// every key misses, which is the path the probe exists to accelerate.
func benchHas(b *testing.B, s store.Store, present bool) {
	if present {
		fill(b, s)
	}
	var n atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(n.Add(1))
			key := benchKey(i)
			if !present {
				key = append(key, "-missing"...)
			}
			if _, err := s.Has(key); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func benchItems(b *testing.B, s store.Store) {
	fill(b, s)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it, err := s.Items()
		if err != nil {
			b.Fatal(err)
		}
		for it.Next() {
		}
		if err := it.Err(); err != nil {
			b.Fatal(err)
		}
		if err := it.Close(); err != nil {
			b.Fatal(err)
		}
	}
}

func benchBatchApply(b *testing.B, s store.Store) {
	value := []byte("bench-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch, err := s.NewBatch()
		if err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 128; j++ {
			if err := batch.Set(benchKey(i*128+j), value); err != nil {
				b.Fatal(err)
			}
		}
		if err := batch.Commit(); err != nil {
			b.Fatal(err)
		}
	}
}
