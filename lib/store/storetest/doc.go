// Package storetest provides the shared conformance and benchmark suites
// for store.Store implementations. Every backend in the module runs
// RunStoreTests from its own package tests, so a contract change breaks all
// backends at once instead of silently diverging.
//
// Example usage:
//
//	func TestStore(t *testing.T) {
//		storetest.RunStoreTests(t, "pebbledb", func(tb testing.TB) store.Store {
//			s := pebbledb.New("test", filepath.Join(tb.TempDir(), "test.db"), nil)
//			tb.Cleanup(func() { s.Close() })
//			return s
//		})
//	}
package storetest
