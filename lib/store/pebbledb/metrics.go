package pebbledb

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// storeMetrics holds the per-table operation counters. Counter names are
// stable so dashboards can aggregate across tables via the table label.
type storeMetrics struct {
	reads          *metrics.Counter // engine point lookups, hits and misses alike
	writes         *metrics.Counter
	deletes        *metrics.Counter
	probeNegatives *metrics.Counter
	batchCommits   *metrics.Counter
	batchRecords   *metrics.Counter
	resets         *metrics.Counter
}

func newStoreMetrics(table string) *storeMetrics {
	counter := func(name string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`tablekv_store_%s_total{table=%q}`, name, table))
	}
	return &storeMetrics{
		reads:          counter("reads"),
		writes:         counter("writes"),
		deletes:        counter("deletes"),
		probeNegatives: counter("probe_negatives"),
		batchCommits:   counter("batch_commits"),
		batchRecords:   counter("batch_records"),
		resets:         counter("resets"),
	}
}
