package pebbledb

import (
	"math"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
)

// probe is the approximate-membership filter in front of the engine. It
// answers "definitely absent" or "maybe present" with zero false negatives:
// every key written since the last open is added, deletes are ignored, and
// a reopen reseeds it from a full keys scan. A nil filter means the probe is
// disabled and every key is "maybe present".
//
// Thread-safety: safe for concurrent use. The underlying filter is not, so
// all access goes through the mutex.
type probe struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// newProbe sizes a filter for the given key capacity. The false-positive
// rate is derived from the configured bits per key with the standard
// 0.6185^bits approximation. Exceeding the capacity later degrades the
// false-positive rate, never the no-false-negative guarantee.
func newProbe(capacity uint, bitsPerKey int) *probe {
	if bitsPerKey <= 0 {
		return &probe{}
	}
	fp := math.Pow(0.6185, float64(bitsPerKey))
	return &probe{filter: bloom.NewWithEstimates(capacity, fp)}
}

func (p *probe) add(key []byte) {
	if p.filter == nil {
		return
	}
	p.mu.Lock()
	p.filter.Add(key)
	p.mu.Unlock()
}

func (p *probe) mayContain(key []byte) bool {
	if p.filter == nil {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter.Test(key)
}

// probeCapacity picks the filter capacity for a table that currently holds
// count keys.
func probeCapacity(count int) uint {
	c := count * 2
	if c < minProbeCapacity {
		c = minProbeCapacity
	}
	return uint(c)
}
