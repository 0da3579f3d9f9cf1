package pebbledb

import (
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	pebblebloom "github.com/cockroachdb/pebble/bloom"
	"log/slog"

	"tablekv/lib/store"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Engine tuning defaults, sized for a multi-hundred-GB working set.
const (
	defaultMaxOpenFiles             = 300000
	defaultWriteBufferSize          = 67108864 // 64 MiB
	defaultMaxWriteBufferNumber     = 3
	defaultTargetFileSizeBase       = 67108864   // 64 MiB
	defaultBlockCacheSize           = 2147483648 // 2 GiB
	defaultBlockCacheCompressedSize = 524288000  // 500 MiB
	defaultBloomFilterBitsPerKey    = 10

	// minProbeCapacity is the smallest key capacity the membership probe is
	// sized for, so small tables still leave growth headroom.
	minProbeCapacity = 1 << 20
)

// --------------------------------------------------------------------------
// Store Options
// --------------------------------------------------------------------------

// Options configures a Store during construction. All tuning values are
// fixed at the first engine open; changing them afterwards requires a close
// and reopen. A zero value means "use the default".
type Options struct {
	MaxOpenFiles             int   // Max file handles the engine may hold open
	WriteBufferSize          int   // Size of one memtable in bytes
	MaxWriteBufferNumber     int   // Queued memtables before writes stall
	TargetFileSizeBase       int64 // Target size of on-disk table files in bytes
	BlockCacheSize           int64 // Uncompressed block cache budget in bytes
	BlockCacheCompressedSize int64 // Compressed block cache budget in bytes
	BloomFilterBitsPerKey    int   // Bits per key for membership filtering (<= 0 disables the probe)

	// Offsets is the checkpoint collaborator PersistedOffset delegates to.
	// A nil source reports no offset for every partition.
	Offsets store.OffsetSource
}

// DefaultOptions returns the default Store options.
func DefaultOptions() *Options {
	return &Options{
		MaxOpenFiles:             defaultMaxOpenFiles,
		WriteBufferSize:          defaultWriteBufferSize,
		MaxWriteBufferNumber:     defaultMaxWriteBufferNumber,
		TargetFileSizeBase:       defaultTargetFileSizeBase,
		BlockCacheSize:           defaultBlockCacheSize,
		BlockCacheCompressedSize: defaultBlockCacheCompressedSize,
		BloomFilterBitsPerKey:    defaultBloomFilterBitsPerKey,
	}
}

// withDefaults copies o and fills every zero tuning value with its default.
func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.MaxOpenFiles == 0 {
		out.MaxOpenFiles = defaultMaxOpenFiles
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaultWriteBufferSize
	}
	if out.MaxWriteBufferNumber == 0 {
		out.MaxWriteBufferNumber = defaultMaxWriteBufferNumber
	}
	if out.TargetFileSizeBase == 0 {
		out.TargetFileSizeBase = defaultTargetFileSizeBase
	}
	if out.BlockCacheSize == 0 {
		out.BlockCacheSize = defaultBlockCacheSize
	}
	if out.BlockCacheCompressedSize == 0 {
		out.BlockCacheCompressedSize = defaultBlockCacheCompressedSize
	}
	if out.BloomFilterBitsPerKey == 0 {
		out.BloomFilterBitsPerKey = defaultBloomFilterBitsPerKey
	}
	return out
}

// engineOptions maps the Store configuration onto pebble's option surface.
//
// Pebble has a single block cache and no compressed-block cache, so the two
// cache budgets are pooled into one cache sized at their sum. The write
// buffer count maps onto MemTableStopWritesThreshold, the number of queued
// memtables at which writes stall.
func (s *Store) engineOptions(cache *pebble.Cache) *pebble.Options {
	opts := &pebble.Options{
		Cache:                       cache,
		MaxOpenFiles:                s.opts.MaxOpenFiles,
		MemTableSize:                s.opts.WriteBufferSize,
		MemTableStopWritesThreshold: s.opts.MaxWriteBufferNumber,
		Logger:                      engineLogger{log: s.log},
	}
	level := pebble.LevelOptions{
		TargetFileSize: s.opts.TargetFileSizeBase,
	}
	if s.opts.BloomFilterBitsPerKey > 0 {
		level.FilterPolicy = pebblebloom.FilterPolicy(s.opts.BloomFilterBitsPerKey)
	}
	opts.Levels = []pebble.LevelOptions{level}
	return opts
}

// --------------------------------------------------------------------------
// Engine Logger
// --------------------------------------------------------------------------

// engineLogger routes pebble's internal log output onto the store's slog
// logger.
type engineLogger struct {
	log *slog.Logger
}

func (l engineLogger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l engineLogger) Fatalf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
