package checkpoints

import (
	"sync"

	"tablekv/lib/changelog"
)

// Memory is a Store that keeps offsets in process memory. It is used in
// tests and for ephemeral runs where recovery bookkeeping does not need to
// survive a restart.
type Memory struct {
	mu      sync.RWMutex
	offsets map[changelog.TopicPartition]int64
}

// NewMemory creates an empty in-memory checkpoint store.
func NewMemory() *Memory {
	return &Memory{
		offsets: make(map[changelog.TopicPartition]int64),
	}
}

func (m *Memory) GetOffset(tp changelog.TopicPartition) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offset, found := m.offsets[tp]
	return offset, found, nil
}

func (m *Memory) SetOffset(tp changelog.TopicPartition, offset int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsets[tp] = offset
	return nil
}

func (m *Memory) Offsets() (map[changelog.TopicPartition]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[changelog.TopicPartition]int64, len(m.offsets))
	for tp, offset := range m.offsets {
		result[tp] = offset
	}
	return result, nil
}

func (m *Memory) Close() error {
	return nil
}
