package store

import (
	"context"
	"sync"

	"options_venue/errs"
)

// Memory is an in-process Store. It backs tests and runs without a
// configured Redis; state then lives only for the process lifetime.
type Memory struct {
	mtx  sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(ctx context.Context, key string) ([]byte, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	raw, ok := m.data[key]
	if !ok {
		return nil, errs.NotFoundf("key %q", key)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (m *Memory) Save(ctx context.Context, key string, value []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	raw := make([]byte, len(value))
	copy(raw, value)
	m.data[key] = raw
	return nil
}

// Keys returns every saved key, for snapshot inspection in tests.
func (m *Memory) Keys() []string {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
