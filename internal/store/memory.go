package store

import (
	"context"
	"sync"
)

// Memory is an in-process backend. Used in tests and as an always-writable
// last resort; it does not survive a restart.
type Memory struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Load(ctx context.Context) ([]byte, bool, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, false, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, true, nil
}

func (m *Memory) Save(ctx context.Context, data []byte) error {
	_ = ctx
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.data = cp
	m.set = true
	m.mu.Unlock()
	return nil
}
