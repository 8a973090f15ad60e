package sheet

import (
	"context"
	"sync"
)

// Memory is an in-process Sheet. Setting Fail makes every call return ErrUnavailable.
type Memory struct {
	mu   sync.Mutex
	rows [][]string
	fail bool

	headerWrites int
	batches      int
}

// NewMemory returns an empty in-memory sheet.
func NewMemory() *Memory {
	return &Memory{}
}

// SetFail toggles simulated connectivity failure.
func (m *Memory) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// HeaderWrites counts header rows actually written.
func (m *Memory) HeaderWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headerWrites
}

// Batches counts successful AppendRows calls.
func (m *Memory) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

func (m *Memory) AppendHeaderIfAbsent(_ context.Context, header []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, ErrUnavailable
	}
	if len(m.rows) > 0 {
		return false, nil
	}
	m.rows = append(m.rows, append([]string(nil), header...))
	m.headerWrites++
	return true, nil
}

func (m *Memory) AppendRows(_ context.Context, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return ErrUnavailable
	}
	for _, r := range rows {
		m.rows = append(m.rows, append([]string(nil), r...))
	}
	m.batches++
	return nil
}

func (m *Memory) Rows(_ context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, ErrUnavailable
	}
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}
