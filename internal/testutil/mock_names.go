package testutil

import (
	"context"
	"sync"

	"github.com/sdrshnv/deid/internal/classifier"
)

// MockNameDetector returns canned name entities or an error.
type MockNameDetector struct {
	Entities []classifier.PIIEntity
	Err      error
	// Available is returned by Ping.
	Available bool

	mu    sync.Mutex
	calls int
}

// DetectNames returns Entities or Err.
func (m *MockNameDetector) DetectNames(_ context.Context, _ string) ([]classifier.PIIEntity, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]classifier.PIIEntity, len(m.Entities))
	copy(out, m.Entities)
	return out, nil
}

// Ping reports Available.
func (m *MockNameDetector) Ping(_ context.Context) bool { return m.Available }

// Calls returns how many times DetectNames ran.
func (m *MockNameDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
