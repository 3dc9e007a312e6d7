package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/replay/pkg/eventstream"
)

// MockPublisher records published events for assertions.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TrajectoryAddedEvent
	closed bool

	// FailWith, when set, is returned by every publish call.
	FailWith error
}

// NewMockPublisher creates an empty MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishTrajectoryAdded records event, or returns FailWith when set.
func (m *MockPublisher) PublishTrajectoryAdded(_ context.Context, event *eventstream.TrajectoryAddedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (m *MockPublisher) Events() []*eventstream.TrajectoryAddedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*eventstream.TrajectoryAddedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the publisher closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
