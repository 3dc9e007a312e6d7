package eventstream

import "context"

// Publisher publishes trajectory events to an event stream backend.
type Publisher interface {
	PublishTrajectoryAdded(ctx context.Context, event *TrajectoryAddedEvent) error
	Close() error
}
