package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/replay/pkg/trajectory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTrajectoryAdded is emitted after a trajectory is appended to a bucket.
	EventTypeTrajectoryAdded = "replay.trajectory.added"
)

// TrajectoryAddedEvent is a transport-neutral event payload for an appended
// trajectory. It carries the lookup coordinates, not the payload.
type TrajectoryAddedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	TrajectoryID  string    `json:"trajectory_id"`
	Tags          []string  `json:"tags"`

	// TagKey is the canonical form of Tags. Transports that partition by key
	// use it so one bucket's events stay ordered.
	TagKey string `json:"tag_key"`
}

// NewTrajectoryAddedEvent builds the event for t.
func NewTrajectoryAddedEvent(t *trajectory.Trajectory) *TrajectoryAddedEvent {
	key := t.Key()
	return &TrajectoryAddedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTrajectoryAdded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		TrajectoryID:  t.ID,
		Tags:          key.Tags(),
		TagKey:        key.String(),
	}
}
