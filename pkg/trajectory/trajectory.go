// Package trajectory defines the record type kept by the replay store: an opaque,
// previously recorded sequence (for example of agent actions) that carries an
// ordered set of descriptive tags.
package trajectory

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Trajectory is an immutable, tag-carrying record. The store never inspects
// Payload; it is carried as raw bytes across persistence cycles.
type Trajectory struct {
	// ID identifies the trajectory. It carries no meaning for lookups.
	ID string `json:"id"`

	// Tags is the ordered tag sequence. It is used verbatim, including order
	// and duplicates, as the lookup key.
	Tags []string `json:"tags"`

	// Payload is the opaque recorded content.
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt is when the trajectory value was created.
	CreatedAt time.Time `json:"created_at"`
}

// New creates a Trajectory with a fresh ID. Both tags and payload are copied so
// later mutation by the caller cannot reach the stored value.
func New(tags []string, payload json.RawMessage) *Trajectory {
	return &Trajectory{
		ID:        uuid.NewString(),
		Tags:      cloneTags(tags),
		Payload:   bytes.Clone(payload),
		CreatedAt: time.Now().UTC(),
	}
}

// Key returns the exact tag key of the trajectory.
func (t *Trajectory) Key() TagKey {
	return NewTagKey(t.Tags)
}

// Clone returns a deep copy of the trajectory.
func (t *Trajectory) Clone() *Trajectory {
	if t == nil {
		return nil
	}

	return &Trajectory{
		ID:        t.ID,
		Tags:      cloneTags(t.Tags),
		Payload:   bytes.Clone(t.Payload),
		CreatedAt: t.CreatedAt,
	}
}

// Equal reports whether two trajectories are structurally equal.
func (t *Trajectory) Equal(other *Trajectory) bool {
	if t == nil || other == nil {
		return t == other
	}

	return t.ID == other.ID &&
		slices.Equal(t.Tags, other.Tags) &&
		bytes.Equal(t.Payload, other.Payload) &&
		t.CreatedAt.Equal(other.CreatedAt)
}

func cloneTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
