// Package snapshot encodes a whole trajectory index into a single binary blob
// and writes it to disk atomically.
//
// The blob starts with the magic "RPLY" and a format version varint, followed
// by protobuf wire format records:
//
//	snapshot   = { 1: bucket (repeated, bytes) }
//	bucket     = { 1: tag (repeated, string), 2: trajectory (repeated, bytes) }
//	trajectory = { 1: id (string), 2: tag (repeated, string),
//	               3: payload (bytes), 4: created_at (sint64, unix nanos) }
//
// Unknown fields are skipped so newer writers stay readable.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/papercomputeco/replay/pkg/trajectory"
)

// FormatVersion is the snapshot format written by Encode.
const FormatVersion = 1

var magic = []byte("RPLY")

var (
	// ErrBadMagic is returned when the data is not a replay snapshot.
	ErrBadMagic = errors.New("not a replay snapshot")

	// ErrUnsupportedVersion is returned for snapshots written by an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

const (
	snapshotBucket protowire.Number = 1

	bucketTag        protowire.Number = 1
	bucketTrajectory protowire.Number = 2

	trajectoryID        protowire.Number = 1
	trajectoryTag       protowire.Number = 2
	trajectoryPayload   protowire.Number = 3
	trajectoryCreatedAt protowire.Number = 4
)

// Bucket is one tag key and its trajectories in insertion order.
type Bucket struct {
	Key          trajectory.TagKey
	Trajectories []*trajectory.Trajectory
}

// Encode serializes the buckets into a snapshot blob. Bucket order and
// trajectory order are preserved.
func Encode(buckets []Bucket) []byte {
	b := make([]byte, 0, 64)
	b = append(b, magic...)
	b = protowire.AppendVarint(b, FormatVersion)

	for _, bucket := range buckets {
		b = protowire.AppendTag(b, snapshotBucket, protowire.BytesType)
		b = protowire.AppendBytes(b, appendBucket(nil, bucket))
	}

	return b
}

func appendBucket(b []byte, bucket Bucket) []byte {
	for _, tag := range bucket.Key {
		b = protowire.AppendTag(b, bucketTag, protowire.BytesType)
		b = protowire.AppendString(b, tag)
	}

	for _, t := range bucket.Trajectories {
		b = protowire.AppendTag(b, bucketTrajectory, protowire.BytesType)
		b = protowire.AppendBytes(b, appendTrajectory(nil, t))
	}

	return b
}

func appendTrajectory(b []byte, t *trajectory.Trajectory) []byte {
	if t.ID != "" {
		b = protowire.AppendTag(b, trajectoryID, protowire.BytesType)
		b = protowire.AppendString(b, t.ID)
	}

	for _, tag := range t.Tags {
		b = protowire.AppendTag(b, trajectoryTag, protowire.BytesType)
		b = protowire.AppendString(b, tag)
	}

	if len(t.Payload) > 0 {
		b = protowire.AppendTag(b, trajectoryPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, t.Payload)
	}

	if !t.CreatedAt.IsZero() {
		b = protowire.AppendTag(b, trajectoryCreatedAt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(t.CreatedAt.UnixNano()))
	}

	return b
}

// Decode parses a snapshot blob. It rejects blobs whose trajectories do not
// carry exactly their bucket's tags and blobs that repeat a bucket key.
func Decode(data []byte) ([]Bucket, error) {
	if !bytes.HasPrefix(data, magic) {
		return nil, ErrBadMagic
	}
	data = data[len(magic):]

	version, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, fmt.Errorf("reading version: %w", protowire.ParseError(n))
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	data = data[n:]

	var buckets []Bucket
	seen := make(map[string]struct{})

	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != snapshotBucket {
			return 0, nil
		}

		raw, n, err := consumeBytes(num, typ, b)
		if err != nil {
			return 0, err
		}

		bucket, err := decodeBucket(raw)
		if err != nil {
			return 0, fmt.Errorf("bucket %d: %w", len(buckets), err)
		}

		key := bucket.Key.String()
		if _, ok := seen[key]; ok {
			return 0, fmt.Errorf("bucket %d: duplicate key %q", len(buckets), []string(bucket.Key))
		}
		seen[key] = struct{}{}

		buckets = append(buckets, bucket)
		return n, nil
	})
	if err != nil {
		return nil, err
	}

	return buckets, nil
}

func decodeBucket(data []byte) (Bucket, error) {
	bucket := Bucket{Key: trajectory.TagKey{}}

	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case bucketTag:
			tag, n, err := consumeString(num, typ, b)
			if err != nil {
				return 0, err
			}
			bucket.Key = append(bucket.Key, tag)
			return n, nil

		case bucketTrajectory:
			raw, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			t, err := decodeTrajectory(raw)
			if err != nil {
				return 0, fmt.Errorf("trajectory %d: %w", len(bucket.Trajectories), err)
			}
			bucket.Trajectories = append(bucket.Trajectories, t)
			return n, nil
		}

		return 0, nil
	})
	if err != nil {
		return Bucket{}, err
	}

	for i, t := range bucket.Trajectories {
		if !bucket.Key.Equal(t.Tags) {
			return Bucket{}, fmt.Errorf("trajectory %d: tags %q do not match bucket %q", i, t.Tags, []string(bucket.Key))
		}
	}

	return bucket, nil
}

func decodeTrajectory(data []byte) (*trajectory.Trajectory, error) {
	t := &trajectory.Trajectory{Tags: []string{}}

	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case trajectoryID:
			id, n, err := consumeString(num, typ, b)
			if err != nil {
				return 0, err
			}
			t.ID = id
			return n, nil

		case trajectoryTag:
			tag, n, err := consumeString(num, typ, b)
			if err != nil {
				return 0, err
			}
			t.Tags = append(t.Tags, tag)
			return n, nil

		case trajectoryPayload:
			payload, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return 0, err
			}
			t.Payload = bytes.Clone(payload)
			return n, nil

		case trajectoryCreatedAt:
			if typ != protowire.VarintType {
				return 0, fmt.Errorf("field %d: unexpected wire type %d", num, typ)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			t.CreatedAt = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
			return n, nil
		}

		return 0, nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// walk visits each field of a message. visit returns how many value bytes it
// consumed; 0 means the field is unknown and gets skipped.
func walk(b []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}

	return nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("field %d: unexpected wire type %d", num, typ)
	}

	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}

	return v, n, nil
}

func consumeString(num protowire.Number, typ protowire.Type, b []byte) (string, int, error) {
	v, n, err := consumeBytes(num, typ, b)
	if err != nil {
		return "", 0, err
	}

	return string(v), n, nil
}
