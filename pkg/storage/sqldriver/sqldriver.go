// Package sqldriver stores trajectories in a relational table over
// database/sql. Queries are built with ent's dialect/sql builder so the same
// driver serves SQLite and PostgreSQL.
package sqldriver

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/trajectory"
)

const table = "trajectories"

// schema holds the append-only DDL per dialect. seq orders a bucket;
// tag_key holds the canonical form of the exact tag sequence.
var schema = map[string][]string{
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS trajectories (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			tag_key TEXT NOT NULL,
			tags TEXT NOT NULL,
			payload BLOB,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS trajectories_tag_key_seq ON trajectories (tag_key, seq)`,
	},
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS trajectories (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			tag_key TEXT NOT NULL,
			tags TEXT NOT NULL,
			payload BYTEA,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS trajectories_tag_key_seq ON trajectories (tag_key, seq)`,
	},
}

// Driver implements storage.Driver on top of an ent SQL driver.
type Driver struct {
	dialect string
	drv     *entsql.Driver
}

// New wraps db for the given ent dialect and creates the schema if needed.
func New(ctx context.Context, dialectName string, db *stdsql.DB) (*Driver, error) {
	stmts, ok := schema[dialectName]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %s", dialectName)
	}

	d := &Driver{
		dialect: dialectName,
		drv:     entsql.OpenDB(dialectName, db),
	}

	for _, stmt := range stmts {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return d, nil
}

// Add inserts t at the end of its bucket.
func (d *Driver) Add(ctx context.Context, t *trajectory.Trajectory) error {
	if err := storage.ValidateTrajectory(t); err != nil {
		return err
	}

	key := t.Key()
	tags, err := json.Marshal(key.Tags())
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	var createdAt int64
	if !t.CreatedAt.IsZero() {
		createdAt = t.CreatedAt.UnixNano()
	}

	query, args := entsql.Dialect(d.dialect).
		Insert(table).
		Columns("id", "tag_key", "tags", "payload", "created_at").
		Values(t.ID, key.String(), string(tags), []byte(t.Payload), createdAt).
		Query()

	if err := d.drv.Exec(ctx, query, args, nil); err != nil {
		return &storage.PersistenceError{Op: "insert", Err: err}
	}

	return nil
}

// Fetch returns one page of the bucket for tags, in insertion order.
func (d *Driver) Fetch(ctx context.Context, tags []string, page, pageSize int) ([]*trajectory.Trajectory, error) {
	if err := storage.ValidatePageSize(pageSize); err != nil {
		return nil, err
	}

	result := []*trajectory.Trajectory{}
	if page < 0 || page > math.MaxInt/pageSize {
		return result, nil
	}

	query, args := entsql.Dialect(d.dialect).
		Select("id", "tags", "payload", "created_at").
		From(entsql.Table(table)).
		Where(entsql.EQ("tag_key", trajectory.TagKey(tags).String())).
		OrderBy("seq").
		Limit(pageSize).
		Offset(page * pageSize).
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, &storage.PersistenceError{Op: "query", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			rawTags   string
			payload   []byte
			createdAt int64
		)
		if err := rows.Scan(&id, &rawTags, &payload, &createdAt); err != nil {
			return nil, &storage.PersistenceError{Op: "scan", Err: err}
		}

		t := &trajectory.Trajectory{ID: id, Tags: []string{}}
		if err := json.Unmarshal([]byte(rawTags), &t.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %s: %w", id, err)
		}
		if len(payload) > 0 {
			t.Payload = payload
		}
		if createdAt != 0 {
			t.CreatedAt = time.Unix(0, createdAt).UTC()
		}

		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, &storage.PersistenceError{Op: "query", Err: err}
	}

	return result, nil
}

// Stats returns bucket and trajectory counts.
func (d *Driver) Stats(ctx context.Context) (storage.Stats, error) {
	var rows entsql.Rows
	if err := d.drv.Query(ctx, "SELECT COUNT(DISTINCT tag_key), COUNT(*) FROM trajectories", []any{}, &rows); err != nil {
		return storage.Stats{}, &storage.PersistenceError{Op: "query", Err: err}
	}
	defer rows.Close()

	var stats storage.Stats
	if rows.Next() {
		if err := rows.Scan(&stats.Buckets, &stats.Trajectories); err != nil {
			return storage.Stats{}, &storage.PersistenceError{Op: "scan", Err: err}
		}
	}

	if err := rows.Err(); err != nil {
		return storage.Stats{}, &storage.PersistenceError{Op: "query", Err: err}
	}

	return stats, nil
}

// Keys returns the tag key of every bucket, ordered by canonical form.
func (d *Driver) Keys(ctx context.Context) ([]trajectory.TagKey, error) {
	query, args := entsql.Dialect(d.dialect).
		Select("tag_key", "tags").
		From(entsql.Table(table)).
		Distinct().
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, &storage.PersistenceError{Op: "query", Err: err}
	}
	defer rows.Close()

	keys := []trajectory.TagKey{}
	for rows.Next() {
		var tagKey, rawTags string
		if err := rows.Scan(&tagKey, &rawTags); err != nil {
			return nil, &storage.PersistenceError{Op: "scan", Err: err}
		}

		tags := []string{}
		if err := json.Unmarshal([]byte(rawTags), &tags); err != nil {
			return nil, fmt.Errorf("decoding tags of bucket %s: %w", tagKey, err)
		}
		keys = append(keys, trajectory.NewTagKey(tags))
	}

	if err := rows.Err(); err != nil {
		return nil, &storage.PersistenceError{Op: "query", Err: err}
	}

	// Sorted here so collation never depends on the database locale.
	slices.SortFunc(keys, func(a, b trajectory.TagKey) int {
		return strings.Compare(a.String(), b.String())
	})

	return keys, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.drv.Close()
}

var (
	_ storage.Driver    = (*Driver)(nil)
	_ storage.KeyLister = (*Driver)(nil)
)
