package sqltags

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/tagset"
)

// ErrNoEntity is returned when a lookup names an entity that does not exist.
var ErrNoEntity = errors.New("no such entity")

// Store is a SQLite-backed collection of tagged entities.
//
// Tag mutations are written through to the backing store transactionally per
// call; there are no batched writes. A coarse per-store mutex serializes
// mutators, matching the one-writer discipline SQLite imposes anyway.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	log *zap.SugaredLogger
	ont *tagset.TagsOntology
}

// NewStore makes a Store over an open database. The logger may be nil for a
// silent store. The store's ontology is backed by the ontology table of the
// same database.
func NewStore(database *sql.DB, logger *zap.SugaredLogger) *Store {
	s := &Store{db: database, log: logger}
	s.ont = tagset.NewTagsOntology(&sqlTagSetMapping{store: s})
	return s
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ontology returns the store's SQL-backed ontology.
func (s *Store) Ontology() *tagset.TagsOntology {
	return s.ont
}

// Add creates a new entity with the given name (empty for an unnamed log
// entry), timestamp and tags, inserting the entity row and its tag rows in
// one transaction. A zero unixtime means now.
func (s *Store) Add(ctx context.Context, name string, unixtime float64, tags *tagset.TagSet) (*tagset.TaggedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unixtime == 0 {
		unixtime = float64(time.Now().UnixNano()) / 1e9
	}
	if tags == nil {
		tags = tagset.NewTagSet(s.ont)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	var nameValue sql.NullString
	if name != "" {
		nameValue = sql.NullString{String: name, Valid: true}
	}
	result, err := tx.ExecContext(ctx,
		"INSERT INTO entities (name, unixtime) VALUES (?, ?)", nameValue, unixtime)
	if err != nil {
		return nil, errors.Wrapf(err, "insert entity %q", name)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "entity id")
	}

	for _, tag := range tags.AsTags("") {
		if err := upsertTag(ctx, tx, id, tag.Name, tag.Value); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	if s.log != nil {
		s.log.Debugw("entity added", "id", id, "name", name, "tags", tags.Len())
	}
	entity := &tagset.TaggedEntity{ID: id, Name: name, Unixtime: unixtime, Tags: tags}
	tags.Ontology = s.ont
	tags.Modified = false
	return entity, nil
}

// Make fetches the entity named name, creating it if missing.
func (s *Store) Make(ctx context.Context, name string) (*tagset.TaggedEntity, error) {
	if name == "" {
		return nil, errors.New("cannot make an unnamed entity")
	}
	entity, err := s.Get(ctx, name)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, ErrNoEntity) {
		return nil, err
	}
	return s.Add(ctx, name, 0, nil)
}

// Get fetches the entity named name, with its tags.
// A missing name returns ErrNoEntity.
func (s *Store) Get(ctx context.Context, name string) (*tagset.TaggedEntity, error) {
	return s.getWhere(ctx, "name = ?", name)
}

// GetID fetches the entity with row id, with its tags.
// A missing id returns ErrNoEntity.
func (s *Store) GetID(ctx context.Context, id int64) (*tagset.TaggedEntity, error) {
	return s.getWhere(ctx, "id = ?", id)
}

func (s *Store) getWhere(ctx context.Context, where string, arg interface{}) (*tagset.TaggedEntity, error) {
	var (
		id       int64
		name     sql.NullString
		unixtime sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, unixtime FROM entities WHERE "+where, arg,
	).Scan(&id, &name, &unixtime)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNoEntity, "%v", arg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select entity")
	}
	tags, err := s.EntityTags(ctx, id)
	if err != nil {
		return nil, err
	}
	return &tagset.TaggedEntity{
		ID:       id,
		Name:     name.String,
		Unixtime: unixtime.Float64,
		Tags:     tags,
	}, nil
}

// EntityTags fetches the tags of one entity as a TagSet sharing the store's
// ontology.
func (s *Store) EntityTags(ctx context.Context, id int64) (*tagset.TagSet, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, float_value, string_value, structured_value FROM tags WHERE entity_id = ? ORDER BY name",
		id)
	if err != nil {
		return nil, errors.Wrapf(err, "select tags for entity %d", id)
	}
	defer rows.Close()

	tags := tagset.NewTagSet(s.ont)
	for rows.Next() {
		var (
			name string
			cols tagColumns
		)
		if err := rows.Scan(&name, &cols.floatValue, &cols.stringValue, &cols.structuredValue); err != nil {
			return nil, errors.Wrap(err, "scan tag row")
		}
		value, err := valueFromColumns(cols)
		if err != nil {
			return nil, errors.Wrapf(err, "tag %q of entity %d", name, id)
		}
		tags.Set(name, value)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate tag rows")
	}
	tags.Modified = false
	return tags, nil
}

// SetTag upserts one tag of an entity, written through immediately.
func (s *Store) SetTag(ctx context.Context, entityID int64, name string, value interface{}) error {
	if !tagset.IsValidTagName(name) {
		return errors.Newf("invalid tag name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := upsertTag(ctx, tx, entityID, name, value); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	if s.log != nil {
		s.log.Debugw("tag set", "entity", entityID, "tag", tagset.NewTag(name, value).String())
	}
	return nil
}

func upsertTag(ctx context.Context, tx *sql.Tx, entityID int64, name string, value interface{}) error {
	cols, err := columnsForValue(value)
	if err != nil {
		return errors.Wrapf(err, "tag %q", name)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tags (entity_id, name, float_value, string_value, structured_value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, name) DO UPDATE SET
			float_value = excluded.float_value,
			string_value = excluded.string_value,
			structured_value = excluded.structured_value`,
		entityID, name, cols.floatValue, cols.stringValue, cols.structuredValue)
	if err != nil {
		return errors.Wrapf(err, "upsert tag %q for entity %d", name, entityID)
	}
	return nil
}

// DiscardTag removes one tag of an entity. A non-nil value only removes a
// matching stored value. It reports whether a tag was removed.
func (s *Store) DiscardTag(ctx context.Context, entityID int64, name string, value interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "DELETE FROM tags WHERE entity_id = ? AND name = ?"
	args := []interface{}{entityID, name}
	if value != nil {
		cols, err := columnsForValue(value)
		if err != nil {
			return false, errors.Wrapf(err, "tag %q", name)
		}
		switch {
		case cols.floatValue.Valid:
			query += " AND float_value = ?"
			args = append(args, cols.floatValue.Float64)
		case cols.stringValue.Valid:
			query += " AND string_value = ?"
			args = append(args, cols.stringValue.String)
		case cols.structuredValue.Valid:
			query += " AND structured_value = ?"
			args = append(args, cols.structuredValue.String)
		}
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrapf(err, "discard tag %q for entity %d", name, entityID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	if n > 0 && s.log != nil {
		s.log.Debugw("tag removed", "entity", entityID, "tag", name)
	}
	return n > 0, nil
}
