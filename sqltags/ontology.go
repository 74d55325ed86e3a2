package sqltags

import (
	"context"
	"iter"

	"github.com/tagworks/sqltags/tagset"
)

// sqlTagSetMapping backs a TagsOntology with the ontology table: one row per
// ontology key, the entry's tags stored in the tag line text form.
//
// The TagSetMapping interface is context-free; lookups run under the
// background context. Faults are soft: a failed read is a missing entry and
// a failed write is logged, matching how ontology lookups degrade elsewhere.
type sqlTagSetMapping struct {
	store *Store
}

var _ tagset.TagSetMapping = (*sqlTagSetMapping)(nil)

func (m *sqlTagSetMapping) Get(key string) (*tagset.TagSet, bool) {
	var line string
	err := m.store.db.QueryRowContext(context.Background(),
		"SELECT tags FROM ontology WHERE key = ?", key).Scan(&line)
	if err != nil {
		return nil, false
	}
	ts, err := tagset.ParseTagSetLine(line, m.store.ont)
	if err != nil {
		if m.store.log != nil {
			m.store.log.Warnw("bad ontology entry", "key", key, "error", err)
		}
		return nil, false
	}
	ts.Modified = false
	return ts, true
}

func (m *sqlTagSetMapping) Set(key string, ts *tagset.TagSet) {
	_, err := m.store.db.ExecContext(context.Background(), `
		INSERT INTO ontology (key, tags) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET tags = excluded.tags`,
		key, ts.String())
	if err != nil && m.store.log != nil {
		m.store.log.Warnw("ontology write failed", "key", key, "error", err)
	}
}

func (m *sqlTagSetMapping) Del(key string) {
	_, err := m.store.db.ExecContext(context.Background(),
		"DELETE FROM ontology WHERE key = ?", key)
	if err != nil && m.store.log != nil {
		m.store.log.Warnw("ontology delete failed", "key", key, "error", err)
	}
}

func (m *sqlTagSetMapping) Keys(prefix string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rows, err := m.store.db.QueryContext(context.Background(),
			"SELECT key FROM ontology WHERE key LIKE ? ESCAPE '\\' ORDER BY key",
			likePrefix(prefix))
		if err != nil {
			if m.store.log != nil {
				m.store.log.Warnw("ontology key scan failed", "prefix", prefix, "error", err)
			}
			return
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return
			}
			if !yield(key) {
				return
			}
		}
	}
}

// likePrefix builds a LIKE pattern matching keys starting with prefix,
// escaping LIKE metacharacters in the prefix itself.
func likePrefix(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+4)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}
