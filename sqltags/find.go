package sqltags

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tagworks/sqltags/db"
	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/tagset"
)

// Find searches the store for the entities matching every criterion.
//
// Each criterion compiles to one join clause; positive criteria become inner
// joins chained on the previous clause's entity id column, so the result set
// is the intersection of the per-criterion matches. Negative criteria become
// LEFT JOINs filtered to the unmatched rows. This compiled evaluation and
// the in-memory MatchAll agree row for row, which the parity tests assert.
//
// With withTags set each returned entity carries its tags; otherwise the tag
// sets are empty, which is cheaper when only ids or names are wanted.
func (s *Store) Find(ctx context.Context, criteria []tagset.TagSetCriterion, withTags bool) ([]*tagset.TaggedEntity, error) {
	query, args, err := findQuery(criteria)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		// a shutdown can close the handle under a long-running find;
		// mark it so callers can test with errors.Is
		if db.IsDatabaseClosed(err) {
			err = errors.Mark(err, db.ErrDatabaseClosed)
		}
		return nil, errors.Wrap(err, "find query")
	}
	defer rows.Close()

	var entities []*tagset.TaggedEntity
	for rows.Next() {
		var (
			id       int64
			name     sql.NullString
			unixtime sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &unixtime); err != nil {
			return nil, errors.Wrap(err, "scan entity row")
		}
		entities = append(entities, &tagset.TaggedEntity{
			ID:       id,
			Name:     name.String,
			Unixtime: unixtime.Float64,
			Tags:     tagset.NewTagSet(s.ont),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate entity rows")
	}

	if withTags {
		for _, entity := range entities {
			tags, err := s.EntityTags(ctx, entity.ID)
			if err != nil {
				return nil, err
			}
			entity.Tags = tags
		}
	}
	return entities, nil
}

// findQuery compiles criteria into the entity SELECT and its arguments.
func findQuery(criteria []tagset.TagSetCriterion) (string, []interface{}, error) {
	var (
		b      strings.Builder
		args   []interface{}
		wheres []string
	)
	b.WriteString("SELECT e.id, e.name, e.unixtime FROM entities e")

	prevIDColumn := "e.id"
	for i, crit := range criteria {
		sqlCrit, ok := crit.(tagset.SQLCriterion)
		if !ok {
			return "", nil, errors.Newf("criterion %q has no SQL form", crit)
		}
		clause, err := sqlCrit.SQLJoin(fmt.Sprintf("c%d", i))
		if err != nil {
			return "", nil, errors.Wrapf(err, "criterion %q", crit)
		}

		join := " JOIN"
		if clause.Outer {
			join = " LEFT JOIN"
		}
		fmt.Fprintf(&b, "%s %s %s ON %s = %s AND %s",
			join, clause.Table, clause.Alias,
			clause.EntityIDColumn, prevIDColumn, clause.Constraint)
		args = append(args, clause.Args...)

		if clause.Where != "" {
			wheres = append(wheres, clause.Where)
		} else if !clause.Outer {
			// chain the next inner join off this clause; outer joins are
			// skipped since their id column is NULL for kept rows
			prevIDColumn = clause.EntityIDColumn
		}
	}

	if len(wheres) > 0 {
		b.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	b.WriteString(" ORDER BY e.id")
	return b.String(), args, nil
}
