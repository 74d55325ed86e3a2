package tagset

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tagworks/sqltags/errors"
)

// SQL compilation of criteria.
//
// A store-backed search compiles each criterion into one JoinClause; the
// clauses chain inner joins on the previous clause's entity id column, so
// the final result set is the intersection of the per-criterion constraints,
// mirroring the in-memory AND semantics exactly. Negative choices become
// LEFT JOINs filtered to the unmatched rows.
//
// Tag values are stored typed across three columns, exactly one non-NULL:
// float_value (numbers, datetimes as unixtime), string_value, and
// structured_value (canonical compact JSON).

// JoinClause is one criterion's contribution to a join chain.
type JoinClause struct {
	Table          string
	Alias          string
	EntityIDColumn string
	Constraint     string
	Args           []interface{}
	Outer          bool   // LEFT JOIN, for negative choices
	Where          string // post-join filter, e.g. the IS NULL absence test
}

// SQLCriterion is a criterion that can compile itself to a JoinClause.
// All built-in criteria implement it; the in-memory evaluation path and the
// compiled SQL must agree, which is asserted by the parity tests.
type SQLCriterion interface {
	TagSetCriterion
	SQLJoin(alias string) (JoinClause, error)
}

// SQLJoin compiles the entity-id test as a self-join of the entities table
// constrained to the id list.
func (c *EntityIDTest) SQLJoin(alias string) (JoinClause, error) {
	if len(c.IDs) == 0 {
		return JoinClause{}, errors.New("entity id test with no ids")
	}
	placeholders := "?"
	args := make([]interface{}, len(c.IDs))
	args[0] = c.IDs[0]
	for i := 1; i < len(c.IDs); i++ {
		placeholders += ",?"
		args[i] = c.IDs[i]
	}
	clause := JoinClause{
		Table:          "entities",
		Alias:          alias,
		EntityIDColumn: alias + ".id",
		Constraint:     fmt.Sprintf("%s.id IN (%s)", alias, placeholders),
		Args:           args,
	}
	if !c.Choice {
		clause.Outer = true
		clause.Where = alias + ".id IS NULL"
	}
	return clause, nil
}

// SQLJoin compiles the tag test as a join against the tags table.
func (c *TagBasedTest) SQLJoin(alias string) (JoinClause, error) {
	constraint := alias + ".name = ?"
	args := []interface{}{c.Name}

	if c.Comparison != "" {
		valueSQL, valueArgs, err := c.valueConstraint(alias)
		if err != nil {
			return JoinClause{}, err
		}
		constraint += " AND " + valueSQL
		args = append(args, valueArgs...)
	}

	clause := JoinClause{
		Table:          "tags",
		Alias:          alias,
		EntityIDColumn: alias + ".entity_id",
		Constraint:     constraint,
		Args:           args,
	}
	if !c.Choice {
		clause.Outer = true
		clause.Where = alias + ".id IS NULL"
	}
	return clause, nil
}

func (c *TagBasedTest) valueConstraint(alias string) (string, []interface{}, error) {
	switch c.Comparison {
	case OpEqual:
		column, arg, err := valueColumn(alias, c.Value)
		if err != nil {
			return "", nil, err
		}
		return column + " = ?", []interface{}{arg}, nil
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		column, arg, err := valueColumn(alias, c.Value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s ?", column, c.Comparison), []interface{}{arg}, nil
	case OpGlob:
		pattern, ok := c.Value.(string)
		if !ok {
			return "", nil, errors.Newf("glob criterion needs a string pattern, got %T", c.Value)
		}
		// Scalar strings match directly; list values match when any array
		// member does, mirroring the in-memory semantics. Mapping values
		// are untested.
		sql := fmt.Sprintf(
			"(%[1]s.string_value GLOB ?"+
				" OR (%[1]s.structured_value IS NOT NULL"+
				" AND json_type(%[1]s.structured_value) = 'array'"+
				" AND EXISTS (SELECT 1 FROM json_each(%[1]s.structured_value)"+
				" WHERE json_each.type = 'text' AND json_each.value GLOB ?)))",
			alias,
		)
		return sql, []interface{}{pattern, pattern}, nil
	case OpRegexp:
		pattern, ok := c.Value.(string)
		if !ok {
			return "", nil, errors.Newf("regexp criterion needs a string pattern, got %T", c.Value)
		}
		return alias + ".string_value REGEXP ?", []interface{}{pattern}, nil
	default:
		return "", nil, errors.Newf("no SQL form for comparison %q", c.Comparison)
	}
}

// valueColumn picks the typed value column and comparison argument for a
// criterion value, mirroring how the store types values on write.
func valueColumn(alias string, value interface{}) (string, interface{}, error) {
	switch v := normalizeValue(value).(type) {
	case int64:
		// mirrors the store: integers beyond exact float range are JSON
		if v >= -(1<<53) && v <= 1<<53 {
			return alias + ".float_value", float64(v), nil
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", nil, errors.Wrap(err, "cannot encode integer criterion value")
		}
		return alias + ".structured_value", string(encoded), nil
	case float64:
		return alias + ".float_value", v, nil
	case DateTime:
		return alias + ".float_value", float64(v.Unix()), nil
	case Date:
		return alias + ".float_value", float64(v.Unix()), nil
	case string:
		return alias + ".string_value", v, nil
	case uuid.UUID:
		return alias + ".string_value", v.String(), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", nil, errors.Wrapf(err, "cannot encode %T criterion value", value)
		}
		return alias + ".structured_value", string(encoded), nil
	}
}
