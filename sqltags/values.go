package sqltags

import (
	"bytes"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/tagset"
)

// A tag value is stored typed across three columns with exactly one
// non-NULL (all three NULL for a bare tag):
//
//	float_value      numbers; dates and datetimes as unixtime; integers
//	                 when the float conversion is exact
//	string_value     strings; UUIDs in canonical form
//	structured_value everything else as canonical compact JSON
//
// The same typing drives criterion compilation, so SQL comparisons see the
// column the value actually lives in.

// tagColumns is the typed three-column form of one tag value.
type tagColumns struct {
	floatValue      sql.NullFloat64
	stringValue     sql.NullString
	structuredValue sql.NullString
}

// columnsForValue types value into its storage columns.
func columnsForValue(value interface{}) (tagColumns, error) {
	var cols tagColumns
	switch v := tagset.NormalizeValue(value).(type) {
	case nil:
	case int64:
		// exact in a float64 mantissa
		if v >= -(1<<53) && v <= 1<<53 {
			cols.floatValue = sql.NullFloat64{Float64: float64(v), Valid: true}
		} else {
			// too large for an exact float: keep the precise form
			encoded, err := json.Marshal(v)
			if err != nil {
				return cols, errors.Wrap(err, "encode integer value")
			}
			cols.structuredValue = sql.NullString{String: string(encoded), Valid: true}
		}
	case float64:
		cols.floatValue = sql.NullFloat64{Float64: v, Valid: true}
	case tagset.Date:
		cols.floatValue = sql.NullFloat64{Float64: float64(v.Unix()), Valid: true}
	case tagset.DateTime:
		cols.floatValue = sql.NullFloat64{Float64: float64(v.Unix()), Valid: true}
	case string:
		cols.stringValue = sql.NullString{String: v, Valid: true}
	case uuid.UUID:
		cols.stringValue = sql.NullString{String: v.String(), Valid: true}
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return cols, errors.Wrapf(err, "cannot encode %T tag value", value)
		}
		cols.structuredValue = sql.NullString{String: string(encoded), Valid: true}
	}
	return cols, nil
}

// valueFromColumns is the inverse of columnsForValue, modulo typing lost to
// the storage form: integers and datetimes come back as float64.
func valueFromColumns(cols tagColumns) (interface{}, error) {
	switch {
	case cols.floatValue.Valid:
		return cols.floatValue.Float64, nil
	case cols.stringValue.Valid:
		return cols.stringValue.String, nil
	case cols.structuredValue.Valid:
		decoder := json.NewDecoder(bytes.NewReader([]byte(cols.structuredValue.String)))
		decoder.UseNumber()
		var v interface{}
		if err := decoder.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "bad structured value %q", cols.structuredValue.String)
		}
		return tagset.NormalizeValue(v), nil
	default:
		// bare tag
		return nil, nil
	}
}
