package tagset

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/tagworks/sqltags/errors"
)

// Tag values are JSON-representable values plus a small set of "special"
// string-convertible types: UUIDs, dates and datetimes. Special types are
// transcribed in their canonical string form and recognized on parse by
// trying each registered type in order against the run of non-whitespace.

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// Date is a calendar date tag value, transcribed as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses a Date from its canonical YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

// DateTime is a timestamp tag value, transcribed in ISO form without a zone.
type DateTime struct {
	time.Time
}

// ParseDateTime parses a DateTime from its canonical ISO form.
func ParseDateTime(s string) (DateTime, error) {
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{t}, nil
}

func (dt DateTime) String() string { return dt.Format(dateTimeLayout) }

// specialType couples a parse and a transcribe function for one of the
// string-convertible value types. Parse order is registration order.
type specialType struct {
	parse      func(string) (interface{}, bool)
	transcribe func(interface{}) (string, bool)
}

var specialTypes = []specialType{
	{
		parse: func(s string) (interface{}, bool) {
			// Restrict to the canonical 36 character form so that
			// shorter hex runs stay ordinary values.
			if len(s) != 36 {
				return nil, false
			}
			u, err := uuid.Parse(s)
			if err != nil {
				return nil, false
			}
			return u, true
		},
		transcribe: func(v interface{}) (string, bool) {
			u, ok := v.(uuid.UUID)
			if !ok {
				return "", false
			}
			return u.String(), true
		},
	},
	{
		parse: func(s string) (interface{}, bool) {
			d, err := ParseDate(s)
			if err != nil {
				return nil, false
			}
			return d, true
		},
		transcribe: func(v interface{}) (string, bool) {
			d, ok := v.(Date)
			if !ok {
				return "", false
			}
			return d.String(), true
		},
	},
	{
		parse: func(s string) (interface{}, bool) {
			dt, err := ParseDateTime(s)
			if err != nil {
				return nil, false
			}
			return dt, true
		},
		transcribe: func(v interface{}) (string, bool) {
			dt, ok := v.(DateTime)
			if !ok {
				return "", false
			}
			return dt.String(), true
		},
	},
}

// TranscribeValue transcribes value for use in the tag text form.
// Special types use their canonical string form, dotted-identifier strings
// are emitted bare, everything else is compact JSON.
func TranscribeValue(value interface{}) (string, error) {
	for _, st := range specialTypes {
		s, ok := st.transcribe(value)
		if !ok {
			continue
		}
		if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
			return "", errors.Newf("special transcription %q contains whitespace", s)
		}
		return s, nil
	}
	if s, ok := value.(string); ok && IsDottedIdentifier(s) {
		return s, nil
	}
	encoded, err := json.Marshal(normalizeValue(value))
	if err != nil {
		return "", errors.Wrapf(err, "cannot transcribe %T value", value)
	}
	return string(encoded), nil
}

// ParseValue parses a tag value from s at offset.
// The grammar, tried in order:
//   - a dotted-identifier bare word is a literal string
//   - a run of non-whitespace matching a special type in registration order
//   - JSON, consuming only as much of s as one JSON value requires
//
// It returns the value and the offset beyond it.
func ParseValue(s string, offset int) (interface{}, int, error) {
	if offset >= len(s) || s[offset] == ' ' || s[offset] == '\t' {
		return nil, offset, errors.Newf("offset %d: missing value", offset)
	}
	if bare, offset2 := GetDottedIdentifier(s, offset); bare != "" {
		// Accept the bare word only if it is a complete non-whitespace run,
		// otherwise it is the prefix of something else (a date, JSON, ...).
		if offset2 >= len(s) || s[offset2] == ' ' || s[offset2] == '\t' {
			return bare, offset2, nil
		}
	}
	nonwhite, nwOffset := GetNonWhite(s, offset)
	for _, st := range specialTypes {
		if v, ok := st.parse(nonwhite); ok {
			return v, nwOffset, nil
		}
	}
	decoder := json.NewDecoder(strings.NewReader(s[offset:]))
	decoder.UseNumber()
	var v interface{}
	if err := decoder.Decode(&v); err != nil {
		return nil, offset, errors.Wrapf(err, "offset %d: invalid value", offset)
	}
	return normalizeValue(v), offset + int(decoder.InputOffset()), nil
}

// NormalizeValue maps a value onto its canonical parsed form: integral
// numbers become int64, other numbers float64, containers are normalized
// recursively. Values from a Tag or TagSet are already in this form.
func NormalizeValue(value interface{}) interface{} {
	return normalizeValue(value)
}

// normalizeValue maps values onto the canonical parsed forms so that
// transcribe/parse round trips compare equal: integral numbers become int64,
// other numbers float64, and containers are normalized recursively.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeValue(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		// beyond int64: the float form loses precision but never wraps
		if v > math.MaxInt64 {
			return float64(v)
		}
		return int64(v)
	case float32:
		return float64(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = normalizeValue(elem)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, elem := range v {
			out[k] = normalizeValue(elem)
		}
		return out
	default:
		return value
	}
}
