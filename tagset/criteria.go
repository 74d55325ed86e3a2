package tagset

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/logger"
)

// TagSetCriterion is a predicate over a tagged entity. A list of criteria is
// implicitly AND-ed. Criteria are stateless once parsed.
type TagSetCriterion interface {
	// MatchTaggedEntity evaluates the criterion against an entity in memory.
	MatchTaggedEntity(te *TaggedEntity) bool
	String() string
}

// Comparison operators for TagBasedTest.
// "~" is glob matching, "~/" is a regexp search (anywhere in the string).
const (
	OpEqual        = "="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpGlob         = "~"
	OpRegexp       = "~/"
)

// comparison operators ordered so that longer operators parse first
var comparisonOps = []string{OpLessEqual, OpGreaterEqual, OpRegexp, OpLess, OpGreater, OpEqual, OpGlob}

// criterionParsers are the ordered alternatives tried by ParseCriterionAt.
// More specific shapes come before more general ones: the entity-id test
// must be tried before the generic tag test, whose name grammar would
// otherwise swallow the "id" keyword.
var criterionParsers = []func(s string, offset int, choice bool) (TagSetCriterion, int, bool, error){
	parseEntityIDTest,
	parseTagBasedTest,
}

// ParseCriterionAt parses one criterion from s at offset: an optional
// leading "!" or "-" negation followed by exactly one recognized shape.
// It returns the criterion and the offset beyond it.
func ParseCriterionAt(s string, offset int) (TagSetCriterion, int, error) {
	choice := true
	if offset < len(s) && (s[offset] == '!' || s[offset] == '-') {
		choice = false
		offset++
	}
	for _, parse := range criterionParsers {
		crit, offset2, ok, err := parse(s, offset, choice)
		if err != nil {
			return nil, offset, err
		}
		if ok {
			return crit, offset2, nil
		}
	}
	return nil, offset, errors.Newf("offset %d: unrecognized criterion", offset)
}

// ParseCriterion parses a whole string as a single criterion; unparsed
// trailing text is an error.
func ParseCriterion(s string) (TagSetCriterion, error) {
	crit, offset, err := ParseCriterionAt(s, 0)
	if err != nil {
		return nil, err
	}
	if offset != len(s) {
		return nil, errors.Newf("unparsed criterion text: %q", s[offset:])
	}
	return crit, nil
}

// ParseCriteria parses a list of criterion strings, as from a command line.
func ParseCriteria(specs []string) ([]TagSetCriterion, error) {
	criteria := make([]TagSetCriterion, 0, len(specs))
	for _, spec := range specs {
		crit, err := ParseCriterion(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", spec)
		}
		criteria = append(criteria, crit)
	}
	return criteria, nil
}

// MatchAll evaluates criteria against an entity with AND semantics.
func MatchAll(te *TaggedEntity, criteria []TagSetCriterion) bool {
	for _, crit := range criteria {
		if !crit.MatchTaggedEntity(te) {
			return false
		}
	}
	return true
}

// EntityIDTest selects entities by store row id: "id:1,2,3".
type EntityIDTest struct {
	Choice bool
	IDs    []int64
}

func parseEntityIDTest(s string, offset int, choice bool) (TagSetCriterion, int, bool, error) {
	if !strings.HasPrefix(s[offset:], "id:") {
		return nil, offset, false, nil
	}
	offset += len("id:")
	var ids []int64
	for {
		numText, offset2 := spanDigits(s, offset)
		if numText == "" {
			return nil, offset, false, errors.Newf("offset %d: missing entity id", offset)
		}
		id, err := strconv.ParseInt(numText, 10, 64)
		if err != nil {
			return nil, offset, false, errors.Wrapf(err, "offset %d: bad entity id", offset)
		}
		ids = append(ids, id)
		offset = offset2
		if offset >= len(s) || s[offset] != ',' {
			break
		}
		offset++
	}
	return &EntityIDTest{Choice: choice, IDs: ids}, offset, true, nil
}

func spanDigits(s string, offset int) (string, int) {
	start := offset
	for offset < len(s) && s[offset] >= '0' && s[offset] <= '9' {
		offset++
	}
	return s[start:offset], offset
}

func (c *EntityIDTest) String() string {
	parts := make([]string, len(c.IDs))
	for i, id := range c.IDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	spec := "id:" + strings.Join(parts, ",")
	if !c.Choice {
		spec = "!" + spec
	}
	return spec
}

// MatchTaggedEntity tests the entity id against the id list.
func (c *EntityIDTest) MatchTaggedEntity(te *TaggedEntity) bool {
	found := false
	for _, id := range c.IDs {
		if te.ID == id {
			found = true
			break
		}
	}
	if !c.Choice {
		return !found
	}
	return found
}

// TagBasedTest tests one tag of an entity: presence when Comparison is
// empty, otherwise Comparison applied between the stored value and Value.
type TagBasedTest struct {
	Choice     bool
	Name       string
	Comparison string
	Value      interface{}
}

func parseTagBasedTest(s string, offset int, choice bool) (TagSetCriterion, int, bool, error) {
	name, offset2 := GetDottedIdentifier(s, offset)
	if name == "" {
		return nil, offset, false, nil
	}
	offset = offset2
	test := &TagBasedTest{Choice: choice, Name: name}
	for _, op := range comparisonOps {
		if strings.HasPrefix(s[offset:], op) {
			test.Comparison = op
			offset += len(op)
			if op == OpGlob || op == OpRegexp {
				// Pattern text is rarely valid JSON ("ab*", "^x\d+").
				// Accept a quoted JSON string, otherwise take the
				// remaining run of non-whitespace literally.
				if offset < len(s) && s[offset] == '"' {
					value, offset3, err := ParseValue(s, offset)
					if err != nil {
						return nil, offset, false, errors.Wrapf(err, "offset %d: bad pattern for %q", offset, op)
					}
					test.Value = value
					offset = offset3
				} else {
					pattern, offset3 := GetNonWhite(s, offset)
					if pattern == "" {
						return nil, offset, false, errors.Newf("offset %d: missing pattern for %q", offset, op)
					}
					test.Value = pattern
					offset = offset3
				}
				break
			}
			value, offset3, err := ParseValue(s, offset)
			if err != nil {
				return nil, offset, false, errors.Wrapf(err, "offset %d: bad value for %q", offset, op)
			}
			test.Value = value
			offset = offset3
			break
		}
	}
	return test, offset, true, nil
}

func (c *TagBasedTest) String() string {
	spec := c.Name
	if c.Comparison != "" {
		valueText, err := TranscribeValue(c.Value)
		if err != nil {
			valueText = "?"
		}
		spec += c.Comparison + valueText
	}
	if !c.Choice {
		spec = "!" + spec
	}
	return spec
}

// MatchTaggedEntity evaluates the test against the entity's tags. A missing
// tag is false, not an error; the result is inverted when Choice is false.
func (c *TagBasedTest) MatchTaggedEntity(te *TaggedEntity) bool {
	result := c.test(te.Tags)
	if !c.Choice {
		return !result
	}
	return result
}

func (c *TagBasedTest) test(tags *TagSet) bool {
	if c.Comparison == "" {
		return tags.Has(c.Name)
	}
	value, ok := tags.Get(c.Name)
	if !ok {
		return false
	}
	switch c.Comparison {
	case OpEqual:
		return valuesEqual(value, c.Value)
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		cmp, ok := compareValues(value, c.Value)
		if !ok {
			logger.Logger.Warnw("incomparable values in criterion",
				"criterion", c.String(), "value", value)
			return false
		}
		switch c.Comparison {
		case OpLess:
			return cmp < 0
		case OpLessEqual:
			return cmp <= 0
		case OpGreater:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case OpGlob:
		return c.globMatch(value)
	case OpRegexp:
		return c.regexpMatch(value)
	default:
		logger.Logger.Warnw("unknown comparison operator", "criterion", c.String())
		return false
	}
}

// globMatch applies the glob pattern to a scalar string value, or to any
// member of a list value. Mapping values are untested and fall through to
// false.
func (c *TagBasedTest) globMatch(value interface{}) bool {
	pattern, ok := c.Value.(string)
	if !ok {
		logger.Logger.Warnw("glob criterion with non-string pattern", "criterion", c.String())
		return false
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		logger.Logger.Warnw("bad glob pattern", "pattern", pattern, "error", err)
		return false
	}
	switch v := value.(type) {
	case string:
		return g.Match(v)
	case []interface{}:
		for _, member := range v {
			if s, ok := member.(string); ok && g.Match(s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// regexpMatch applies the pattern as a search, matching anywhere in a string
// value.
func (c *TagBasedTest) regexpMatch(value interface{}) bool {
	pattern, ok := c.Value.(string)
	if !ok {
		logger.Logger.Warnw("regexp criterion with non-string pattern", "criterion", c.String())
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Logger.Warnw("bad regexp pattern", "pattern", pattern, "error", err)
		return false
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	return re.MatchString(s)
}

// compareValues orders two values of comparable kinds: numbers with numbers
// (int64 and float64 interchange), strings with strings, dates and datetimes
// by time. Incomparable kinds report !ok, the analogue of a comparison
// TypeError.
func compareValues(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case Date:
		return float64(n.Unix()), true
	case DateTime:
		return float64(n.Unix()), true
	default:
		return 0, false
	}
}
