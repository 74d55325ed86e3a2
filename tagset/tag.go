package tagset

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/logger"
)

// Tag is a (name, value, ontology) triple.
//
// The name must be a dotted identifier. The value is any JSON-representable
// value or one of the special types (uuid.UUID, Date, DateTime); a nil value
// makes a "bare" tag. The ontology is an optional non-owning reference used
// to resolve type and metadata information; a Tag with no ontology is
// "naive".
//
// Tags are immutable once constructed: a "changed" tag is a new Tag.
type Tag struct {
	Name     string
	Value    interface{}
	Ontology *TagsOntology
}

// NewTag makes a naive Tag, normalizing the value to its canonical parsed
// form (integral numbers to int64, other numbers to float64).
func NewTag(name string, value interface{}) Tag {
	return Tag{Name: name, Value: normalizeValue(value)}
}

// NewTagWithOntology makes a Tag carrying a reference to ont.
func NewTagWithOntology(name string, value interface{}, ont *TagsOntology) Tag {
	tag := NewTag(name, value)
	tag.Ontology = ont
	return tag
}

// WithOntology returns a Tag like t but referencing ont.
func (t Tag) WithOntology(ont *TagsOntology) Tag {
	t.Ontology = ont
	return t
}

// WithPrefix returns a Tag whose name has prefix prepended with a dot.
// An empty prefix returns t unchanged.
func (t Tag) WithPrefix(prefix string) Tag {
	if prefix == "" {
		return t
	}
	t.Name = prefix + "." + t.Name
	return t
}

// IsValidTagName tests whether name is a valid tag name: a dotted identifier.
func IsValidTagName(name string) bool {
	return IsDottedIdentifier(name)
}

// Equal tests equality by (name, value); the ontology reference does not
// participate.
func (t Tag) Equal(other Tag) bool {
	return t.Name == other.Name && valuesEqual(t.Value, other.Value)
}

// Less orders tags lexicographically by name and then by transcribed value.
func (t Tag) Less(other Tag) bool {
	if t.Name != other.Name {
		return t.Name < other.Name
	}
	return t.valueKey() < other.valueKey()
}

func (t Tag) valueKey() string {
	if t.Value == nil {
		return ""
	}
	s, err := TranscribeValue(t.Value)
	if err != nil {
		return ""
	}
	return s
}

// Matches tests whether t matches (name, value): the names must be equal and
// a nil value matches any tag value.
func (t Tag) Matches(name string, value interface{}) bool {
	if t.Name != name {
		return false
	}
	return value == nil || valuesEqual(t.Value, normalizeValue(value))
}

// valuesEqual compares normalized values. Numbers compare numerically
// across int64, float64, Date and DateTime: integer and date tag values
// round-trip through the store's float column, so 5 and 5.0 must stay
// interchangeable and a Date must equal its unixtime. UUIDs likewise
// round-trip through the string column and equal their canonical form.
func valuesEqual(a, b interface{}) bool {
	na, nb := normalizeValue(a), normalizeValue(b)
	if fa, ok := asNumber(na); ok {
		fb, ok := asNumber(nb)
		return ok && fa == fb
	}
	if ua, ok := asUUIDString(na); ok {
		ub, ok := asUUIDString(nb)
		return ok && ua == ub
	}
	return reflect.DeepEqual(na, nb)
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case Date:
		return float64(n.Unix()), true
	case DateTime:
		return float64(n.Unix()), true
	}
	return 0, false
}

func asUUIDString(v interface{}) (string, bool) {
	switch u := v.(type) {
	case uuid.UUID:
		return u.String(), true
	case string:
		if id, err := uuid.Parse(u); err == nil && len(u) == 36 {
			return id.String(), true
		}
	}
	return "", false
}

// String transcribes the tag: the bare name if the value is nil, otherwise
// name=value per the value grammar.
func (t Tag) String() string {
	if t.Value == nil {
		return t.Name
	}
	s, err := TranscribeValue(t.Value)
	if err != nil {
		logger.Logger.Warnw("untranscribable tag value",
			"tag", t.Name, "error", err)
		return t.Name
	}
	return t.Name + "=" + s
}

// ParseTagAt parses name[=value] from s at offset.
// A bare name followed by a non-"=" non-whitespace separator absorbs the
// remaining run of non-whitespace into the name rather than failing.
// It returns the Tag and the offset beyond it.
func ParseTagAt(s string, offset int, ont *TagsOntology) (Tag, int, error) {
	name, offset := GetDottedIdentifier(s, offset)
	if name == "" {
		return Tag{}, offset, errors.Newf("offset %d: missing tag name", offset)
	}
	var value interface{}
	if offset < len(s) {
		sep, _ := decodeRune(s, offset)
		switch {
		case isSpaceRune(sep):
			// bare tag
		case sep == '=':
			offset++
			if offset >= len(s) || s[offset] == ' ' || s[offset] == '\t' {
				logger.Logger.Warnw("tag with no value after =", "tag", name)
			} else {
				var err error
				value, offset, err = ParseValue(s, offset)
				if err != nil {
					return Tag{}, offset, err
				}
			}
		default:
			// Trailing-text recovery: collect the remaining run of
			// non-whitespace into the name.
			rest, offset2 := GetNonWhite(s, offset)
			name += rest
			offset = offset2
		}
	}
	return Tag{Name: name, Value: value, Ontology: ont}, offset, nil
}

// ParseTag parses a whole string as a single Tag.
// Unparsed trailing text is an error.
func ParseTag(s string, ont *TagsOntology) (Tag, error) {
	tag, offset, err := ParseTagAt(s, 0, ont)
	if err != nil {
		return Tag{}, err
	}
	if offset < len(s) {
		return Tag{}, errors.Newf("unparsed text after tag %s: %q", tag, s[offset:])
	}
	return tag, nil
}

func isSpaceRune(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// TypeData returns the TagSet defining this tag's type in the ontology.
// A naive tag soft-fails: nil with a warning, never an error.
func (t Tag) TypeData() *TagSet {
	if t.Ontology == nil {
		logger.Logger.Warnw("no ontology for tag, returning nil typedata", "tag", t.Name)
		return nil
	}
	return t.Ontology.TypeData(t.Name)
}

// Type returns the type name for this tag: the typedata's own "type" tag if
// set, otherwise the tag's own name normalized via ValueToTagName.
func (t Tag) Type() string {
	typedata := t.TypeData()
	if typedata == nil {
		return ""
	}
	if typeName, ok := typedata.Get("type"); ok {
		if s, ok := typeName.(string); ok {
			return s
		}
	}
	name, err := ValueToTagName(t.Name)
	if err != nil {
		logger.Logger.Warnw("cannot normalize tag name", "tag", t.Name, "error", err)
		return ""
	}
	return name
}

// BaseType resolves this tag's type to one of the base type names.
// A naive tag soft-fails: "" with a warning.
func (t Tag) BaseType() string {
	if t.Ontology == nil {
		logger.Logger.Warnw("no ontology for tag, returning empty basetype", "tag", t.Name)
		return ""
	}
	return t.Ontology.BaseType(t.Type())
}

// KeyType returns the declared key type for a dict-valued tag.
func (t Tag) KeyType() (string, bool) {
	return t.typeDataString("key_type")
}

// MemberType returns the declared member type for a list- or dict-valued tag.
func (t Tag) MemberType() (string, bool) {
	return t.typeDataString("member_type")
}

func (t Tag) typeDataString(name string) (string, bool) {
	typedata := t.TypeData()
	if typedata == nil {
		return "", false
	}
	v, ok := typedata.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// KeyTypeData returns the typedata TagSet for this tag's keys, or nil.
func (t Tag) KeyTypeData() *TagSet {
	keyType, ok := t.KeyType()
	if !ok || t.Ontology == nil {
		return nil
	}
	return t.Ontology.TypeData(keyType)
}

// MemberTypeData returns the typedata TagSet for this tag's members, or nil.
func (t Tag) MemberTypeData() *TagSet {
	memberType, ok := t.MemberType()
	if !ok || t.Ontology == nil {
		return nil
	}
	return t.Ontology.TypeData(memberType)
}

// KeyMetadata returns the metadata for one key of a dict-valued tag, or nil.
func (t Tag) KeyMetadata(key interface{}) *TagSet {
	keyType, ok := t.KeyType()
	if !ok || t.Ontology == nil {
		return nil
	}
	meta, err := t.Ontology.Meta(keyType, key)
	if err != nil {
		logger.Logger.Warnw("no key metadata", "tag", t.Name, "key", key, "error", err)
		return nil
	}
	return meta
}

// MemberMetadata returns the metadata for one member value of a list- or
// dict-valued tag, or nil.
func (t Tag) MemberMetadata(member interface{}) *TagSet {
	memberType, ok := t.MemberType()
	if !ok || t.Ontology == nil {
		return nil
	}
	meta, err := t.Ontology.Meta(memberType, member)
	if err != nil {
		logger.Logger.Warnw("no member metadata", "tag", t.Name, "member", member, "error", err)
		return nil
	}
	return meta
}

// ValueMetadata names the ontology entry holding the metadata for one value.
type ValueMetadata struct {
	Ontology *TagsOntology
	OntKey   string
	Value    interface{}
}

// TagSet fetches the metadata TagSet this ValueMetadata refers to.
func (vm ValueMetadata) TagSet() *TagSet {
	ts, ok := vm.Ontology.GetIndex(vm.OntKey)
	if !ok {
		return NewTagSet(vm.Ontology)
	}
	return ts
}

// Ns returns a namespace projection of the metadata TagSet.
func (vm ValueMetadata) Ns() *TagSetNamespace {
	return vm.TagSet().Ns()
}

// KeyValueMetadata pairs the metadata for a dict entry's key and value.
type KeyValueMetadata struct {
	Key   ValueMetadata
	Value ValueMetadata
}

// Metadata is the ontology-resolved metadata for one tag. Exactly one of the
// fields is populated, according to the tag's base type.
type Metadata struct {
	Scalar *ValueMetadata
	List   []ValueMetadata
	Dict   []KeyValueMetadata
}

// Metadata resolves the metadata for this tag's value through the ontology.
// For "list" base types each member is resolved via the member type; for
// "dict" base types each key and value pair is resolved via the key and
// member types; scalar types resolve the tag's own name against the value.
func (t Tag) Metadata(convert ValueToNameFunc) (Metadata, error) {
	ont := t.Ontology
	if ont == nil {
		return Metadata{}, errors.New("naive tag has no metadata")
	}
	switch t.BaseType() {
	case "list":
		memberType, ok := t.MemberType()
		if !ok {
			return Metadata{}, errors.Newf("tag %s: list type with no member_type", t.Name)
		}
		members, ok := t.Value.([]interface{})
		if !ok {
			return Metadata{}, errors.Newf("tag %s: list type with %T value", t.Name, t.Value)
		}
		md := Metadata{List: make([]ValueMetadata, 0, len(members))}
		for _, member := range members {
			vm, err := ont.ValueMetadata(memberType, member, convert)
			if err != nil {
				return Metadata{}, err
			}
			md.List = append(md.List, vm)
		}
		return md, nil
	case "dict":
		keyType, ok := t.KeyType()
		if !ok {
			return Metadata{}, errors.Newf("tag %s: dict type with no key_type", t.Name)
		}
		memberType, ok := t.MemberType()
		if !ok {
			return Metadata{}, errors.Newf("tag %s: dict type with no member_type", t.Name)
		}
		mapping, ok := t.Value.(map[string]interface{})
		if !ok {
			return Metadata{}, errors.Newf("tag %s: dict type with %T value", t.Name, t.Value)
		}
		md := Metadata{Dict: make([]KeyValueMetadata, 0, len(mapping))}
		for key, value := range mapping {
			keyMeta, err := ont.ValueMetadata(keyType, key, convert)
			if err != nil {
				return Metadata{}, err
			}
			valueMeta, err := ont.ValueMetadata(memberType, value, convert)
			if err != nil {
				return Metadata{}, err
			}
			md.Dict = append(md.Dict, KeyValueMetadata{Key: keyMeta, Value: valueMeta})
		}
		return md, nil
	default:
		vm, err := ont.ValueMetadata(t.Name, t.Value, convert)
		if err != nil {
			return Metadata{}, err
		}
		return Metadata{Scalar: &vm}, nil
	}
}
