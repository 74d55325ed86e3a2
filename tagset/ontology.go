package tagset

import (
	"fmt"
	"iter"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/logger"
)

// Ontology keys follow two conventions:
//
//	type.<type_name>             defines a type: its base type, and for
//	                             list/dict the member_type (and key_type)
//	meta.<type_name>.<value_key> holds descriptive metadata for one value of
//	                             that type, <value_key> computed by
//	                             ValueToTagName
const (
	typePrefix = "type."
	metaPrefix = "meta."
)

// BaseTypes are the kinds a declared type ultimately resolves to.
var BaseTypes = map[string]bool{
	"int":      true,
	"float":    true,
	"str":      true,
	"list":     true,
	"dict":     true,
	"date":     true,
	"datetime": true,
}

// TagSetMapping is the pluggable backing store for a TagsOntology: anything
// mapping ontology keys to TagSets with prefix-scoped key enumeration.
// Implementations may be an in-memory map, a file or a SQL table; they may
// block on I/O, the ontology logic itself does not.
type TagSetMapping interface {
	Get(key string) (*TagSet, bool)
	Set(key string, ts *TagSet)
	Del(key string)
	// Keys lazily yields the keys starting with prefix; an empty prefix
	// yields every key.
	Keys(prefix string) iter.Seq[string]
}

// MemTagSetMapping is a trivial in-memory TagSetMapping.
type MemTagSetMapping struct {
	mu sync.Mutex
	m  map[string]*TagSet
}

// NewMemTagSetMapping makes an empty in-memory mapping.
func NewMemTagSetMapping() *MemTagSetMapping {
	return &MemTagSetMapping{m: make(map[string]*TagSet)}
}

func (mm *MemTagSetMapping) Get(key string) (*TagSet, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	ts, ok := mm.m[key]
	return ts, ok
}

func (mm *MemTagSetMapping) Set(key string, ts *TagSet) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.m[key] = ts
}

func (mm *MemTagSetMapping) Del(key string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	delete(mm.m, key)
}

func (mm *MemTagSetMapping) Keys(prefix string) iter.Seq[string] {
	mm.mu.Lock()
	keys := make([]string, 0, len(mm.m))
	for key := range mm.m {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	mm.mu.Unlock()
	sort.Strings(keys)
	return func(yield func(string) bool) {
		for _, key := range keys {
			if !yield(key) {
				return
			}
		}
	}
}

// TagsOntology maps type- and metadata-defining names to TagSets, providing
// type resolution, base type inference and value to metadata lookup.
//
// An ontology is constructed once per backing store and threaded explicitly
// through call sites; there is no global registry. Mutating entry points
// take a coarse per-ontology lock.
type TagsOntology struct {
	mu      sync.Mutex
	tagsets TagSetMapping
}

// NewTagsOntology makes an ontology over the backing mapping.
func NewTagsOntology(mapping TagSetMapping) *TagsOntology {
	return &TagsOntology{tagsets: mapping}
}

func (o *TagsOntology) String() string {
	return fmt.Sprintf("TagsOntology(%T)", o.tagsets)
}

// TypeIndex returns the ontology key defining typeName: "type."+typeName.
func TypeIndex(typeName string) string {
	return typePrefix + typeName
}

// MetaIndex returns the ontology key holding the metadata for value as a
// typeName: "meta."+typeName+"."+ValueToTagName(value).
func MetaIndex(typeName string, value interface{}) (string, error) {
	valueKey, err := ValueToTagName(value)
	if err != nil {
		return "", err
	}
	return metaPrefix + typeName + "." + valueKey, nil
}

// trailing parenthesised suffix: "Captain America (Marvel)"
var parenSuffixRe = regexp.MustCompile(`^(.*)\(([^()]*)\)\s*$`)

// ontology key parts: like dotted identifiers but parts may be all digits,
// since ValueToTagName turns nonnegative integers into decimal strings
var ontKeyRe = regexp.MustCompile(`^\w+(\.\w+)*$`)

// ValueToTagName deterministically converts a tag value to a dotted
// identifierish string for ontology lookup.
//
// Nonnegative integers become their decimal string. For strings, a trailing
// parenthesised suffix "X (Y)" is rewritten to a leading dotted prefix
// "y.x", then the whole string is lowercased with whitespace runs becoming
// single underscores:
//
//	"Captain America (Marvel)" => "marvel.captain_america"
//
// Other value types are an error. The result being a well-formed dotted key
// is a checked postcondition; a violation is a bug in the normalization rule
// and panics.
func ValueToTagName(value interface{}) (string, error) {
	switch v := normalizeValue(value).(type) {
	case int64:
		if v < 0 {
			return "", errors.Newf("cannot convert negative integer %d to a tag name", v)
		}
		return fmt.Sprintf("%d", v), nil
	case string:
		s := strings.TrimSpace(v)
		if m := parenSuffixRe.FindStringSubmatch(s); m != nil {
			s = strings.TrimSpace(m[2]) + "." + strings.TrimSpace(m[1])
		}
		s = strings.Join(strings.Fields(strings.ToLower(s)), "_")
		if !ontKeyRe.MatchString(s) {
			panic(fmt.Sprintf("ValueToTagName(%q) produced invalid key %q", v, s))
		}
		return s, nil
	default:
		return "", errors.Newf("cannot convert %T value to a tag name", value)
	}
}

// ValueToNameFunc is a caller-supplied replacement for ValueToTagName.
type ValueToNameFunc func(value interface{}) (string, error)

// GetIndex fetches the TagSet at an ontology key from the backing mapping.
func (o *TagsOntology) GetIndex(key string) (*TagSet, bool) {
	return o.tagsets.Get(key)
}

// SetIndex stores a TagSet at an ontology key.
func (o *TagsOntology) SetIndex(key string, ts *TagSet) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tagsets.Set(key, ts)
}

// TypeData fetches or synthesizes the TagSet at type.<typeName>.
// A missing entry returns an empty TagSet, never an error, for a well-formed
// name.
func (o *TagsOntology) TypeData(typeName string) *TagSet {
	if ts, ok := o.tagsets.Get(TypeIndex(typeName)); ok {
		return ts
	}
	return NewTagSet(o)
}

// Meta fetches or synthesizes the metadata TagSet at
// meta.<typeName>.<ValueToTagName(value)>.
func (o *TagsOntology) Meta(typeName string, value interface{}) (*TagSet, error) {
	key, err := MetaIndex(typeName, value)
	if err != nil {
		return nil, err
	}
	if ts, ok := o.tagsets.Get(key); ok {
		return ts, nil
	}
	return NewTagSet(o), nil
}

// ValueMetadata names the ontology entry for value as a typeName, converting
// the value via convert, or ValueToTagName when convert is nil.
func (o *TagsOntology) ValueMetadata(typeName string, value interface{}, convert ValueToNameFunc) (ValueMetadata, error) {
	if convert == nil {
		convert = ValueToTagName
	}
	valueKey, err := convert(value)
	if err != nil {
		return ValueMetadata{}, err
	}
	return ValueMetadata{
		Ontology: o,
		OntKey:   metaPrefix + typeName + "." + valueKey,
		Value:    value,
	}, nil
}

// BaseType infers the base type name for typeName by resolving through the
// type= chain of its defining TagSets. The default is "str": any chain that
// does not land on a base type, including a cyclic chain (which warns and
// stops), falls back to "str".
func (o *TagsOntology) BaseType(typeName string) string {
	typeName0 := typeName
	seen := map[string]bool{typeName: true}
	for {
		typeInfo := o.TypeData(typeName)
		next, ok := typeInfo.Get("type")
		if !ok {
			break
		}
		nextName, ok := next.(string)
		if !ok {
			logger.Logger.Warnw("non-string type reference", "type", typeName, "value", next)
			break
		}
		if seen[nextName] {
			logger.Logger.Warnw("circular type definitions",
				"type", typeName0, "seen", sortedKeys(seen))
			break
		}
		seen[nextName] = true
		typeName = nextName
	}
	if !BaseTypes[typeName] {
		typeName = "str"
	}
	return typeName
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ConvertTag converts a string-valued Tag according to the ontology's base
// type for it, returning a new Tag with the converted value or the original
// Tag unchanged when no conversion applies.
//
// This serves regexp-based autotagging, where every match is a string but
// various fields are really ints or dates.
func (o *TagsOntology) ConvertTag(tag Tag) Tag {
	s, ok := tag.Value.(string)
	if !ok {
		return tag
	}
	var converted interface{}
	switch tag.WithOntology(o).BaseType() {
	case "int":
		var v int64
		if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
			return tag
		}
		converted = v
	case "float":
		var v float64
		if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
			return tag
		}
		converted = v
	case "date":
		v, err := ParseDate(s)
		if err != nil {
			return tag
		}
		converted = v
	case "datetime":
		v, err := ParseDateTime(s)
		if err != nil {
			return tag
		}
		converted = v
	default:
		return tag
	}
	return NewTagWithOntology(tag.Name, converted, tag.Ontology)
}

// Types lazily yields (type name, defining TagSet) for every type.* entry.
func (o *TagsOntology) Types() iter.Seq2[string, *TagSet] {
	return func(yield func(string, *TagSet) bool) {
		for key := range o.tagsets.Keys(typePrefix) {
			ts, ok := o.tagsets.Get(key)
			if !ok {
				continue
			}
			if !yield(strings.TrimPrefix(key, typePrefix), ts) {
				return
			}
		}
	}
}

// TypeNames lazily yields the defined type names.
func (o *TagsOntology) TypeNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for key := range o.tagsets.Keys(typePrefix) {
			if !yield(strings.TrimPrefix(key, typePrefix)) {
				return
			}
		}
	}
}

// MetaNames lazily yields the meta.* value keys; with a nonempty typeName
// only that type's entries are yielded, with the meta.<typeName>. prefix
// stripped.
func (o *TagsOntology) MetaNames(typeName string) iter.Seq[string] {
	prefix := metaPrefix
	if typeName != "" {
		prefix = metaPrefix + typeName + "."
	}
	return func(yield func(string) bool) {
		for key := range o.tagsets.Keys(prefix) {
			if !yield(strings.TrimPrefix(key, prefix)) {
				return
			}
		}
	}
}

// EditIndices bulk-edits the named ontology entries through edit, one line
// per entry as "name tags...". Renames are detected by name changes in the
// edited text and re-key the backing mapping; a rename that would collide
// with an entry outside the edited set, or with another rename, warns and is
// skipped, leaving both original entries intact. Other renames still apply.
func (o *TagsOntology) EditIndices(indices []string, prefix string, edit EditFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	sorted := append([]string(nil), indices...)
	sort.Strings(sorted)
	lines := make([]string, 0, len(sorted))
	for _, index := range sorted {
		ts, ok := o.tagsets.Get(index)
		if !ok {
			ts = NewTagSet(o)
		}
		display := index
		if prefix != "" {
			display = strings.TrimPrefix(index, prefix)
		}
		line := display
		if text := ts.String(); text != "" {
			line += " " + text
		}
		lines = append(lines, line)
	}
	newLines, err := edit(lines)
	if err != nil {
		return errors.Wrap(err, "edit")
	}
	if len(newLines) != len(lines) {
		return errors.Newf("edited text has %d lines, expected %d", len(newLines), len(lines))
	}

	type editResult struct {
		oldIndex string
		newIndex string
		tags     *TagSet
	}
	results := make([]editResult, 0, len(newLines))
	newIndexCount := make(map[string]int)
	for i, line := range newLines {
		name, offset := GetNonWhite(strings.TrimSpace(line), 0)
		if name == "" {
			return errors.Newf("line %d: missing entry name", i+1)
		}
		ts, err := ParseTagSetLine(strings.TrimSpace(line)[offset:], o)
		if err != nil {
			return errors.Wrapf(err, "line %d", i+1)
		}
		newIndex := name
		if prefix != "" {
			newIndex = prefix + name
		}
		newIndexCount[newIndex]++
		results = append(results, editResult{
			oldIndex: sorted[i],
			newIndex: newIndex,
			tags:     ts,
		})
	}

	edited := make(map[string]bool, len(sorted))
	for _, index := range sorted {
		edited[index] = true
	}

	// Decide which renames apply before touching the mapping, so that a
	// skipped rename leaves its original entry intact.
	apply := make([]bool, len(results))
	renamedAway := make(map[string]bool)
	for i, res := range results {
		if res.oldIndex == res.newIndex {
			apply[i] = true
			continue
		}
		if newIndexCount[res.newIndex] > 1 {
			logger.Logger.Warnw("rename collides with another rename, skipping",
				"from", res.oldIndex, "to", res.newIndex)
			continue
		}
		if _, exists := o.tagsets.Get(res.newIndex); exists && !edited[res.newIndex] {
			logger.Logger.Warnw("rename collides with existing entry, skipping",
				"from", res.oldIndex, "to", res.newIndex)
			continue
		}
		apply[i] = true
		renamedAway[res.oldIndex] = true
	}
	for i, res := range results {
		if apply[i] && res.oldIndex != res.newIndex {
			o.tagsets.Del(res.oldIndex)
		}
	}
	for i, res := range results {
		if !apply[i] {
			// The skipped rename's entry keeps its old name; its edited
			// tags still apply there unless another rename claimed it.
			if !renamedAway[res.oldIndex] {
				o.tagsets.Set(res.oldIndex, res.tags)
			}
			continue
		}
		if existing, ok := o.tagsets.Get(res.newIndex); ok && res.oldIndex == res.newIndex {
			existing.SetFrom(res.tags.AsMap())
		} else {
			o.tagsets.Set(res.newIndex, res.tags)
		}
	}
	return nil
}
