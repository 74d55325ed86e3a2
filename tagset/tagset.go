package tagset

import (
	"sort"
	"strings"
	"sync"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/logger"
)

// TagSet is a mutable mapping of tag name to value with set-like Add and
// Discard operations. At most one value is held per tag name; setting a name
// replaces any existing value.
//
// All the Tags yielded from a TagSet share its ontology. The ontology is a
// shared reference, never owned: many TagSets may reference one ontology.
//
// Mutators take a coarse per-instance lock, matching the one-lock-per-store
// discipline of the SQL-backed variant. Concurrent mutation of distinct
// TagSets needs no external coordination.
type TagSet struct {
	mu       sync.Mutex
	values   map[string]interface{}
	Modified bool
	Ontology *TagsOntology
}

// NewTagSet makes an empty TagSet sharing ont (which may be nil).
func NewTagSet(ont *TagsOntology) *TagSet {
	return &TagSet{
		values:   make(map[string]interface{}),
		Ontology: ont,
	}
}

// ParseTagSetLine parses a whitespace-separated sequence of tag tokens into a
// new TagSet.
func ParseTagSetLine(line string, ont *TagsOntology) (*TagSet, error) {
	ts := NewTagSet(ont)
	offset := SkipWhite(line, 0)
	for offset < len(line) {
		tag, offset2, err := ParseTagAt(line, offset, ont)
		if err != nil {
			return nil, errors.Wrapf(err, "offset %d", offset)
		}
		ts.Add(tag)
		offset = SkipWhite(line, offset2)
	}
	return ts, nil
}

// String transcribes the TagSet as its text line form: the sorted tags joined
// by single spaces.
func (ts *TagSet) String() string {
	tags := ts.AsTags("")
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = tag.String()
	}
	return strings.Join(parts, " ")
}

// Len returns the number of tags.
func (ts *TagSet) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.values)
}

// Has tests for the presence of a tag named name.
func (ts *TagSet) Has(name string) bool {
	_, ok := ts.Get(name)
	return ok
}

// Get returns the value for name and whether it is present.
func (ts *TagSet) Get(name string) (interface{}, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	value, ok := ts.values[name]
	return value, ok
}

// Value returns the value for name, or nil.
func (ts *TagSet) Value(name string) interface{} {
	value, _ := ts.Get(name)
	return value
}

// HasTag tests whether a tag matching tag's (name, value) is present;
// a nil tag value matches any stored value.
func (ts *TagSet) HasTag(tag Tag) bool {
	value, ok := ts.Get(tag.Name)
	if !ok {
		return false
	}
	return tag.Value == nil || valuesEqual(value, tag.Value)
}

// Set upserts name=value. The value is normalized as for NewTag.
// Modified is marked, and a change record emitted, only when the value
// actually changes; re-setting the identical value is a no-op.
func (ts *TagSet) Set(name string, value interface{}) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.set(name, value)
}

func (ts *TagSet) set(name string, value interface{}) {
	value = normalizeValue(value)
	old, exists := ts.values[name]
	if exists && valuesEqual(old, value) {
		return
	}
	ts.Modified = true
	if exists {
		logger.Changed("tag changed", "tag", Tag{Name: name, Value: value}.String(), "was", old)
	} else {
		logger.Changed("tag added", "tag", Tag{Name: name, Value: value}.String())
	}
	ts.values[name] = value
}

// Add adds a Tag, replacing any existing value for its name.
func (ts *TagSet) Add(tag Tag) {
	ts.Set(tag.Name, tag.Value)
}

// AddNamed adds a (name, value) pair; a nil value adds a bare tag.
func (ts *TagSet) AddNamed(name string, value interface{}) {
	ts.Set(name, value)
}

// Discard removes the tag named name. If value is not nil the tag is only
// removed when the stored value matches. It returns the removed Tag or nil.
func (ts *TagSet) Discard(name string, value interface{}) *Tag {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.discard(name, value)
}

func (ts *TagSet) discard(name string, value interface{}) *Tag {
	old, exists := ts.values[name]
	if !exists {
		return nil
	}
	if value != nil && !valuesEqual(old, value) {
		return nil
	}
	delete(ts.values, name)
	ts.Modified = true
	oldTag := Tag{Name: name, Value: old, Ontology: ts.Ontology}
	logger.Changed("tag removed", "tag", oldTag.String())
	return &oldTag
}

// Update sets tags from a name to value mapping, optionally prefixing each
// name with prefix and a dot.
func (ts *TagSet) Update(other map[string]interface{}, prefix string) {
	names := make([]string, 0, len(other))
	for name := range other {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		target := name
		if prefix != "" {
			target = prefix + "." + name
		}
		ts.Set(target, other[name])
	}
}

// UpdateTags sets tags from an iterable of Tags, optionally prefixed.
func (ts *TagSet) UpdateTags(tags []Tag, prefix string) {
	for _, tag := range tags {
		name := tag.Name
		if prefix != "" {
			name = prefix + "." + name
		}
		ts.Set(name, tag.Value)
	}
}

// SetFrom completely replaces the contents with other, applying exactly the
// symmetric difference: matching entries are untouched, extra entries are
// discarded, missing or differing entries are set. All changes route through
// set/discard so change records fire uniformly.
func (ts *TagSet) SetFrom(other map[string]interface{}) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	names := make([]string, 0, len(other))
	for name := range other {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ts.set(name, other[name])
	}
	for name := range ts.values {
		if _, ok := other[name]; !ok {
			ts.discard(name, nil)
		}
	}
}

// Subtags returns a new TagSet holding the entries whose names start with
// prefix+".", with that prefix stripped.
func (ts *TagSet) Subtags(prefix string) *TagSet {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	sub := NewTagSet(ts.Ontology)
	dotted := prefix + "."
	for name, value := range ts.values {
		if strings.HasPrefix(name, dotted) {
			sub.Set(name[len(dotted):], value)
		}
	}
	sub.Modified = false
	return sub
}

// AsTags returns the tags sorted by name, optionally with each name prefixed
// by prefix and a dot. The Tags share this TagSet's ontology.
func (ts *TagSet) AsTags(prefix string) []Tag {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	tags := make([]Tag, 0, len(ts.values))
	for name, value := range ts.values {
		if prefix != "" {
			name = prefix + "." + name
		}
		tags = append(tags, Tag{Name: name, Value: value, Ontology: ts.Ontology})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Less(tags[j]) })
	return tags
}

// AsMap returns a copy of the name to value mapping.
func (ts *TagSet) AsMap() map[string]interface{} {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	m := make(map[string]interface{}, len(ts.values))
	for name, value := range ts.values {
		m[name] = value
	}
	return m
}

// Names returns the sorted tag names.
func (ts *TagSet) Names() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	names := make([]string, 0, len(ts.values))
	for name := range ts.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ns returns a TagSetNamespace projection of this TagSet for use in format
// string rendering. It does not mutate the TagSet.
func (ts *TagSet) Ns() *TagSetNamespace {
	return NamespaceFromTagSet(ts)
}

// FormatKwargs is an alias for Ns.
func (ts *TagSet) FormatKwargs() *TagSetNamespace {
	return ts.Ns()
}
