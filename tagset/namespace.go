package tagset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TagSetNamespace is a lazy, attribute-navigable view over a TagSet's
// ontology-resolved data, for use in format strings: dotted tag names become
// nested namespace levels, so the tag "a.b=1" renders via "{a.b}".
//
// Attribute lookup is an explicit strategy chain evaluated in documented
// priority order (see Attr); unresolved paths degrade to visible placeholder
// text rather than failing.
type TagSetNamespace struct {
	path        []string
	tag         *Tag
	children    map[string]*TagSetNamespace
	ontology    *TagsOntology
	placeholder bool
}

// NamespaceFromTagSet builds the namespace tree for a TagSet.
//
// Multiple dots in tag names are collapsed: "a.b", "a..b" and "..a.b" all
// map to the node a.b. Tags are processed in reverse lexical order by name,
// and each tag's node binding overwrites any previous one, so among
// colliding names the lexically least original name wins the node. That
// tie-break is deliberate and covered by tests.
func NamespaceFromTagSet(ts *TagSet) *TagSetNamespace {
	root := newNamespaceNode(nil, ts.Ontology)
	names := ts.Names()
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names {
		var parts []string
		for _, part := range strings.Split(name, ".") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			continue
		}
		node := root
		for _, part := range parts {
			child, ok := node.children[part]
			if !ok {
				child = newNamespaceNode(append(append([]string(nil), node.path...), part), ts.Ontology)
				node.children[part] = child
			}
			node = child
		}
		tag := NewTagWithOntology(name, ts.Value(name), ts.Ontology)
		node.tag = &tag
	}
	return root
}

func newNamespaceNode(path []string, ont *TagsOntology) *TagSetNamespace {
	return &TagSetNamespace{
		path:     path,
		children: make(map[string]*TagSetNamespace),
		ontology: ont,
	}
}

// Path returns the node's dotted path from the root.
func (ns *TagSetNamespace) Path() string {
	if len(ns.path) == 0 {
		return "."
	}
	return strings.Join(ns.path, ".")
}

// Tag returns the Tag bound to this node, or nil.
func (ns *TagSetNamespace) Tag() *Tag {
	return ns.tag
}

// Bool reports the node's truthiness: placeholder nodes are false, so
// unresolved paths test false in templates.
func (ns *TagSetNamespace) Bool() bool {
	return !ns.placeholder
}

// IsPlaceholder reports whether this node was synthesized for an unresolved
// attribute.
func (ns *TagSetNamespace) IsPlaceholder() bool {
	return ns.placeholder
}

// Keys returns the node's public child names, sorted.
func (ns *TagSetNamespace) Keys() []string {
	keys := make([]string, 0, len(ns.children))
	for key := range ns.children {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Attr resolves one attribute of this node. The strategy chain, in priority
// order:
//
//  1. special names: _keys, _values, _meta, _type (ontology-aware)
//  2. a direct child node
//  3. *baseattr*_lc / lowercase-titlecase conversion
//  4. plural from singular: attr+"s"/"es" synthesized as a one-element list
//  5. singular from plural: the first element of an existing plural
//  6. a placeholder node carrying the literal "{path.attr}"
//
// Attr never returns nil: unresolved names return a falsy placeholder node.
func (ns *TagSetNamespace) Attr(attr string) *TagSetNamespace {
	if strings.HasPrefix(attr, "_") {
		if node := ns.specialAttr(attr); node != nil {
			return node
		}
		return ns.placeholderChild(attr)
	}
	if child, ok := ns.children[attr]; ok {
		return child
	}
	// attr_lc: the lowercased form of an existing attribute
	if base := strings.TrimSuffix(attr, "_lc"); base != attr {
		if value, ok := ns.childTagString(base); ok {
			return ns.syntheticChild(attr, lcUnderscore(value))
		}
	}
	// attr from attr_lc: the titlecased form
	if value, ok := ns.childTagString(attr + "_lc"); ok {
		return ns.syntheticChild(attr, titleifyLc(value))
	}
	// plural from singular: attr is "bars", "bar" exists
	for _, suffix := range []string{"s", "es"} {
		base := strings.TrimSuffix(attr, suffix)
		if base == attr {
			continue
		}
		if child, ok := ns.children[base]; ok && child.tag != nil {
			return ns.syntheticChild(attr, []interface{}{child.tag.Value})
		}
	}
	// singular from plural: attr is "bar", "bars" or "bares" exists
	for _, suffix := range []string{"s", "es"} {
		child, ok := ns.children[attr+suffix]
		if !ok || child.tag == nil {
			continue
		}
		if members, ok := child.tag.Value.([]interface{}); ok && len(members) > 0 {
			return ns.syntheticChild(attr, members[0])
		}
	}
	return ns.placeholderChild(attr)
}

func (ns *TagSetNamespace) specialAttr(attr string) *TagSetNamespace {
	if ns.tag == nil {
		return nil
	}
	switch attr {
	case "_keys":
		mapping, ok := ns.tag.Value.(map[string]interface{})
		if !ok {
			return nil
		}
		keys := make([]string, 0, len(mapping))
		for key := range mapping {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		values := make([]interface{}, len(keys))
		for i, key := range keys {
			values[i] = key
		}
		return ns.syntheticChild(attr, values)
	case "_values":
		mapping, ok := ns.tag.Value.(map[string]interface{})
		if !ok {
			return nil
		}
		keys := make([]string, 0, len(mapping))
		for key := range mapping {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		values := make([]interface{}, len(keys))
		for i, key := range keys {
			values[i] = mapping[key]
		}
		return ns.syntheticChild(attr, values)
	case "_type":
		typedata := ns.tag.TypeData()
		if typedata == nil {
			return nil
		}
		sub := typedata.Ns()
		sub.path = append(append([]string(nil), ns.path...), attr)
		return sub
	case "_meta":
		md, err := ns.tag.Metadata(nil)
		if err != nil || md.Scalar == nil {
			return nil
		}
		sub := md.Scalar.Ns()
		sub.path = append(append([]string(nil), ns.path...), attr)
		return sub
	}
	return nil
}

func (ns *TagSetNamespace) childTagString(name string) (string, bool) {
	child, ok := ns.children[name]
	if !ok || child.tag == nil {
		return "", false
	}
	s, ok := child.tag.Value.(string)
	return s, ok
}

func (ns *TagSetNamespace) syntheticChild(attr string, value interface{}) *TagSetNamespace {
	node := newNamespaceNode(append(append([]string(nil), ns.path...), attr), ns.ontology)
	tag := NewTagWithOntology(attr, value, ns.ontology)
	node.tag = &tag
	return node
}

func (ns *TagSetNamespace) placeholderChild(attr string) *TagSetNamespace {
	node := newNamespaceNode(append(append([]string(nil), ns.path...), attr), ns.ontology)
	node.placeholder = true
	text := "{" + strings.Join(node.path, ".") + "}"
	tag := NewTagWithOntology(attr, text, ns.ontology)
	node.tag = &tag
	return node
}

// Resolve walks a dotted path from this node via Attr.
func (ns *TagSetNamespace) Resolve(dottedPath string) *TagSetNamespace {
	node := ns
	for _, part := range strings.Split(dottedPath, ".") {
		if part == "" {
			continue
		}
		node = node.Attr(part)
	}
	return node
}

// Format renders the node. A node with a bound tag formats its value; other
// nodes produce a generic diagnostic placeholder.
//
// The format spec is an alignment/width spec: "10" pads left, "<10" pads right,
// ">10" pads left explicitly. An empty spec renders the plain value.
func (ns *TagSetNamespace) Format(spec string) string {
	if ns.tag != nil {
		return formatValue(ns.tag.Value, spec)
	}
	return fmt.Sprintf("{TagSetNamespace:%s%v}", ns.Path(), ns.Keys())
}

func formatValue(value interface{}, spec string) string {
	var text string
	switch v := value.(type) {
	case nil:
		text = ""
	case string:
		text = v
	default:
		s, err := TranscribeValue(v)
		if err != nil {
			text = fmt.Sprintf("%v", v)
		} else {
			text = s
		}
	}
	if spec == "" {
		return text
	}
	leftAlign := false
	if spec[0] == '<' {
		leftAlign = true
		spec = spec[1:]
	} else if spec[0] == '>' {
		spec = spec[1:]
	}
	width, err := strconv.Atoi(spec)
	if err != nil {
		return text
	}
	if leftAlign {
		return fmt.Sprintf("%-*s", width, text)
	}
	return fmt.Sprintf("%*s", width, text)
}

// FormatMap expands {dotted.path} and {dotted.path:spec} references in
// template against the namespace, the analogue of str.format_map. Doubled
// braces escape literal braces. Unresolved paths render as their
// placeholder text.
func (ns *TagSetNamespace) FormatMap(template string) string {
	var out strings.Builder
	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			out.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			out.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				out.WriteString(template[i:])
				return out.String()
			}
			ref := template[i+1 : i+end]
			spec := ""
			if colon := strings.IndexByte(ref, ':'); colon >= 0 {
				spec = ref[colon+1:]
				ref = ref[:colon]
			}
			out.WriteString(ns.Resolve(ref).Format(spec))
			i += end + 1
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}
