package tagset

import (
	"strconv"
	"time"

	"github.com/tagworks/sqltags/errors"
)

// TaggedEntity is an entity record with its Tags: the common representation
// of a tagged thing and the intermediary form of the CSV import/export
// format.
//
// ID is a surrogate key, present (> 0) only for store-backed entities.
// Name is optional and, when present, unique among entities in one store;
// log entries have no name. Unixtime is the creation or event timestamp in
// seconds since the epoch.
type TaggedEntity struct {
	ID       int64
	Name     string
	Unixtime float64
	Tags     *TagSet
}

// When returns the entity timestamp as a UTC time.
func (te *TaggedEntity) When() time.Time {
	sec := int64(te.Unixtime)
	nsec := int64((te.Unixtime - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// CSVRow transcribes the entity as the CSV row
// unixtime, id, name, tag1, tag2, ...
// with each tag in the tag text form. The inverse of EntityFromCSVRow.
func (te *TaggedEntity) CSVRow() []string {
	row := []string{
		strconv.FormatFloat(te.Unixtime, 'f', -1, 64),
		formatEntityID(te.ID),
		te.Name,
	}
	for _, tag := range te.Tags.AsTags("") {
		row = append(row, tag.String())
	}
	return row
}

func formatEntityID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// EntityFromCSVRow constructs a TaggedEntity from a CSV row produced by
// CSVRow: unixtime, id, name, tags...
func EntityFromCSVRow(row []string, ont *TagsOntology) (*TaggedEntity, error) {
	if len(row) < 3 {
		return nil, errors.Newf("short CSV row: %d fields, need at least 3", len(row))
	}
	unixtime, err := strconv.ParseFloat(row[0], 64)
	if err != nil {
		return nil, errors.Wrapf(err, "field 1: bad unixtime %q", row[0])
	}
	var id int64
	if row[1] != "" {
		id, err = strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "field 2: bad id %q", row[1])
		}
	}
	tags := NewTagSet(ont)
	for i, field := range row[3:] {
		tag, err := ParseTag(field, ont)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d: %q", i+4, field)
		}
		tags.Add(tag)
	}
	tags.Modified = false
	return &TaggedEntity{ID: id, Name: row[2], Unixtime: unixtime, Tags: tags}, nil
}

// FormatTagSet computes a TagSet from the entity's tags plus derived
// entity.* tags:
//   - entity.id: the store row id, when present
//   - entity.name: the entity name, when present
//   - entity.unixtime: the timestamp
//   - entity.datetime: the timestamp as a DateTime
//   - entity.isotime: the timestamp transcribed in ISO form
func (te *TaggedEntity) FormatTagSet() *TagSet {
	kwtags := NewTagSet(te.Tags.Ontology)
	kwtags.Update(te.Tags.AsMap(), "")
	if te.ID != 0 {
		kwtags.Set("entity.id", te.ID)
	}
	if te.Name != "" {
		kwtags.Set("entity.name", te.Name)
	}
	kwtags.Set("entity.unixtime", te.Unixtime)
	when := te.When()
	kwtags.Set("entity.datetime", DateTime{when})
	kwtags.Set("entity.isotime", when.Format(dateTimeLayout))
	return kwtags
}

// FormatKwargs returns a namespace projection over FormatTagSet, with the
// whole tag line additionally available as "tags".
func (te *TaggedEntity) FormatKwargs() *TagSetNamespace {
	kwtags := te.FormatTagSet()
	kwtags.Set("tags", kwtags.String())
	return kwtags.Ns()
}
