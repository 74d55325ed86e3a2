package sqltags

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/tagworks/sqltags/errors"
	"github.com/tagworks/sqltags/tagset"
)

// CSV interchange format: one entity per row as
//
//	unixtime,id,name,tag1,tag2,...
//
// with each tag in the tag text form. Rows have a variable number of fields.

// ExportCSV writes the entities matching criteria (all entities for no
// criteria) as CSV rows. It returns the number of rows written.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer, criteria []tagset.TagSetCriterion) (int, error) {
	entities, err := s.Find(ctx, criteria, true)
	if err != nil {
		return 0, err
	}
	out := csv.NewWriter(w)
	for _, entity := range entities {
		if err := out.Write(entity.CSVRow()); err != nil {
			return 0, errors.Wrapf(err, "write entity %d", entity.ID)
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return 0, errors.Wrap(err, "flush CSV")
	}
	return len(entities), nil
}

// ImportCSV reads CSV rows and adds each as a new entity. The id field of
// each row is ignored: imported entities get fresh row ids. It returns the
// number of entities added.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = -1
	count := 0
	for {
		row, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errors.Wrap(err, "read CSV")
		}
		entity, err := tagset.EntityFromCSVRow(row, s.ont)
		if err != nil {
			return count, errors.Wrapf(err, "row %d", count+1)
		}
		if _, err := s.Add(ctx, entity.Name, entity.Unixtime, entity.Tags); err != nil {
			return count, errors.Wrapf(err, "row %d", count+1)
		}
		count++
	}
	if s.log != nil {
		s.log.Infow("CSV import complete", "entities", count)
	}
	return count, nil
}
