package attendance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Roster import columns. Name, Surname and Barcode are mandatory.
const (
	ColName        = "Name"
	ColSurname     = "Surname"
	ColBarcode     = "Barcode"
	ColGrade       = "Grade"
	ColArea        = "Area"
	ColDateOfBirth = "Date Of Birth"
)

// ReadRoster parses a roster CSV. Headers are trimmed, optional columns default to "".
// Barcodes are not normalized here; ReplaceRoster does that.
func ReadRoster(r io.Reader) ([]Learner, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{ColName, ColSurname, ColBarcode} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var learners []Learner
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row: %w", err)
		}
		learners = append(learners, Learner{
			Barcode:     field(rec, ColBarcode),
			Name:        field(rec, ColName),
			Surname:     field(rec, ColSurname),
			Grade:       field(rec, ColGrade),
			Area:        field(rec, ColArea),
			DateOfBirth: field(rec, ColDateOfBirth),
		})
	}
	return learners, nil
}

// CleanRoster normalizes barcodes, drops blank-barcode rows and rejects repeated barcodes.
func CleanRoster(in []Learner) ([]Learner, error) {
	out := make([]Learner, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, l := range in {
		l.Barcode = NormalizeBarcode(l.Barcode)
		if l.Barcode == "" {
			continue
		}
		if seen[l.Barcode] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, l.Barcode)
		}
		seen[l.Barcode] = true
		out = append(out, l)
	}
	return out, nil
}
