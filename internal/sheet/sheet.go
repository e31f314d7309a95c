// Package sheet handles the flat CSV attendance sheet scanned by the CLI: a header of
// Barcode, Name, Surname and one "D-Mon" column per class date holding "1" or "".
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tutorregister/internal/attendance"
)

// Entry is the identity part of a sheet row.
type Entry struct {
	Row     int    `json:"row"`
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// Who renders "Name Surname [barcode]", or "[barcode]" for nameless rows.
func (e Entry) Who() string {
	full := strings.TrimSpace(strings.TrimSpace(e.Name) + " " + strings.TrimSpace(e.Surname))
	if full == "" {
		return "[" + e.Barcode + "]"
	}
	return full + " [" + e.Barcode + "]"
}

// Sheet is a loaded CSV with its mandatory columns guaranteed.
type Sheet struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// Load reads the sheet at path. Missing Barcode, Name or Surname columns are added empty;
// Barcode goes second when the sheet already has columns, to keep names first.
func Load(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", attendance.ErrMissingFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", path, err)
	}
	return fromRecords(records), nil
}

func fromRecords(records [][]string) *Sheet {
	s := &Sheet{}
	if len(records) > 0 {
		for _, h := range records[0] {
			s.header = append(s.header, strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		}
		s.rows = records[1:]
	}
	s.reindex()
	for i, row := range s.rows {
		s.rows[i] = pad(row, len(s.header))
	}

	if _, ok := s.index[attendance.ColBarcode]; !ok {
		at := 0
		if len(s.header) > 0 {
			at = 1
		}
		s.insertColumn(attendance.ColBarcode, at)
	}
	for _, col := range []string{attendance.ColName, attendance.ColSurname} {
		if _, ok := s.index[col]; !ok {
			s.insertColumn(col, len(s.header))
		}
	}
	return s
}

func pad(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

func (s *Sheet) reindex() {
	s.index = make(map[string]int, len(s.header))
	for i, h := range s.header {
		if _, dup := s.index[h]; !dup {
			s.index[h] = i
		}
	}
}

func (s *Sheet) insertColumn(name string, at int) {
	s.header = append(s.header[:at], append([]string{name}, s.header[at:]...)...)
	for i, row := range s.rows {
		s.rows[i] = append(row[:at], append([]string{""}, row[at:]...)...)
	}
	s.reindex()
}

// Header returns the column names in file order.
func (s *Sheet) Header() []string {
	return append([]string(nil), s.header...)
}

// Len is the number of data rows.
func (s *Sheet) Len() int {
	return len(s.rows)
}

// HasColumn reports whether the header contains name.
func (s *Sheet) HasColumn(name string) bool {
	_, ok := s.index[name]
	return ok
}

// EnsureColumn appends an empty column if it is missing.
func (s *Sheet) EnsureColumn(name string) {
	if !s.HasColumn(name) {
		s.insertColumn(name, len(s.header))
	}
}

// Get returns a cell, "" for unknown columns.
func (s *Sheet) Get(row int, col string) string {
	i, ok := s.index[col]
	if !ok {
		return ""
	}
	return s.rows[row][i]
}

// Set writes a cell. The column must exist.
func (s *Sheet) Set(row int, col, value string) {
	s.rows[row][s.index[col]] = value
}

// Entry returns the identity of a row.
func (s *Sheet) Entry(row int) Entry {
	return Entry{
		Row:     row,
		Barcode: strings.TrimSpace(s.Get(row, attendance.ColBarcode)),
		Name:    strings.TrimSpace(s.Get(row, attendance.ColName)),
		Surname: strings.TrimSpace(s.Get(row, attendance.ColSurname)),
	}
}

// Find returns every row whose barcode cell equals barcode.
func (s *Sheet) Find(barcode string) []int {
	var rows []int
	for i := range s.rows {
		if strings.TrimSpace(s.Get(i, attendance.ColBarcode)) == barcode {
			rows = append(rows, i)
		}
	}
	return rows
}

// IsPresent reports whether a row holds "1" under label.
func (s *Sheet) IsPresent(row int, label string) bool {
	return strings.TrimSpace(s.Get(row, label)) == "1"
}

// PresentOn lists rows marked under label, sorted by name then surname.
func (s *Sheet) PresentOn(label string) []Entry {
	var out []Entry
	if !s.HasColumn(label) {
		return out
	}
	for i := range s.rows {
		if s.IsPresent(i, label) {
			out = append(out, s.Entry(i))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Surname < out[j].Surname
	})
	return out
}

// DateColumns returns the "D-Mon" columns ordered by day of year.
func (s *Sheet) DateColumns() []string {
	var cols []string
	for _, h := range s.header {
		if attendance.IsDateLabel(h) {
			cols = append(cols, h)
		}
	}
	sort.SliceStable(cols, func(i, j int) bool {
		di, _ := attendance.DayOfYear(cols[i])
		dj, _ := attendance.DayOfYear(cols[j])
		return di < dj
	})
	return cols
}

// Wide converts the sheet to a wide attendance table in sheet row order.
func (s *Sheet) Wide() attendance.WideSheet {
	labels := s.DateColumns()
	w := attendance.WideSheet{DateLabels: labels, Rows: make([]attendance.WideRow, 0, len(s.rows))}
	for i := range s.rows {
		marks := make(map[string]string, len(labels))
		for _, label := range labels {
			if s.IsPresent(i, label) {
				marks[label] = "1"
			} else {
				marks[label] = ""
			}
		}
		e := s.Entry(i)
		w.Rows = append(w.Rows, attendance.WideRow{
			Learner: attendance.Learner{
				Barcode:     e.Barcode,
				Name:        e.Name,
				Surname:     e.Surname,
				Grade:       strings.TrimSpace(s.Get(i, attendance.ColGrade)),
				Area:        strings.TrimSpace(s.Get(i, attendance.ColArea)),
				DateOfBirth: strings.TrimSpace(s.Get(i, attendance.ColDateOfBirth)),
			},
			Marks: marks,
		})
	}
	return w
}

// Save writes the sheet to path through a temp file in the same directory.
func (s *Sheet) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sheet-*.csv")
	if err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(s.header); err != nil {
		tmp.Close()
		return fmt.Errorf("save sheet: %w", err)
	}
	if err := w.WriteAll(s.rows); err != nil {
		tmp.Close()
		return fmt.Errorf("save sheet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save sheet: %w", err)
	}
	return nil
}
