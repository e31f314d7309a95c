package sheet

import (
	"fmt"
	"sync"
	"time"

	"tutorregister/internal/attendance"
)

// Result describes one scan against the sheet.
type Result struct {
	Label   string  `json:"label"`
	Barcode string  `json:"barcode"`
	Marked  []Entry `json:"marked"`
	Already []Entry `json:"already"`
}

// Duplicate reports whether the barcode matched more than one row.
func (r Result) Duplicate() bool {
	return len(r.Marked)+len(r.Already) > 1
}

// Scanner marks learners present in the CSV sheet at Path.
type Scanner struct {
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

// NewScanner creates a scanner for the sheet at path.
func NewScanner(path string) *Scanner {
	return &Scanner{Path: path, Now: time.Now}
}

func (sc *Scanner) now() time.Time {
	if sc.Now == nil {
		return time.Now()
	}
	return sc.Now()
}

// MarkPresent puts "1" under today's column for every row matching the scanned barcode.
// The sheet is rewritten only when at least one row changed.
func (sc *Scanner) MarkPresent(raw string) (Result, error) {
	barcode := attendance.NormalizeBarcode(raw)
	if barcode == "" {
		return Result{}, attendance.ErrEmptyInput
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	s, err := Load(sc.Path)
	if err != nil {
		return Result{}, err
	}
	label := attendance.Label(sc.now())
	res := Result{Label: label, Barcode: barcode}

	rows := s.Find(barcode)
	if len(rows) == 0 {
		return res, fmt.Errorf("%w: %s", attendance.ErrNotFound, barcode)
	}

	s.EnsureColumn(label)
	for _, row := range rows {
		if s.IsPresent(row, label) {
			res.Already = append(res.Already, s.Entry(row))
			continue
		}
		s.Set(row, label, "1")
		res.Marked = append(res.Marked, s.Entry(row))
	}

	if len(res.Marked) > 0 {
		if err := s.Save(sc.Path); err != nil {
			return res, err
		}
	}
	return res, nil
}

// TodayList returns today's label and the learners marked under it.
func (sc *Scanner) TodayList() (string, []Entry, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	label := attendance.Label(sc.now())
	s, err := Load(sc.Path)
	if err != nil {
		return label, nil, err
	}
	return label, s.PresentOn(label), nil
}

// Tracking summarises the sheet per learner over its date columns.
func (sc *Scanner) Tracking() ([]attendance.TrackRow, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	s, err := Load(sc.Path)
	if err != nil {
		return nil, err
	}
	return attendance.Track(s.Wide()), nil
}
