package attendance

import (
	"sort"
)

// FixedColumns lead every wide sheet, in this order.
var FixedColumns = []string{"Name", "Surname", "Barcode", "Grade", "Area", "Date Of Birth"}

// WideRow is one learner with a "1"/"" cell per date label.
type WideRow struct {
	Learner
	Marks map[string]string `json:"marks"`
}

// WideSheet is the per-date attendance table: one row per learner, one column per class date.
type WideSheet struct {
	DateLabels []string  `json:"dates"`
	Rows       []WideRow `json:"rows"`
}

// Columns returns the full header: fixed identity columns, then date labels.
func (w WideSheet) Columns() []string {
	cols := make([]string, 0, len(FixedColumns)+len(w.DateLabels))
	cols = append(cols, FixedColumns...)
	return append(cols, w.DateLabels...)
}

// Values returns a row's cells in Columns order.
func (w WideSheet) Values(r WideRow) []string {
	vals := []string{r.Name, r.Surname, r.Barcode, r.Grade, r.Area, r.DateOfBirth}
	for _, label := range w.DateLabels {
		vals = append(vals, r.Marks[label])
	}
	return vals
}

// Table renders the sheet as a header row followed by data rows.
func (w WideSheet) Table() [][]string {
	out := make([][]string, 0, len(w.Rows)+1)
	out = append(out, w.Columns())
	for _, r := range w.Rows {
		out = append(out, w.Values(r))
	}
	return out
}

// Pivot turns the long mark table into a wide sheet left-joined onto the roster.
// Every known class date gets a column even when nobody was marked on it; a present mark
// wins over an absent one when two dates share a label.
func Pivot(learners []Learner, dates []ClassDate, marks []Mark) WideSheet {
	if len(learners) == 0 {
		return WideSheet{DateLabels: []string{}, Rows: []WideRow{}}
	}

	labelByISO := make(map[string]string, len(dates))
	for _, d := range dates {
		labelByISO[d.DateISO] = d.Label
	}
	for _, m := range marks {
		if _, ok := labelByISO[m.DateISO]; ok {
			continue
		}
		if label, err := LabelForISO(m.DateISO); err == nil {
			labelByISO[m.DateISO] = label
		}
	}

	isos := make([]string, 0, len(labelByISO))
	for iso := range labelByISO {
		isos = append(isos, iso)
	}
	sort.Strings(isos)

	labels := make([]string, 0, len(isos))
	seen := make(map[string]bool, len(isos))
	for _, iso := range isos {
		label := labelByISO[iso]
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}

	present := make(map[string]map[string]bool)
	for _, m := range marks {
		if !m.Present {
			continue
		}
		label, ok := labelByISO[m.DateISO]
		if !ok {
			continue
		}
		if present[m.Barcode] == nil {
			present[m.Barcode] = make(map[string]bool)
		}
		present[m.Barcode][label] = true
	}

	rows := make([]WideRow, 0, len(learners))
	for _, l := range learners {
		cells := make(map[string]string, len(labels))
		for _, label := range labels {
			if present[l.Barcode][label] {
				cells[label] = "1"
			} else {
				cells[label] = ""
			}
		}
		rows = append(rows, WideRow{Learner: l, Marks: cells})
	}
	sortRows(rows)

	return WideSheet{DateLabels: labels, Rows: rows}
}

func sortRows(rows []WideRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return lessLearner(rows[i].Learner, rows[j].Learner)
	})
}

func lessLearner(a, b Learner) bool {
	if a.Grade != b.Grade {
		return a.Grade < b.Grade
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Surname < b.Surname
}
