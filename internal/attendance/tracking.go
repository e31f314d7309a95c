package attendance

import "math"

// NoPresence is shown as LastPresent for learners never marked.
const NoPresence = "—"

// TrackRow summarises one learner across every date column of a sheet.
type TrackRow struct {
	Name        string  `json:"name"`
	Surname     string  `json:"surname"`
	Barcode     string  `json:"barcode"`
	Present     int     `json:"present"`
	Absent      int     `json:"absent"`
	Percent     float64 `json:"attendance_pct"`
	LastPresent string  `json:"last_present"`
}

// Track computes per-learner totals. Date labels must already be in chronological order.
func Track(w WideSheet) []TrackRow {
	out := make([]TrackRow, 0, len(w.Rows))
	total := len(w.DateLabels)
	if total == 0 {
		return out
	}
	for _, r := range w.Rows {
		row := TrackRow{Name: r.Name, Surname: r.Surname, Barcode: r.Barcode, LastPresent: NoPresence}
		for _, label := range w.DateLabels {
			if r.Marks[label] == "1" {
				row.Present++
				row.LastPresent = label
			}
		}
		row.Absent = total - row.Present
		row.Percent = math.Round(float64(row.Present)/float64(total)*1000) / 10
		out = append(out, row)
	}
	return out
}
