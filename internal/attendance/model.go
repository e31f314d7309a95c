package attendance

import "time"

// Action is the direction of an in/out log entry.
type Action string

const (
	ActionIn  Action = "IN"
	ActionOut Action = "OUT"
)

// Learner is a roster entry keyed by its normalized barcode.
type Learner struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Grade       string `json:"grade"`
	Area        string `json:"area"`
	DateOfBirth string `json:"date_of_birth"`
}

// FullName joins name and surname, empty when both are blank.
func (l Learner) FullName() string {
	switch {
	case l.Name == "":
		return l.Surname
	case l.Surname == "":
		return l.Name
	}
	return l.Name + " " + l.Surname
}

// ClassDate is a session day with its sheet column label.
type ClassDate struct {
	DateISO string `json:"date"`
	Label   string `json:"label"`
}

// Mark is the single presence fact for a (date, barcode) pair.
type Mark struct {
	ID      int64     `json:"id"`
	DateISO string    `json:"date"`
	Barcode string    `json:"barcode"`
	Present bool      `json:"present"`
	TS      time.Time `json:"ts"`
}

// Event is an append-only in/out log entry.
type Event struct {
	ID      int64     `json:"id"`
	DateISO string    `json:"date"`
	Barcode string    `json:"barcode"`
	Action  Action    `json:"action"`
	TS      time.Time `json:"ts"`
}

// Presence is a learner currently inside, with the time of the IN that put them there.
type Presence struct {
	Learner
	Since time.Time `json:"since"`
}

// ScanResult describes what a DB-variant scan recorded.
type ScanResult struct {
	Learner   Learner `json:"learner"`
	Event     Event   `json:"event"`
	Debounced bool    `json:"debounced"`
}

// TodayView splits the (optionally filtered) roster into present and absent for one date.
type TodayView struct {
	DateISO string    `json:"date"`
	Label   string    `json:"label"`
	Present []Learner `json:"present"`
	Absent  []Learner `json:"absent"`
}

// Report is the daily summary pushed by the worker.
type Report struct {
	DateISO     string     `json:"date"`
	Label       string     `json:"label"`
	Present     []Learner  `json:"present"`
	CurrentlyIn []Presence `json:"currently_in"`
	RosterSize  int        `json:"roster_size"`
	GeneratedAt time.Time  `json:"generated_at"`
}
