package attendance

import (
	"strings"
	"time"
	"unicode"
)

const (
	isoLayout   = "2006-01-02"
	labelLayout = "2-Jan"
	// tsLayout is fixed width so stored timestamps order lexically.
	tsLayout = "2006-01-02T15:04:05.000000000Z"
)

// NormalizeBarcode drops all whitespace, surrounding or embedded. "" means no barcode.
func NormalizeBarcode(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// Label formats a day as a sheet column label, e.g. "3-Mar".
func Label(t time.Time) string {
	return t.Format(labelLayout)
}

// DateISO formats the local calendar day of t.
func DateISO(t time.Time) string {
	return t.Format(isoLayout)
}

// LabelForISO converts "2025-03-03" to "3-Mar".
func LabelForISO(dateISO string) (string, error) {
	d, err := time.ParseInLocation(isoLayout, dateISO, time.Local)
	if err != nil {
		return "", err
	}
	return Label(d), nil
}

// ParseDateISO validates an ISO date string.
func ParseDateISO(s string) (time.Time, error) {
	return time.ParseInLocation(isoLayout, s, time.Local)
}

// DayOfYear reports where a "D-Mon" label falls in a leap year. ok is false for non-date columns.
func DayOfYear(label string) (int, bool) {
	d, err := time.Parse(labelLayout, strings.TrimSpace(label))
	if err != nil {
		return 0, false
	}
	return time.Date(2000, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).YearDay(), true
}

// IsDateLabel reports whether a column header is a class-date label.
func IsDateLabel(s string) bool {
	_, ok := DayOfYear(s)
	return ok
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(tsLayout, s)
}
