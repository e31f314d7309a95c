package attendance

import (
	"testing"
	"time"
)

func TestNormalizeBarcode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" AB 12 ", "AB12"},
		{"AB12", "AB12"},
		{"\tA B\nC ", "ABC"},
		{"   ", ""},
		{"", ""},
		{"007", "007"},
	}
	for _, tt := range tests {
		if got := NormalizeBarcode(tt.in); got != tt.want {
			t.Errorf("NormalizeBarcode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2025, time.March, 3, 10, 0, 0, 0, time.Local), "3-Mar"},
		{time.Date(2025, time.January, 30, 0, 0, 0, 0, time.Local), "30-Jan"},
		{time.Date(2025, time.August, 12, 23, 59, 0, 0, time.Local), "12-Aug"},
	}
	for _, tt := range tests {
		if got := Label(tt.day); got != tt.want {
			t.Errorf("Label(%s) = %q, want %q", tt.day, got, tt.want)
		}
	}
}

func TestLabelForISO(t *testing.T) {
	got, err := LabelForISO("2025-03-03")
	if err != nil || got != "3-Mar" {
		t.Errorf("LabelForISO = %q, %v", got, err)
	}
	if _, err := LabelForISO("03/03/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestDayOfYear(t *testing.T) {
	if d, ok := DayOfYear("1-Jan"); !ok || d != 1 {
		t.Errorf("1-Jan = %d, %v", d, ok)
	}
	if d, ok := DayOfYear("1-Mar"); !ok || d != 61 {
		t.Errorf("1-Mar = %d, %v (leap-year ordering)", d, ok)
	}
	if _, ok := DayOfYear("29-Feb"); !ok {
		t.Error("29-Feb should parse")
	}
	for _, s := range []string{"Name", "Barcode", "2025-03-03", "3-March"} {
		if IsDateLabel(s) {
			t.Errorf("IsDateLabel(%q) = true", s)
		}
	}
}

func TestTimestampRoundTripOrdersLexically(t *testing.T) {
	a := time.Date(2025, 3, 3, 9, 0, 0, 5, time.UTC)
	b := a.Add(time.Microsecond)
	if formatTS(a) >= formatTS(b) {
		t.Errorf("%s should sort before %s", formatTS(a), formatTS(b))
	}
	got, err := parseTS(formatTS(a))
	if err != nil || !got.Equal(a) {
		t.Errorf("parseTS(formatTS) = %s, %v", got, err)
	}
}
