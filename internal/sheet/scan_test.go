package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tutorregister/internal/attendance"
)

func newTestScanner(path string) *Scanner {
	sc := NewScanner(path)
	sc.Now = func() time.Time { return time.Date(2025, time.March, 3, 15, 0, 0, 0, time.Local) }
	return sc
}

func TestMarkPresent_MarksAndPersists(t *testing.T) {
	path := writeSheet(t, "Barcode,Name,Surname\n00123,Ann,Lee\n456,Ben,Ng\n")
	sc := newTestScanner(path)

	res, err := sc.MarkPresent(" 001 23\n")
	if err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}
	if res.Label != "3-Mar" || res.Barcode != "00123" || len(res.Marked) != 1 || res.Duplicate() {
		t.Fatalf("result = %+v", res)
	}

	got, _ := os.ReadFile(path)
	want := "Barcode,Name,Surname,3-Mar\n00123,Ann,Lee,1\n456,Ben,Ng,\n"
	if string(got) != want {
		t.Errorf("sheet = %q, want %q", got, want)
	}
}

func TestMarkPresent_AlreadyMarkedDoesNotWrite(t *testing.T) {
	path := writeSheet(t, "Barcode,Name,Surname,3-Mar\n1,Ann,Lee,1\n")
	sc := newTestScanner(path)

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	res, err := sc.MarkPresent("1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Marked) != 0 || len(res.Already) != 1 {
		t.Fatalf("result = %+v", res)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Error("sheet rewritten although nothing changed")
	}
}

func TestMarkPresent_DuplicateBarcodeMarksAll(t *testing.T) {
	path := writeSheet(t, "Barcode,Name,Surname\n7,Ann,Lee\n7,Ann,Lee\n")
	res, err := newTestScanner(path).MarkPresent("7")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Duplicate() || len(res.Marked) != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestMarkPresent_Errors(t *testing.T) {
	path := writeSheet(t, "Barcode,Name,Surname\n1,Ann,Lee\n")
	sc := newTestScanner(path)

	if _, err := sc.MarkPresent("  \t"); !errors.Is(err, attendance.ErrEmptyInput) {
		t.Errorf("blank: err = %v", err)
	}
	if _, err := sc.MarkPresent("999"); !errors.Is(err, attendance.ErrNotFound) {
		t.Errorf("unknown: err = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "Barcode,Name,Surname\n1,Ann,Lee\n" {
		t.Errorf("unknown barcode must not touch the sheet: %q", got)
	}

	missing := newTestScanner(filepath.Join(t.TempDir(), "none.csv"))
	if _, err := missing.MarkPresent("1"); !errors.Is(err, attendance.ErrMissingFile) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestTodayList(t *testing.T) {
	path := writeSheet(t, "Barcode,Name,Surname\n1,Zoe,A\n2,Amy,B\n")
	sc := newTestScanner(path)

	label, present, err := sc.TodayList()
	if err != nil || label != "3-Mar" || len(present) != 0 {
		t.Fatalf("before scans: %q %v %v", label, present, err)
	}
	for _, code := range []string{"1", "2"} {
		if _, err := sc.MarkPresent(code); err != nil {
			t.Fatal(err)
		}
	}
	_, present, err = sc.TodayList()
	if err != nil {
		t.Fatal(err)
	}
	if len(present) != 2 || present[0].Name != "Amy" || present[1].Name != "Zoe" {
		t.Errorf("present = %+v", present)
	}
}

func TestScannerTracking(t *testing.T) {
	path := writeSheet(t, "Barcode,Name,Surname,30-Jan,6-Feb\n1,Ann,Lee,,\n")
	rows, err := newTestScanner(path).Tracking()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Present != 0 || rows[0].Absent != 2 || rows[0].LastPresent != attendance.NoPresence {
		t.Errorf("rows = %+v", rows)
	}
}
