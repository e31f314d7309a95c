package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tutorregister/internal/attendance"
)

func writeSheet(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendance_clean.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, attendance.ErrMissingFile) {
		t.Fatalf("err = %v, want ErrMissingFile", err)
	}
}

func TestLoad_InsertsBarcodeSecond(t *testing.T) {
	path := writeSheet(t, "Name,Surname,Grade\nAnn,Lee,9\n")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Name", "Barcode", "Surname", "Grade"}
	if !reflect.DeepEqual(s.Header(), want) {
		t.Fatalf("header = %v, want %v", s.Header(), want)
	}
	if s.Get(0, "Grade") != "9" || s.Get(0, "Barcode") != "" {
		t.Errorf("row shifted wrongly: %+v", s.rows[0])
	}
}

func TestLoad_EmptyFileGetsMandatoryColumns(t *testing.T) {
	s, err := Load(writeSheet(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Barcode", "Name", "Surname"}
	if !reflect.DeepEqual(s.Header(), want) {
		t.Fatalf("header = %v, want %v", s.Header(), want)
	}
}

func TestLoad_TrimsHeadersAndPadsRows(t *testing.T) {
	s, err := Load(writeSheet(t, "\ufeff Barcode , Name ,Surname,3-Mar\n001,Ann\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.HasColumn("Barcode") || !s.HasColumn("Name") {
		t.Fatalf("header = %v", s.Header())
	}
	if s.Get(0, "3-Mar") != "" || s.Get(0, "Barcode") != "001" {
		t.Errorf("row = %v", s.rows[0])
	}
}

func TestPresentOn_SortedByName(t *testing.T) {
	s, err := Load(writeSheet(t, "Barcode,Name,Surname,3-Mar\n1,Zoe,A,1\n2,Amy,C,1\n3,Amy,B,1\n4,Bob,X,\n"))
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range s.PresentOn("3-Mar") {
		got = append(got, e.Barcode)
	}
	if !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Errorf("PresentOn = %v", got)
	}
	if len(s.PresentOn("4-Mar")) != 0 {
		t.Error("unknown column should list nobody")
	}
}

func TestWide_DateColumnsByDayOfYear(t *testing.T) {
	s, err := Load(writeSheet(t, "Barcode,Name,Surname,Notes,6-Feb,30-Jan,1-Jan\n1,Ann,A,x,1,,1\n"))
	if err != nil {
		t.Fatal(err)
	}
	w := s.Wide()
	if !reflect.DeepEqual(w.DateLabels, []string{"1-Jan", "30-Jan", "6-Feb"}) {
		t.Fatalf("DateLabels = %v", w.DateLabels)
	}
	rows := attendance.Track(w)
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	r := rows[0]
	if r.Present != 2 || r.Absent != 1 || r.Percent != 66.7 || r.LastPresent != "6-Feb" {
		t.Errorf("track = %+v", r)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := writeSheet(t, "Name,Surname\nAnn,Lee\n")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Set(0, "Barcode", "007")
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Name,Barcode,Surname\nAnn,007,Lee\n" {
		t.Errorf("saved = %q", got)
	}
}

func TestEntry_Who(t *testing.T) {
	if got := (Entry{Barcode: "9", Name: "Ann", Surname: "Lee"}).Who(); got != "Ann Lee [9]" {
		t.Errorf("Who = %q", got)
	}
	if got := (Entry{Barcode: "9"}).Who(); got != "[9]" {
		t.Errorf("Who = %q", got)
	}
}
