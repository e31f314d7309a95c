package attendance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Service coordinates scans, marks and roster maintenance over a Repository.
type Service struct {
	repo     *Repository
	now      func() time.Time
	debounce time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDebounce makes a repeat scan of the same learner within d return the previous event
// instead of toggling. Zero disables it.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) { s.debounce = d }
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// TodayISO returns today's ISO date in local time.
func (s *Service) TodayISO() string {
	return DateISO(s.now())
}

// Ping checks the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) learner(ctx context.Context, raw string) (Learner, error) {
	barcode := NormalizeBarcode(raw)
	if barcode == "" {
		return Learner{}, ErrEmptyInput
	}
	l, err := s.repo.GetLearner(ctx, barcode)
	if err != nil {
		return Learner{}, err
	}
	if l == nil {
		return Learner{}, fmt.Errorf("%w: %s", ErrNotFound, barcode)
	}
	return *l, nil
}

// Scan records the next IN/OUT for a learner today. The action toggles the latest logged
// action for the day; an IN also marks the learner present.
func (s *Service) Scan(ctx context.Context, raw string) (ScanResult, error) {
	l, err := s.learner(ctx, raw)
	if err != nil {
		return ScanResult{}, err
	}

	now := s.now()
	date := DateISO(now)

	last, err := s.repo.LatestEvent(ctx, date, l.Barcode)
	if err != nil {
		return ScanResult{}, err
	}
	if last != nil && s.debounce > 0 && now.Sub(last.TS) < s.debounce {
		return ScanResult{Learner: l, Event: *last, Debounced: true}, nil
	}

	var lastAction Action
	if last != nil {
		lastAction = last.Action
	}
	evt := Event{
		DateISO: date,
		Barcode: l.Barcode,
		Action:  NextAction(lastAction),
		TS:      now,
	}
	var mark *Mark
	if evt.Action == ActionIn {
		mark = &Mark{DateISO: date, Barcode: l.Barcode, Present: true, TS: now}
	}
	evt, err = s.repo.RecordScan(ctx, evt, ClassDate{DateISO: date, Label: Label(now)}, mark)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Learner: l, Event: evt}, nil
}

// NextAction reports what the next scan of barcode on dateISO would record.
func (s *Service) NextAction(ctx context.Context, dateISO, raw string) (Action, error) {
	barcode := NormalizeBarcode(raw)
	if barcode == "" {
		return "", ErrEmptyInput
	}
	last, err := s.repo.LatestEvent(ctx, dateISO, barcode)
	if err != nil {
		return "", err
	}
	if last == nil {
		return NextAction(""), nil
	}
	return NextAction(last.Action), nil
}

// Events returns a day's in/out log, optionally for one learner.
func (s *Service) Events(ctx context.Context, dateISO, raw string) ([]Event, error) {
	return s.repo.ListEvents(ctx, dateISO, NormalizeBarcode(raw))
}

// CurrentlyIn lists learners whose latest event on dateISO is IN.
func (s *Service) CurrentlyIn(ctx context.Context, dateISO string) ([]Presence, error) {
	res, err := s.repo.CurrentlyIn(ctx, dateISO)
	if res == nil && err == nil {
		res = []Presence{}
	}
	return res, err
}

// MarkPresent sets the present flag for a learner on a date, overwriting any earlier mark.
func (s *Service) MarkPresent(ctx context.Context, dateISO, raw string, present bool) (Mark, error) {
	l, err := s.learner(ctx, raw)
	if err != nil {
		return Mark{}, err
	}
	label, err := LabelForISO(dateISO)
	if err != nil {
		return Mark{}, fmt.Errorf("invalid date %q: %w", dateISO, err)
	}
	return s.repo.RecordMark(ctx, ClassDate{DateISO: dateISO, Label: label}, Mark{
		DateISO: dateISO,
		Barcode: l.Barcode,
		Present: present,
		TS:      s.now(),
	})
}

// WideSheet builds the per-date table for the whole roster.
func (s *Service) WideSheet(ctx context.Context) (WideSheet, error) {
	learners, err := s.repo.ListLearners(ctx)
	if err != nil {
		return WideSheet{}, err
	}
	dates, err := s.repo.ListClassDates(ctx)
	if err != nil {
		return WideSheet{}, err
	}
	marks, err := s.repo.ListMarks(ctx, "")
	if err != nil {
		return WideSheet{}, err
	}
	return Pivot(learners, dates, marks), nil
}

// Tracking summarises every learner over all class dates.
func (s *Service) Tracking(ctx context.Context) ([]TrackRow, error) {
	w, err := s.WideSheet(ctx)
	if err != nil {
		return nil, err
	}
	return Track(w), nil
}

// ClassDates returns every session date.
func (s *Service) ClassDates(ctx context.Context) ([]ClassDate, error) {
	dates, err := s.repo.ListClassDates(ctx)
	if dates == nil && err == nil {
		dates = []ClassDate{}
	}
	return dates, err
}

// Today splits the roster into present and absent for dateISO. Empty grade or area match all.
func (s *Service) Today(ctx context.Context, dateISO, grade, area string) (TodayView, error) {
	label, err := LabelForISO(dateISO)
	if err != nil {
		return TodayView{}, fmt.Errorf("invalid date %q: %w", dateISO, err)
	}
	learners, err := s.repo.ListLearners(ctx)
	if err != nil {
		return TodayView{}, err
	}
	marks, err := s.repo.ListMarks(ctx, dateISO)
	if err != nil {
		return TodayView{}, err
	}
	present := make(map[string]bool, len(marks))
	for _, m := range marks {
		if m.Present {
			present[m.Barcode] = true
		}
	}

	view := TodayView{DateISO: dateISO, Label: label, Present: []Learner{}, Absent: []Learner{}}
	for _, l := range learners {
		if grade != "" && l.Grade != grade {
			continue
		}
		if area != "" && l.Area != area {
			continue
		}
		if present[l.Barcode] {
			view.Present = append(view.Present, l)
		} else {
			view.Absent = append(view.Absent, l)
		}
	}
	return view, nil
}

// Learners returns the roster.
func (s *Service) Learners(ctx context.Context) ([]Learner, error) {
	res, err := s.repo.ListLearners(ctx)
	if res == nil && err == nil {
		res = []Learner{}
	}
	return res, err
}

// Learner looks up one learner by barcode.
func (s *Service) Learner(ctx context.Context, raw string) (Learner, error) {
	return s.learner(ctx, raw)
}

// UpsertLearner adds or edits a learner.
func (s *Service) UpsertLearner(ctx context.Context, l Learner) (Learner, error) {
	l.Barcode = NormalizeBarcode(l.Barcode)
	if l.Barcode == "" {
		return Learner{}, ErrEmptyInput
	}
	if err := s.repo.UpsertLearner(ctx, l); err != nil {
		return Learner{}, err
	}
	return l, nil
}

// DeleteLearner removes a learner by barcode and returns the number of rows deleted.
func (s *Service) DeleteLearner(ctx context.Context, raw string) (int64, error) {
	barcode := NormalizeBarcode(raw)
	if barcode == "" {
		return 0, ErrEmptyInput
	}
	return s.repo.DeleteLearner(ctx, barcode)
}

// ReplaceRoster drops the whole roster and loads the given learners in its place.
func (s *Service) ReplaceRoster(ctx context.Context, learners []Learner) (int, error) {
	clean, err := CleanRoster(learners)
	if err != nil {
		return 0, err
	}
	if err := s.repo.ReplaceLearners(ctx, clean); err != nil {
		return 0, err
	}
	return len(clean), nil
}

// SeedIfEmpty loads the roster from a CSV file when no learners exist yet.
// A missing file is not an error; it returns 0.
func (s *Service) SeedIfEmpty(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	n, err := s.repo.CountLearners(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()

	learners, err := ReadRoster(f)
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", path, err)
	}
	return s.ReplaceRoster(ctx, learners)
}

// DailyReport collects who was present on dateISO and who is still inside.
func (s *Service) DailyReport(ctx context.Context, dateISO string) (Report, error) {
	view, err := s.Today(ctx, dateISO, "", "")
	if err != nil {
		return Report{}, err
	}
	in, err := s.CurrentlyIn(ctx, dateISO)
	if err != nil {
		return Report{}, err
	}
	return Report{
		DateISO:     dateISO,
		Label:       view.Label,
		Present:     view.Present,
		CurrentlyIn: in,
		RosterSize:  len(view.Present) + len(view.Absent),
		GeneratedAt: s.now(),
	}, nil
}

// ReportSent reports whether the daily report for dateISO already went out.
func (s *Service) ReportSent(ctx context.Context, dateISO string) (bool, error) {
	at, err := s.repo.SentAt(ctx, dateISO)
	return at != nil, err
}

// MarkReportSent records the report send for dateISO.
func (s *Service) MarkReportSent(ctx context.Context, dateISO string) error {
	return s.repo.RecordSend(ctx, dateISO, s.now())
}

// RegisterDevice enrolls a scanner or admin device. An id already enrolled under a
// different role is rejected with ErrDeviceConflict.
func (s *Service) RegisterDevice(ctx context.Context, deviceID, role string) error {
	if deviceID == "" {
		return errors.New("device id required")
	}
	return s.repo.EnrollDevice(ctx, deviceID, role, s.now())
}

// DeviceRole returns the stored role of an enrolled device, or ErrNotFound.
func (s *Service) DeviceRole(ctx context.Context, deviceID string) (string, error) {
	role, ok, err := s.repo.DeviceRole(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	return role, nil
}
