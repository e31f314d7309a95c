package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tutorregister/internal/attendance"
	"tutorregister/internal/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientSend(t *testing.T) {
	var got reportPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("request = %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rep := attendance.Report{
		DateISO:    "2025-03-03",
		Label:      "3-Mar",
		RosterSize: 2,
		Present:    []attendance.Learner{{Barcode: "1", Name: "Ann", Surname: "Lee"}},
	}
	if err := New(srv.URL).Send(context.Background(), rep); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Date != "2025-03-03" || got.PresentN != 1 || got.Present[0] != "Ann Lee" || len(got.CurrentlyIn) != 0 {
		t.Errorf("payload = %+v", got)
	}
}

func TestClientSend_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := New(srv.URL).Send(context.Background(), attendance.Report{}); err == nil {
		t.Error("expected error on 502")
	}
	if err := New("").Send(context.Background(), attendance.Report{}); err == nil {
		t.Error("expected error without URL")
	}
}

type fakeSource struct {
	mu   sync.Mutex
	sent map[string]bool
}

func (f *fakeSource) DailyReport(_ context.Context, date string) (attendance.Report, error) {
	return attendance.Report{DateISO: date}, nil
}

func (f *fakeSource) ReportSent(_ context.Context, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[date], nil
}

func (f *fakeSource) MarkReportSent(_ context.Context, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[date] = true
	return nil
}

type fakeSender struct {
	mu    sync.Mutex
	dates []string
	err   error
}

func (f *fakeSender) Send(_ context.Context, r attendance.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.dates = append(f.dates, r.DateISO)
	return nil
}

func TestReporter_DeliverOncePerDate(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{sent: map[string]bool{}}
	out := &fakeSender{}
	r := NewReporter(src, out, discardLogger(), nil)

	ok, err := r.Deliver(ctx, "2025-03-03")
	if err != nil || !ok {
		t.Fatalf("first deliver: %v %v", ok, err)
	}
	ok, err = r.Deliver(ctx, "2025-03-03")
	if err != nil || ok {
		t.Fatalf("second deliver: %v %v", ok, err)
	}
	if len(out.dates) != 1 {
		t.Errorf("sent %v", out.dates)
	}
}

func TestReporter_FailedSendNotLogged(t *testing.T) {
	src := &fakeSource{sent: map[string]bool{}}
	r := NewReporter(src, &fakeSender{err: errors.New("down")}, discardLogger(), nil)

	if _, err := r.Deliver(context.Background(), "2025-03-03"); err == nil {
		t.Fatal("expected send error")
	}
	if src.sent["2025-03-03"] {
		t.Error("failed send must not be recorded")
	}
}

func TestReporter_Run(t *testing.T) {
	src := &fakeSource{sent: map[string]bool{}}
	out := &fakeSender{}
	r := NewReporter(src, out, discardLogger(), nil)

	msgs := make(chan queue.Message, 4)
	msgs <- queue.ReportMessage("2025-03-03")
	msgs <- queue.Message{Type: "other"}
	msgs <- queue.ReportMessage("not-a-date")
	msgs <- queue.ReportMessage("2025-03-03")
	close(msgs)

	r.Run(context.Background(), msgs)
	if len(out.dates) != 1 || out.dates[0] != "2025-03-03" {
		t.Errorf("sent %v", out.dates)
	}
}

func TestDue(t *testing.T) {
	at := func(day time.Time) (time.Time, bool, error) {
		y, m, d := day.Date()
		return time.Date(y, m, d, 17, 0, 0, 0, day.Location()), true, nil
	}
	before := time.Date(2025, time.March, 3, 16, 59, 0, 0, time.Local)
	after := time.Date(2025, time.March, 3, 17, 1, 0, 0, time.Local)
	log := discardLogger()

	if _, ok := due(before, at, "", log); ok {
		t.Error("due before send time")
	}
	if date, ok := due(after, at, "", log); !ok || date != "2025-03-03" {
		t.Errorf("after: %q %v", date, ok)
	}
	if _, ok := due(after, at, "2025-03-03", log); ok {
		t.Error("due twice on the same day")
	}
	off := func(time.Time) (time.Time, bool, error) { return time.Time{}, false, nil }
	if _, ok := due(after, off, "", log); ok {
		t.Error("due while disabled")
	}
}

func TestSchedule_PublishesOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(8)
	now := func() time.Time { return time.Date(2025, time.March, 3, 18, 0, 0, 0, time.Local) }
	at := func(day time.Time) (time.Time, bool, error) { return day.Add(-time.Hour), true, nil }

	done := make(chan struct{})
	go func() {
		Schedule(ctx, q, 5*time.Millisecond, now, at, discardLogger())
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	msgs, _ := q.Consume(context.Background())
	select {
	case msg := <-msgs:
		if string(msg.Body) != "2025-03-03" {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}
	select {
	case msg := <-msgs:
		t.Errorf("published twice: %+v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}
