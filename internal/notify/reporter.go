package notify

import (
	"context"
	"log/slog"
	"time"

	"tutorregister/internal/attendance"
	"tutorregister/internal/metrics"
	"tutorregister/internal/queue"
	"tutorregister/pkg/sl"
)

// Source builds reports and keeps the send log.
type Source interface {
	DailyReport(ctx context.Context, dateISO string) (attendance.Report, error)
	ReportSent(ctx context.Context, dateISO string) (bool, error)
	MarkReportSent(ctx context.Context, dateISO string) error
}

// Sender delivers a report.
type Sender interface {
	Send(ctx context.Context, r attendance.Report) error
}

// Reporter sends each date's report at most once.
type Reporter struct {
	src     Source
	out     Sender
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewReporter wires a report source to a sender. m may be nil.
func NewReporter(src Source, out Sender, log *slog.Logger, m *metrics.Metrics) *Reporter {
	return &Reporter{src: src, out: out, log: log, metrics: m}
}

// Deliver sends the report for dateISO unless the send log already has it.
// It returns false when the report was skipped.
func (r *Reporter) Deliver(ctx context.Context, dateISO string) (bool, error) {
	const op = "notify.Reporter.Deliver"
	log := r.log.With(slog.String("op", op), slog.String("date", dateISO))

	sent, err := r.src.ReportSent(ctx, dateISO)
	if err != nil {
		r.metrics.ObserveReport("failed")
		return false, err
	}
	if sent {
		log.Debug("report already sent")
		r.metrics.ObserveReport("skipped")
		return false, nil
	}

	rep, err := r.src.DailyReport(ctx, dateISO)
	if err != nil {
		r.metrics.ObserveReport("failed")
		return false, err
	}
	if err := r.out.Send(ctx, rep); err != nil {
		r.metrics.ObserveReport("failed")
		return false, err
	}
	if err := r.src.MarkReportSent(ctx, dateISO); err != nil {
		r.metrics.ObserveReport("failed")
		return true, err
	}

	log.Info("report sent", slog.Int("present", len(rep.Present)), slog.Int("roster", rep.RosterSize))
	r.metrics.ObserveReport("sent")
	return true, nil
}

// Run handles report messages until msgs closes. Other message types are ignored.
func (r *Reporter) Run(ctx context.Context, msgs <-chan queue.Message) {
	for msg := range msgs {
		if msg.Type != queue.TypeReport {
			r.log.Warn("unknown message type", slog.String("type", msg.Type))
			continue
		}
		date := string(msg.Body)
		if _, err := attendance.ParseDateISO(date); err != nil {
			r.log.Warn("bad report date", slog.String("date", date), sl.Err(err))
			continue
		}
		if _, err := r.Deliver(ctx, date); err != nil {
			r.log.Error("report delivery failed", slog.String("date", date), sl.Err(err))
		}
	}
}

// Schedule publishes today's report request once per day after the time returned by at.
// It returns when ctx is done.
func Schedule(
	ctx context.Context,
	q queue.Queue,
	every time.Duration,
	now func() time.Time,
	at func(day time.Time) (time.Time, bool, error),
	log *slog.Logger,
) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last string
	for {
		if date, ok := due(now(), at, last, log); ok {
			if err := q.Publish(ctx, queue.ReportMessage(date)); err != nil {
				log.Error("publish report", slog.String("date", date), sl.Err(err))
			} else {
				last = date
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func due(t time.Time, at func(time.Time) (time.Time, bool, error), last string, log *slog.Logger) (string, bool) {
	when, ok, err := at(t)
	if err != nil {
		log.Error("auto-send time", sl.Err(err))
		return "", false
	}
	date := attendance.DateISO(t)
	if !ok || t.Before(when) || date == last {
		return "", false
	}
	return date, true
}
