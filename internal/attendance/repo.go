package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists the register in a relational store. Statements use $n placeholders
// in ascending order so they run unchanged on sqlite and Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks the store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CountLearners returns the roster size.
func (r *Repository) CountLearners(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM learners`).Scan(&n); err != nil {
		return 0, fmt.Errorf("attendance.Repository.CountLearners: %w", err)
	}
	return n, nil
}

// ListLearners returns the roster ordered by grade, name, surname.
func (r *Repository) ListLearners(ctx context.Context) ([]Learner, error) {
	const op = "attendance.Repository.ListLearners"

	rows, err := r.db.QueryContext(ctx, `
		SELECT barcode, name, surname, grade, area, dob
		FROM learners
		ORDER BY grade, name, surname
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []Learner
	for rows.Next() {
		var l Learner
		if err := rows.Scan(&l.Barcode, &l.Name, &l.Surname, &l.Grade, &l.Area, &l.DateOfBirth); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// GetLearner returns the learner for a normalized barcode, or nil when absent.
func (r *Repository) GetLearner(ctx context.Context, barcode string) (*Learner, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT barcode, name, surname, grade, area, dob
		FROM learners WHERE barcode = $1
	`, barcode)
	var l Learner
	if err := row.Scan(&l.Barcode, &l.Name, &l.Surname, &l.Grade, &l.Area, &l.DateOfBirth); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("attendance.Repository.GetLearner: %w", err)
	}
	return &l, nil
}

// ReplaceLearners drops every learner and inserts the given set in one transaction.
func (r *Repository) ReplaceLearners(ctx context.Context, learners []Learner) error {
	const op = "attendance.Repository.ReplaceLearners"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM learners`); err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO learners (barcode, name, surname, grade, area, dob)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("%s: prepare: %w", op, err)
	}
	defer stmt.Close()

	for _, l := range learners {
		if _, err := stmt.ExecContext(ctx, l.Barcode, l.Name, l.Surname, l.Grade, l.Area, l.DateOfBirth); err != nil {
			return fmt.Errorf("%s: insert %s: %w", op, l.Barcode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// UpsertLearner creates or updates a single learner.
func (r *Repository) UpsertLearner(ctx context.Context, l Learner) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO learners (barcode, name, surname, grade, area, dob)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (barcode) DO UPDATE SET
			name = excluded.name,
			surname = excluded.surname,
			grade = excluded.grade,
			area = excluded.area,
			dob = excluded.dob
	`, l.Barcode, l.Name, l.Surname, l.Grade, l.Area, l.DateOfBirth)
	if err != nil {
		return fmt.Errorf("attendance.Repository.UpsertLearner: %w", err)
	}
	return nil
}

// DeleteLearner removes a learner and reports how many rows went.
func (r *Repository) DeleteLearner(ctx context.Context, barcode string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM learners WHERE barcode = $1`, barcode)
	if err != nil {
		return 0, fmt.Errorf("attendance.Repository.DeleteLearner: %w", err)
	}
	return res.RowsAffected()
}

// ListClassDates returns every session in date order.
func (r *Repository) ListClassDates(ctx context.Context) ([]ClassDate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date_iso, label FROM class_dates ORDER BY date_iso`)
	if err != nil {
		return nil, fmt.Errorf("attendance.Repository.ListClassDates: %w", err)
	}
	defer rows.Close()

	var res []ClassDate
	for rows.Next() {
		var d ClassDate
		if err := rows.Scan(&d.DateISO, &d.Label); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// RecordMark upserts a mark, creating its class date first when needed.
func (r *Repository) RecordMark(ctx context.Context, date ClassDate, m Mark) (Mark, error) {
	const op = "attendance.Repository.RecordMark"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Mark{}, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if m, err = upsertMark(ctx, tx, date, m); err != nil {
		return Mark{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return Mark{}, fmt.Errorf("%s: commit: %w", op, err)
	}
	return m, nil
}

// RecordScan appends evt and, when mark is set, upserts the mark in the same transaction.
// Either both land or neither does.
func (r *Repository) RecordScan(ctx context.Context, evt Event, date ClassDate, mark *Mark) (Event, error) {
	const op = "attendance.Repository.RecordScan"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Event{}, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if evt, err = appendEvent(ctx, tx, evt); err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if mark != nil {
		if _, err := upsertMark(ctx, tx, date, *mark); err != nil {
			return Event{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Event{}, fmt.Errorf("%s: commit: %w", op, err)
	}
	return evt, nil
}

func upsertMark(ctx context.Context, tx *sql.Tx, date ClassDate, m Mark) (Mark, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO class_dates (date_iso, label) VALUES ($1, $2)
		ON CONFLICT (date_iso) DO NOTHING
	`, date.DateISO, date.Label); err != nil {
		return Mark{}, fmt.Errorf("class date: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO attendance_marks (date_iso, barcode, present, ts_iso)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date_iso, barcode) DO UPDATE SET
			present = excluded.present,
			ts_iso = excluded.ts_iso
		RETURNING id
	`, m.DateISO, m.Barcode, boolInt(m.Present), formatTS(m.TS))
	if err := row.Scan(&m.ID); err != nil {
		return Mark{}, fmt.Errorf("upsert: %w", err)
	}
	return m, nil
}

// ListMarks returns every mark, optionally restricted to one date.
func (r *Repository) ListMarks(ctx context.Context, dateISO string) ([]Mark, error) {
	const op = "attendance.Repository.ListMarks"

	query := `SELECT id, date_iso, barcode, present, ts_iso FROM attendance_marks`
	var args []any
	if dateISO != "" {
		query += ` WHERE date_iso = $1`
		args = append(args, dateISO)
	}
	query += ` ORDER BY date_iso, barcode`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []Mark
	for rows.Next() {
		var (
			m       Mark
			present int
			ts      string
		)
		if err := rows.Scan(&m.ID, &m.DateISO, &m.Barcode, &present, &ts); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.Present = present != 0
		if m.TS, err = parseTS(ts); err != nil {
			return nil, fmt.Errorf("%s: ts %q: %w", op, ts, err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// LatestEvent returns the most recent in/out entry for the pair, or nil when there is none.
func (r *Repository) LatestEvent(ctx context.Context, dateISO, barcode string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date_iso, barcode, action, ts_iso
		FROM inout_log
		WHERE date_iso = $1 AND barcode = $2
		ORDER BY ts_iso DESC, id DESC
		LIMIT 1
	`, dateISO, barcode)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("attendance.Repository.LatestEvent: %w", err)
	}
	return &evt, nil
}

func appendEvent(ctx context.Context, tx *sql.Tx, evt Event) (Event, error) {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO inout_log (date_iso, barcode, action, ts_iso)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, evt.DateISO, evt.Barcode, string(evt.Action), formatTS(evt.TS))
	if err := row.Scan(&evt.ID); err != nil {
		return Event{}, fmt.Errorf("append event: %w", err)
	}
	return evt, nil
}

// ListEvents returns a day's log in chronological order, optionally for one barcode.
func (r *Repository) ListEvents(ctx context.Context, dateISO, barcode string) ([]Event, error) {
	const op = "attendance.Repository.ListEvents"

	query := `SELECT id, date_iso, barcode, action, ts_iso FROM inout_log WHERE date_iso = $1`
	args := []any{dateISO}
	if barcode != "" {
		query += ` AND barcode = $2`
		args = append(args, barcode)
	}
	query += ` ORDER BY ts_iso, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// CurrentlyIn lists learners whose latest event on the date is IN. Learners without events
// that day join to nothing and fall out of the result.
func (r *Repository) CurrentlyIn(ctx context.Context, dateISO string) ([]Presence, error) {
	const op = "attendance.Repository.CurrentlyIn"

	rows, err := r.db.QueryContext(ctx, `
		SELECT l.barcode, l.name, l.surname, l.grade, l.area, l.dob, e.ts_iso
		FROM learners l
		LEFT JOIN inout_log e ON e.id = (
			SELECT e2.id FROM inout_log e2
			WHERE e2.date_iso = $1 AND e2.barcode = l.barcode
			ORDER BY e2.ts_iso DESC, e2.id DESC
			LIMIT 1
		)
		WHERE e.action = 'IN'
		ORDER BY l.name, l.surname
	`, dateISO)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []Presence
	for rows.Next() {
		var (
			p  Presence
			ts string
		)
		if err := rows.Scan(&p.Barcode, &p.Name, &p.Surname, &p.Grade, &p.Area, &p.DateOfBirth, &ts); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if p.Since, err = parseTS(ts); err != nil {
			return nil, fmt.Errorf("%s: ts %q: %w", op, ts, err)
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// EnrollDevice stores a device under role. Re-enrolling with the same role is a no-op;
// a different role fails with ErrDeviceConflict and leaves the stored row alone.
func (r *Repository) EnrollDevice(ctx context.Context, deviceID, role string, at time.Time) error {
	const op = "attendance.Repository.EnrollDevice"

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, role, created_ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id) DO NOTHING
	`, deviceID, role, formatTS(at)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	stored, ok, err := r.DeviceRole(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok || stored != role {
		return fmt.Errorf("%s: %w: %s", op, ErrDeviceConflict, deviceID)
	}
	return nil
}

// DeviceRole returns the enrolled role of a device. ok is false for unknown ids.
func (r *Repository) DeviceRole(ctx context.Context, deviceID string) (role string, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT role FROM devices WHERE device_id = $1`, deviceID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("attendance.Repository.DeviceRole: %w", err)
	}
	return role, true, nil
}

// SentAt reports when the daily report for a date went out, or nil if it has not.
func (r *Repository) SentAt(ctx context.Context, dateISO string) (*time.Time, error) {
	var ts string
	err := r.db.QueryRowContext(ctx, `SELECT sent_ts_iso FROM auto_send_log WHERE date_iso = $1`, dateISO).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("attendance.Repository.SentAt: %w", err)
	}
	t, err := parseTS(ts)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RecordSend logs a report send. A second send for the same date keeps the first timestamp.
func (r *Repository) RecordSend(ctx context.Context, dateISO string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auto_send_log (date_iso, sent_ts_iso) VALUES ($1, $2)
		ON CONFLICT (date_iso) DO NOTHING
	`, dateISO, formatTS(at))
	if err != nil {
		return fmt.Errorf("attendance.Repository.RecordSend: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		evt    Event
		action string
		ts     string
	)
	if err := row.Scan(&evt.ID, &evt.DateISO, &evt.Barcode, &action, &ts); err != nil {
		return Event{}, err
	}
	evt.Action = Action(action)
	t, err := parseTS(ts)
	if err != nil {
		return Event{}, err
	}
	evt.TS = t
	return evt, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
