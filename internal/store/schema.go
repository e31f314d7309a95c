package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Only the surrogate key type differs between dialects.
const schema = `
CREATE TABLE IF NOT EXISTS learners (
	barcode TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT '',
	surname TEXT NOT NULL DEFAULT '',
	grade   TEXT NOT NULL DEFAULT '',
	area    TEXT NOT NULL DEFAULT '',
	dob     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS class_dates (
	date_iso TEXT PRIMARY KEY,
	label    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance_marks (
	id       {{serial}},
	date_iso TEXT NOT NULL,
	barcode  TEXT NOT NULL,
	present  INTEGER NOT NULL DEFAULT 0,
	ts_iso   TEXT NOT NULL,
	UNIQUE (date_iso, barcode)
);

CREATE TABLE IF NOT EXISTS inout_log (
	id       {{serial}},
	date_iso TEXT NOT NULL,
	barcode  TEXT NOT NULL,
	action   TEXT NOT NULL CHECK (action IN ('IN', 'OUT')),
	ts_iso   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inout_date_barcode ON inout_log (date_iso, barcode, ts_iso);

CREATE TABLE IF NOT EXISTS auto_send_log (
	date_iso    TEXT PRIMARY KEY,
	sent_ts_iso TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS devices (
	device_id  TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	created_ts TEXT NOT NULL
);
`

func migrate(ctx context.Context, db *sql.DB, driver string) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	ddl := strings.ReplaceAll(schema, "{{serial}}", serial)

	// One statement per Exec keeps both drivers on the same path.
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
