package postgres

import (
	"context"
	"database/sql"
)

// Schema is the job and result storage layout. NUMERIC for money, text
// state enums checked in the domain rather than the database.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_jobs (
	id           TEXT PRIMARY KEY,
	carrier      TEXT NOT NULL,
	state        TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	tolerance    NUMERIC(18,4) NOT NULL,
	ledger_path  TEXT NOT NULL,
	carrier_path TEXT NOT NULL,
	report_path  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_audit_jobs_state_created ON audit_jobs (state, created_at);

CREATE TABLE IF NOT EXISTS result_summaries (
	job_id           TEXT NOT NULL REFERENCES audit_jobs(id) ON DELETE CASCADE,
	shipment_id      TEXT NOT NULL,
	status           TEXT NOT NULL,
	ledger_total     NUMERIC(18,4) NOT NULL,
	carrier_total    NUMERIC(18,4) NOT NULL,
	difference       NUMERIC(18,4) NOT NULL,
	within_tolerance BOOLEAN NOT NULL,
	carrier          TEXT NOT NULL,
	carrier_source   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, shipment_id)
);

CREATE TABLE IF NOT EXISTS result_containers (
	job_id       TEXT NOT NULL REFERENCES audit_jobs(id) ON DELETE CASCADE,
	shipment_id  TEXT NOT NULL,
	container_id TEXT NOT NULL,
	route        TEXT NOT NULL DEFAULT '',
	freight      NUMERIC(18,4) NOT NULL,
	extras       NUMERIC(18,4) NOT NULL,
	total        NUMERIC(18,4) NOT NULL,
	carrier      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS result_charges (
	job_id       TEXT NOT NULL REFERENCES audit_jobs(id) ON DELETE CASCADE,
	shipment_id  TEXT NOT NULL,
	container_id TEXT NOT NULL DEFAULT '',
	charge_key   TEXT NOT NULL,
	amount       NUMERIC(18,4) NOT NULL,
	origin       TEXT NOT NULL,
	carrier      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS result_exceptions (
	job_id       TEXT NOT NULL REFERENCES audit_jobs(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL,
	severity     TEXT NOT NULL,
	shipment_id  TEXT NOT NULL DEFAULT '',
	container_id TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL,
	carrier      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS result_kpis (
	job_id            TEXT PRIMARY KEY REFERENCES audit_jobs(id) ON DELETE CASCADE,
	carrier           TEXT NOT NULL,
	total_shipments   INTEGER NOT NULL,
	shipments_ok      INTEGER NOT NULL,
	shipments_not_ok  INTEGER NOT NULL,
	shipments_open    INTEGER NOT NULL,
	missing_ledger    INTEGER NOT NULL,
	missing_carrier   INTEGER NOT NULL,
	amount_mismatched INTEGER NOT NULL,
	total_ledger      NUMERIC(18,4) NOT NULL,
	total_carrier     NUMERIC(18,4) NOT NULL,
	global_difference NUMERIC(18,4) NOT NULL,
	percent_ok        DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id             TEXT PRIMARY KEY,
	actor          TEXT NOT NULL DEFAULT '',
	role           TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL,
	resource_type  TEXT NOT NULL,
	resource_id    TEXT NOT NULL,
	metadata       JSONB,
	payload_digest TEXT NOT NULL DEFAULT '',
	ip             TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
