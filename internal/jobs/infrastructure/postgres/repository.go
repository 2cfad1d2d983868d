// Package postgres persists jobs and reconciliation results. Monetary
// values travel as text and map to NUMERIC columns, never through floats.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	jobs "freight-audit/internal/jobs/domain"
	recon "freight-audit/internal/recon/domain"
)

// Repository persists jobs and their results.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateJob inserts a queued job.
func (r *Repository) CreateJob(ctx context.Context, job *jobs.Job) error {
	if r == nil || r.db == nil {
		return errors.New("job repo: nil db")
	}
	if job == nil {
		return errors.New("job repo: nil job")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_jobs (
	id, carrier, state, error, tolerance, ledger_path, carrier_path, report_path,
	created_at, started_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		job.ID, job.Carrier, job.State, job.Error, job.Tolerance.String(),
		job.LedgerPath, job.CarrierPath, job.ReportPath,
		job.CreatedAt, job.StartedAt, job.FinishedAt)
	return err
}

// FindJob fetches a job by id.
func (r *Repository) FindJob(ctx context.Context, id string) (*jobs.Job, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("job repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, carrier, state, error, tolerance, ledger_path, carrier_path, report_path,
	created_at, started_at, finished_at
FROM audit_jobs
WHERE id = $1
LIMIT 1`, id)
	return scanJob(row)
}

// UpdateJob persists a state transition.
func (r *Repository) UpdateJob(ctx context.Context, job *jobs.Job) error {
	if r == nil || r.db == nil {
		return errors.New("job repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE audit_jobs
SET state = $2, error = $3, report_path = $4, started_at = $5, finished_at = $6
WHERE id = $1`,
		job.ID, job.State, job.Error, job.ReportPath, job.StartedAt, job.FinishedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return jobs.ErrJobNotFound
	}
	return nil
}

// ClaimNextQueued claims the oldest queued job for this worker. SKIP LOCKED
// lets concurrent workers claim disjoint jobs without blocking each other.
func (r *Repository) ClaimNextQueued(ctx context.Context) (*jobs.Job, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("job repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRowContext(ctx, `
SELECT id, carrier, state, error, tolerance, ledger_path, carrier_path, report_path,
	created_at, started_at, finished_at
FROM audit_jobs
WHERE state = 'QUEUED'
ORDER BY created_at ASC
LIMIT 1
FOR UPDATE SKIP LOCKED`)
	job, err := scanJob(row)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, jobs.ErrJobNotFound) {
			return nil, jobs.ErrNoQueuedJob
		}
		return nil, err
	}
	if err := job.MarkRunning(time.Now()); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
UPDATE audit_jobs SET state = $2, started_at = $3 WHERE id = $1`,
		job.ID, job.State, job.StartedAt)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

// ReplaceResults swaps the stored result set of a job in one transaction.
func (r *Repository) ReplaceResults(ctx context.Context, jobID string, res *recon.Result, kpi recon.KPIReport) error {
	if r == nil || r.db == nil {
		return errors.New("job repo: nil db")
	}
	if res == nil {
		return errors.New("job repo: nil result")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, table := range []string{"result_summaries", "result_containers", "result_charges", "result_exceptions", "result_kpis"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE job_id = $1`, jobID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	for _, s := range res.Summaries {
		_, err := tx.ExecContext(ctx, `
INSERT INTO result_summaries (
	job_id, shipment_id, status, ledger_total, carrier_total, difference,
	within_tolerance, carrier, carrier_source
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			jobID, s.ShipmentID, s.Status, s.LedgerTotal.String(), s.CarrierTotal.String(),
			s.Difference.String(), s.WithinTolerance, s.Carrier, s.CarrierSource)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for _, c := range res.Containers {
		_, err := tx.ExecContext(ctx, `
INSERT INTO result_containers (
	job_id, shipment_id, container_id, route, freight, extras, total, carrier
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			jobID, c.ShipmentID, c.ContainerID, c.Route,
			c.Freight.String(), c.Extras.String(), c.Total.String(), c.Carrier)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for _, c := range res.Charges {
		_, err := tx.ExecContext(ctx, `
INSERT INTO result_charges (
	job_id, shipment_id, container_id, charge_key, amount, origin, carrier
) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			jobID, c.ShipmentID, c.ContainerID, c.ChargeKey, c.Amount.String(), c.Origin, c.Carrier)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for _, e := range res.Exceptions {
		_, err := tx.ExecContext(ctx, `
INSERT INTO result_exceptions (
	job_id, kind, severity, shipment_id, container_id, message, carrier
) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			jobID, e.Kind, e.Severity, e.ShipmentID, e.ContainerID, e.Message, e.Carrier)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO result_kpis (
	job_id, carrier, total_shipments, shipments_ok, shipments_not_ok, shipments_open,
	missing_ledger, missing_carrier, amount_mismatched,
	total_ledger, total_carrier, global_difference, percent_ok
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		jobID, kpi.Carrier, kpi.TotalShipments, kpi.ShipmentsOK, kpi.ShipmentsNotOK, kpi.ShipmentsOpen,
		kpi.MissingLedger, kpi.MissingCarrier, kpi.AmountMismatched,
		kpi.TotalLedger.String(), kpi.TotalCarrier.String(), kpi.GlobalDifference.String(), kpi.PercentOK)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListSummaries returns the stored summary rows for a job.
func (r *Repository) ListSummaries(ctx context.Context, jobID string) ([]recon.Summary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("job repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT shipment_id, status, ledger_total, carrier_total, difference,
	within_tolerance, carrier, carrier_source
FROM result_summaries
WHERE job_id = $1
ORDER BY shipment_id ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recon.Summary
	for rows.Next() {
		var s recon.Summary
		var ledger, carrier, diff string
		if err := rows.Scan(&s.ShipmentID, &s.Status, &ledger, &carrier, &diff,
			&s.WithinTolerance, &s.Carrier, &s.CarrierSource); err != nil {
			return nil, err
		}
		if s.LedgerTotal, err = decimal.NewFromString(ledger); err != nil {
			return nil, err
		}
		if s.CarrierTotal, err = decimal.NewFromString(carrier); err != nil {
			return nil, err
		}
		if s.Difference, err = decimal.NewFromString(diff); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListExceptions returns the stored exception rows for a job.
func (r *Repository) ListExceptions(ctx context.Context, jobID string) ([]recon.Exception, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("job repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT kind, severity, shipment_id, container_id, message, carrier
FROM result_exceptions
WHERE job_id = $1
ORDER BY kind ASC, shipment_id ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recon.Exception
	for rows.Next() {
		var e recon.Exception
		if err := rows.Scan(&e.Kind, &e.Severity, &e.ShipmentID, &e.ContainerID, &e.Message, &e.Carrier); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetKPIs returns the stored KPI row for a job.
func (r *Repository) GetKPIs(ctx context.Context, jobID string) (recon.KPIReport, error) {
	if r == nil || r.db == nil {
		return recon.KPIReport{}, errors.New("job repo: nil db")
	}
	var kpi recon.KPIReport
	var ledger, carrier, diff string
	err := r.db.QueryRowContext(ctx, `
SELECT carrier, total_shipments, shipments_ok, shipments_not_ok, shipments_open,
	missing_ledger, missing_carrier, amount_mismatched,
	total_ledger, total_carrier, global_difference, percent_ok
FROM result_kpis
WHERE job_id = $1
LIMIT 1`, jobID).Scan(&kpi.Carrier, &kpi.TotalShipments, &kpi.ShipmentsOK, &kpi.ShipmentsNotOK,
		&kpi.ShipmentsOpen, &kpi.MissingLedger, &kpi.MissingCarrier, &kpi.AmountMismatched,
		&ledger, &carrier, &diff, &kpi.PercentOK)
	if errors.Is(err, sql.ErrNoRows) {
		return recon.KPIReport{}, jobs.ErrResultsNotReady
	}
	if err != nil {
		return recon.KPIReport{}, err
	}
	if kpi.TotalLedger, err = decimal.NewFromString(ledger); err != nil {
		return recon.KPIReport{}, err
	}
	if kpi.TotalCarrier, err = decimal.NewFromString(carrier); err != nil {
		return recon.KPIReport{}, err
	}
	if kpi.GlobalDifference, err = decimal.NewFromString(diff); err != nil {
		return recon.KPIReport{}, err
	}
	return kpi, nil
}

func scanJob(row *sql.Row) (*jobs.Job, error) {
	var job jobs.Job
	var tolerance string
	var started, finished sql.NullTime
	err := row.Scan(&job.ID, &job.Carrier, &job.State, &job.Error, &tolerance,
		&job.LedgerPath, &job.CarrierPath, &job.ReportPath,
		&job.CreatedAt, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, jobs.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	if job.Tolerance, err = decimal.NewFromString(tolerance); err != nil {
		return nil, err
	}
	if started.Valid {
		t := started.Time
		job.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}
