// Package application orchestrates reconciliation jobs: queueing uploads,
// claiming queued work, running the parse/reconcile/export pipeline and
// persisting results.
package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"freight-audit/internal/export"
	"freight-audit/internal/ingest"
	jobs "freight-audit/internal/jobs/domain"
	"freight-audit/internal/observability/metrics"
	recon "freight-audit/internal/recon/domain"
)

// Repository persists jobs and their reconciliation results.
type Repository interface {
	CreateJob(ctx context.Context, job *jobs.Job) error
	FindJob(ctx context.Context, id string) (*jobs.Job, error)
	UpdateJob(ctx context.Context, job *jobs.Job) error
	// ClaimNextQueued atomically claims the oldest queued job for this
	// worker and returns it already marked RUNNING. jobs.ErrNoQueuedJob
	// when the queue is empty.
	ClaimNextQueued(ctx context.Context) (*jobs.Job, error)
	ReplaceResults(ctx context.Context, jobID string, res *recon.Result, kpi recon.KPIReport) error
	ListSummaries(ctx context.Context, jobID string) ([]recon.Summary, error)
	ListExceptions(ctx context.Context, jobID string) ([]recon.Exception, error)
	GetKPIs(ctx context.Context, jobID string) (recon.KPIReport, error)
}

// Runner executes reconciliation jobs end to end.
type Runner struct {
	repo   Repository
	cfg    Config
	logger *log.Logger
	now    func() time.Time
}

// NewRunner constructs a runner.
func NewRunner(repo Repository, cfg Config, logger *log.Logger) (*Runner, error) {
	if repo == nil {
		return nil, errors.New("jobs: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{repo: repo, cfg: cfg, logger: logger, now: time.Now}, nil
}

// Enqueue prechecks the uploaded workbooks and queues a job. A structurally
// broken upload is rejected here, before any worker picks it up.
func (r *Runner) Enqueue(ctx context.Context, carrier, ledgerPath, carrierPath string) (*jobs.Job, ingest.Report, error) {
	if !r.cfg.SupportsCarrier(carrier) {
		return nil, ingest.Report{}, fmt.Errorf("%w: %q", ingest.ErrUnsupportedCarrier, carrier)
	}
	precheck := ingest.Precheck(carrier, ledgerPath, carrierPath)
	if !precheck.OK {
		return nil, precheck, errors.New("jobs: uploaded files failed precheck")
	}

	job, err := jobs.NewJob(carrier, ledgerPath, carrierPath, r.cfg.ToleranceFor(carrier), r.now())
	if err != nil {
		return nil, precheck, err
	}
	if err := r.repo.CreateJob(ctx, job); err != nil {
		return nil, precheck, err
	}
	r.logger.Printf("job %s queued carrier=%s", job.ID, job.Carrier)
	return job, precheck, nil
}

// RunOnce claims and executes one queued job. Returns jobs.ErrNoQueuedJob
// when the queue is empty.
func (r *Runner) RunOnce(ctx context.Context) error {
	job, err := r.repo.ClaimNextQueued(ctx)
	if err != nil {
		return err
	}
	started := r.now()
	if err := r.execute(ctx, job); err != nil {
		metrics.ObserveRun(metrics.ResultError, r.now().Sub(started))
		r.fail(ctx, job, err)
		return nil
	}
	metrics.ObserveRun(metrics.ResultSuccess, r.now().Sub(started))
	return nil
}

func (r *Runner) execute(ctx context.Context, job *jobs.Job) error {
	events, ledgerStats, err := ingest.NewLedgerParser().Parse(job.LedgerPath)
	if err != nil {
		return fmt.Errorf("parse ledger: %w", err)
	}
	metrics.AddRowsParsed("ledger", ledgerStats.RowsRead)
	metrics.AddParseWarnings(len(ledgerStats.Warnings))

	parser, err := ingest.CarrierParserFor(job.Carrier)
	if err != nil {
		return err
	}
	lines, carrierStats, err := parser.Parse(job.CarrierPath)
	if err != nil {
		return fmt.Errorf("parse %s invoice: %w", job.Carrier, err)
	}
	metrics.AddRowsParsed("carrier", carrierStats.RowsRead)
	metrics.AddParseWarnings(len(carrierStats.Warnings))

	res, err := recon.Reconcile(job.Carrier, events, lines, job.Tolerance)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	kpi := recon.ComputeKPIs(job.Carrier, res.Summaries)
	for _, exc := range res.Exceptions {
		metrics.IncException(string(exc.Kind))
	}

	if err := r.repo.ReplaceResults(ctx, job.ID, res, kpi); err != nil {
		return fmt.Errorf("persist results: %w", err)
	}

	reportPath, err := r.writeArtifacts(job, res, kpi)
	if err != nil {
		return err
	}

	if err := job.MarkDone(reportPath, r.now()); err != nil {
		return err
	}
	if err := r.repo.UpdateJob(ctx, job); err != nil {
		return err
	}
	r.logger.Printf("job %s done shipments=%d exceptions=%d", job.ID, kpi.TotalShipments, len(res.Exceptions))
	return nil
}

func (r *Runner) writeArtifacts(job *jobs.Job, res *recon.Result, kpi recon.KPIReport) (string, error) {
	dir := filepath.Join(r.cfg.OutputDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	workbook, err := export.BuildWorkbook(res, kpi)
	if err != nil {
		metrics.ObserveReport("xlsx", metrics.ResultError)
		return "", fmt.Errorf("render workbook: %w", err)
	}
	reportPath := filepath.Join(dir, "report.xlsx")
	if err := os.WriteFile(reportPath, workbook, 0o644); err != nil {
		return "", err
	}
	metrics.ObserveReport("xlsx", metrics.ResultSuccess)

	pdf, err := export.BuildKPIPDF(kpi, r.now())
	if err != nil {
		metrics.ObserveReport("pdf", metrics.ResultError)
		return "", fmt.Errorf("render kpi pdf: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "kpis.pdf"), pdf, 0o644); err != nil {
		return "", err
	}
	metrics.ObserveReport("pdf", metrics.ResultSuccess)
	return reportPath, nil
}

func (r *Runner) fail(ctx context.Context, job *jobs.Job, cause error) {
	r.logger.Printf("job %s failed: %v", job.ID, cause)
	if err := job.MarkFailed(cause.Error(), r.now()); err != nil {
		r.logger.Printf("job %s: mark failed: %v", job.ID, err)
		return
	}
	if err := r.repo.UpdateJob(ctx, job); err != nil {
		r.logger.Printf("job %s: persist failure: %v", job.ID, err)
	}
}
