// Package jobs models one reconciliation run from upload to downloadable
// report. A job is created QUEUED and owned by exactly one worker while
// RUNNING; terminal states are DONE and FAILED.
package jobs

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrJobNotFound     = errors.New("jobs: job not found")
	ErrNoQueuedJob     = errors.New("jobs: no queued job")
	ErrInvalidCarrier  = errors.New("jobs: carrier is required")
	ErrInvalidInput    = errors.New("jobs: ledger and invoice files are required")
	ErrBadStateChange  = errors.New("jobs: invalid state transition")
	ErrResultsNotReady = errors.New("jobs: results not ready")
)

// State is the job lifecycle state.
type State string

const (
	StateQueued  State = "QUEUED"
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
	StateFailed  State = "FAILED"
)

// Job is one reconciliation run.
type Job struct {
	ID          string
	Carrier     string
	State       State
	Error       string
	Tolerance   decimal.Decimal
	LedgerPath  string
	CarrierPath string
	ReportPath  string
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// NewJob validates inputs and builds a queued job.
func NewJob(carrier, ledgerPath, carrierPath string, tolerance decimal.Decimal, now time.Time) (*Job, error) {
	carrier = strings.ToUpper(strings.TrimSpace(carrier))
	if carrier == "" {
		return nil, ErrInvalidCarrier
	}
	if strings.TrimSpace(ledgerPath) == "" || strings.TrimSpace(carrierPath) == "" {
		return nil, ErrInvalidInput
	}
	if tolerance.IsNegative() {
		return nil, errors.New("jobs: tolerance must not be negative")
	}
	return &Job{
		ID:          uuid.NewString(),
		Carrier:     carrier,
		State:       StateQueued,
		Tolerance:   tolerance,
		LedgerPath:  ledgerPath,
		CarrierPath: carrierPath,
		CreatedAt:   now.UTC(),
	}, nil
}

// MarkRunning transitions QUEUED -> RUNNING.
func (j *Job) MarkRunning(now time.Time) error {
	if j.State != StateQueued {
		return ErrBadStateChange
	}
	t := now.UTC()
	j.State = StateRunning
	j.StartedAt = &t
	return nil
}

// MarkDone transitions RUNNING -> DONE and records the report location.
func (j *Job) MarkDone(reportPath string, now time.Time) error {
	if j.State != StateRunning {
		return ErrBadStateChange
	}
	t := now.UTC()
	j.State = StateDone
	j.ReportPath = reportPath
	j.FinishedAt = &t
	return nil
}

// MarkFailed transitions RUNNING -> FAILED with the cause. A queued job can
// also fail directly when its inputs turn out unreadable.
func (j *Job) MarkFailed(cause string, now time.Time) error {
	if j.State != StateRunning && j.State != StateQueued {
		return ErrBadStateChange
	}
	t := now.UTC()
	j.State = StateFailed
	j.Error = cause
	j.FinishedAt = &t
	return nil
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.State == StateDone || j.State == StateFailed
}
