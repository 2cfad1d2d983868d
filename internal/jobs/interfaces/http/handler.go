// Package http exposes the reconciliation job API: upload a ledger export
// and a carrier invoice, poll the job, download the results.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-audit/internal/audit"
	"freight-audit/internal/auth"
	"freight-audit/internal/ingest"
	"freight-audit/internal/jobs/application"
	jobs "freight-audit/internal/jobs/domain"
)

// Handler provides the job HTTP endpoints under /api/v1/jobs.
type Handler struct {
	runner      *application.Runner
	repo        application.Repository
	cfg         application.Config
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(runner *application.Runner, repo application.Repository, cfg application.Config, auditLogger audit.Logger) (*Handler, error) {
	if runner == nil {
		return nil, errors.New("jobs handler: nil runner")
	}
	if repo == nil {
		return nil, errors.New("jobs handler: nil repository")
	}
	return &Handler{runner: runner, repo: repo, cfg: cfg, auditLogger: auditLogger}, nil
}

type jobView struct {
	ID         string     `json:"id"`
	Carrier    string     `json:"carrier"`
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	Tolerance  string     `json:"tolerance"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func viewOf(job *jobs.Job) jobView {
	return jobView{
		ID:         job.ID,
		Carrier:    job.Carrier,
		State:      string(job.State),
		Error:      job.Error,
		Tolerance:  job.Tolerance.String(),
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
}

// ServeHTTP routes /api/v1/jobs and /api/v1/jobs/{id}[/kpis|/exceptions|/report].
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs")
	rest = strings.Trim(rest, "/")

	if rest == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCreate(w, r)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.SplitN(rest, "/", 2)
	jobID := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch sub {
	case "":
		h.handleStatus(w, r, jobID)
	case "kpis":
		h.handleKPIs(w, r, jobID)
	case "exceptions":
		h.handleExceptions(w, r, jobID)
	case "summaries":
		h.handleSummaries(w, r, jobID)
	case "report":
		h.handleReport(w, r, jobID)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	carrier := strings.TrimSpace(r.FormValue("carrier"))
	if carrier == "" {
		http.Error(w, "carrier is required", http.StatusBadRequest)
		return
	}

	uploadDir := filepath.Join(h.cfg.UploadDir, uuid.NewString())
	ledgerPath, err := h.saveUpload(r, "ledger", uploadDir)
	if err != nil {
		http.Error(w, "ledger file is required", http.StatusBadRequest)
		return
	}
	carrierPath, err := h.saveUpload(r, "invoice", uploadDir)
	if err != nil {
		http.Error(w, "invoice file is required", http.StatusBadRequest)
		return
	}

	job, precheck, err := h.runner.Enqueue(r.Context(), carrier, ledgerPath, carrierPath)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedCarrier) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":    err.Error(),
			"precheck": precheck,
		})
		return
	}

	h.logAudit(r, "job.create", job.ID, job.Carrier)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"job":      viewOf(job),
		"precheck": precheck,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.repo.FindJob(r.Context(), jobID)
	if err != nil {
		respondJobError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(viewOf(job))
}

func (h *Handler) handleKPIs(w http.ResponseWriter, r *http.Request, jobID string) {
	kpi, err := h.repo.GetKPIs(r.Context(), jobID)
	if err != nil {
		respondJobError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"carrier":           kpi.Carrier,
		"total_shipments":   kpi.TotalShipments,
		"shipments_ok":      kpi.ShipmentsOK,
		"shipments_not_ok":  kpi.ShipmentsNotOK,
		"shipments_open":    kpi.ShipmentsOpen,
		"missing_ledger":    kpi.MissingLedger,
		"missing_carrier":   kpi.MissingCarrier,
		"amount_mismatched": kpi.AmountMismatched,
		"total_ledger":      kpi.TotalLedger.String(),
		"total_carrier":     kpi.TotalCarrier.String(),
		"global_difference": kpi.GlobalDifference.String(),
		"percent_ok":        kpi.PercentOK,
	})
}

func (h *Handler) handleExceptions(w http.ResponseWriter, r *http.Request, jobID string) {
	exceptions, err := h.repo.ListExceptions(r.Context(), jobID)
	if err != nil {
		respondJobError(w, err)
		return
	}
	type view struct {
		Kind        string `json:"kind"`
		Severity    string `json:"severity"`
		ShipmentID  string `json:"shipment_id"`
		ContainerID string `json:"container_id,omitempty"`
		Message     string `json:"message"`
		Carrier     string `json:"carrier"`
	}
	out := make([]view, 0, len(exceptions))
	for _, e := range exceptions {
		out = append(out, view{
			Kind:        string(e.Kind),
			Severity:    string(e.Severity),
			ShipmentID:  e.ShipmentID,
			ContainerID: e.ContainerID,
			Message:     e.Message,
			Carrier:     e.Carrier,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) handleSummaries(w http.ResponseWriter, r *http.Request, jobID string) {
	summaries, err := h.repo.ListSummaries(r.Context(), jobID)
	if err != nil {
		respondJobError(w, err)
		return
	}
	type view struct {
		ShipmentID      string `json:"shipment_id"`
		Status          string `json:"status"`
		LedgerTotal     string `json:"ledger_total"`
		CarrierTotal    string `json:"carrier_total"`
		Difference      string `json:"difference"`
		WithinTolerance bool   `json:"within_tolerance"`
		Carrier         string `json:"carrier"`
		CarrierSource   string `json:"carrier_source,omitempty"`
	}
	out := make([]view, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, view{
			ShipmentID:      s.ShipmentID,
			Status:          string(s.Status),
			LedgerTotal:     s.LedgerTotal.String(),
			CarrierTotal:    s.CarrierTotal.String(),
			Difference:      s.Difference.String(),
			WithinTolerance: s.WithinTolerance,
			Carrier:         s.Carrier,
			CarrierSource:   s.CarrierSource,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.repo.FindJob(r.Context(), jobID)
	if err != nil {
		respondJobError(w, err)
		return
	}
	if job.State != jobs.StateDone || job.ReportPath == "" {
		http.Error(w, "report not ready", http.StatusConflict)
		return
	}
	h.logAudit(r, "report.download", job.ID, job.Carrier)
	w.Header().Set("Content-Disposition", `attachment; filename="audit-`+job.ID+`.xlsx"`)
	http.ServeFile(w, r, job.ReportPath)
}

func (h *Handler) saveUpload(r *http.Request, field, dir string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, safeFilename(header, field))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return path, nil
}

func safeFilename(header *multipart.FileHeader, fallback string) string {
	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fallback + ".xlsx"
	}
	return name
}

func (h *Handler) logAudit(r *http.Request, action, jobID, carrier string) {
	if h.auditLogger == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{"carrier": carrier})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "job",
		ResourceID:   jobID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func respondJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		http.Error(w, "job not found", http.StatusNotFound)
	case errors.Is(err, jobs.ErrResultsNotReady):
		http.Error(w, "results not ready", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
