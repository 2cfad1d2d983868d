package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"freight-audit/internal/jobs/application"
	jobs "freight-audit/internal/jobs/domain"
	"freight-audit/internal/jobs/infrastructure/memory"
)

func fixtureWorkbook(t *testing.T, sheet string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func newTestHandler(t *testing.T) (*Handler, *application.Runner, *memory.Repository) {
	t.Helper()
	dir := t.TempDir()
	cfg := application.Config{
		Tolerance:      "1.00",
		Carriers:       []string{"ONE", "COSCO"},
		UploadDir:      filepath.Join(dir, "uploads"),
		OutputDir:      filepath.Join(dir, "reports"),
		PollInterval:   10 * time.Millisecond,
		MaxUploadBytes: 8 << 20,
	}
	repo := memory.NewRepository()
	runner, err := application.NewRunner(repo, cfg, nil)
	require.NoError(t, err)
	handler, err := NewHandler(runner, repo, cfg, nil)
	require.NoError(t, err)
	return handler, runner, repo
}

func multipartUpload(t *testing.T, carrier string, ledger, invoice []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("carrier", carrier))
	part, err := writer.CreateFormFile("ledger", "ledger.xlsx")
	require.NoError(t, err)
	_, err = part.Write(ledger)
	require.NoError(t, err)
	part, err = writer.CreateFormFile("invoice", "invoice.xlsx")
	require.NoError(t, err)
	_, err = part.Write(invoice)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	handler, runner, _ := newTestHandler(t)

	ledger := fixtureWorkbook(t, "Guía", [][]string{
		{"Número Guía", "Estado", "Monto Tarifa"},
		{"3001", "CERRADA", "1000.50"},
	})
	invoice := fixtureWorkbook(t, "Factura", [][]string{
		{"No. Documento", "Total Naviera"},
		{"3001", "999.60"},
	})

	body, contentType := multipartUpload(t, "ONE", ledger, invoice)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	var created struct {
		Job jobView `json:"job"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.Job.ID)
	assert.Equal(t, "QUEUED", created.Job.State)

	require.NoError(t, runner.RunOnce(context.Background()))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.Job.ID, nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var status jobView
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.Equal(t, "DONE", status.State)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.Job.ID+"/kpis", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var kpis map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &kpis))
	assert.EqualValues(t, 1, kpis["total_shipments"])
	assert.EqualValues(t, 1, kpis["shipments_ok"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.Job.ID+"/report", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx is a zip container")
}

func TestCreateJobRejectsMissingCarrier(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body, contentType := multipartUpload(t, "", []byte("x"), []byte("y"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateJobRejectsBrokenWorkbook(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body, contentType := multipartUpload(t, "ONE", []byte("not a workbook"), []byte("neither"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	var payload struct {
		Precheck struct {
			OK bool `json:"OK"`
		} `json:"precheck"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.False(t, payload.Precheck.OK)
}

func TestJobStatusNotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestReportNotReady(t *testing.T) {
	handler, _, repo := newTestHandler(t)

	job, err := jobs.NewJob("ONE", "l.xlsx", "c.xlsx", decimal.RequireFromString("1.00"), time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreateJob(context.Background(), job))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/report", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}
