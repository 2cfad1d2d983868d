package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	jobs "freight-audit/internal/jobs/domain"
	"freight-audit/internal/jobs/infrastructure/memory"
)

func writeSheet(t *testing.T, f *excelize.File, sheet string, rows [][]string) {
	t.Helper()
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
}

func fixtureLedger(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Guía"))
	writeSheet(t, f, "Guía", [][]string{
		{"Número Guía", "Estado", "Fecha", "Monto Tarifa"},
		{"3001", "CERRADA", "12/03/2024", "1000.50"},
		{"3002", "CERRADA", "12/03/2024", "500.00"},
	})
	path := filepath.Join(dir, "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func fixtureInvoice(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Factura"))
	writeSheet(t, f, "Factura", [][]string{
		{"No. Documento", "Total Naviera"},
		{"3001", "999.60"},
		{"3999", "777.00"},
	})
	path := filepath.Join(dir, "invoice.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	return Config{
		Tolerance:    "1.00",
		Carriers:     []string{"ONE", "COSCO"},
		UploadDir:    filepath.Join(dir, "uploads"),
		OutputDir:    filepath.Join(dir, "reports"),
		PollInterval: 10 * time.Millisecond,
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	repo := memory.NewRepository()
	runner, err := NewRunner(repo, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	job, precheck, err := runner.Enqueue(ctx, "ONE", fixtureLedger(t, dir), fixtureInvoice(t, dir))
	require.NoError(t, err)
	assert.True(t, precheck.OK)
	assert.Equal(t, jobs.StateQueued, job.State)

	require.NoError(t, runner.RunOnce(ctx))

	done, err := repo.FindJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateDone, done.State)
	require.NotEmpty(t, done.ReportPath)
	if _, err := os.Stat(done.ReportPath); err != nil {
		t.Fatalf("report artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(done.ReportPath), "kpis.pdf")); err != nil {
		t.Fatalf("kpi pdf missing: %v", err)
	}

	kpi, err := repo.GetKPIs(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, kpi.TotalShipments) // 3001 matched, 3002 ledger-only, 3999 carrier-only
	assert.Equal(t, 1, kpi.ShipmentsOK)
	assert.Equal(t, 1, kpi.MissingLedger)
	assert.Equal(t, 1, kpi.MissingCarrier)

	summaries, err := repo.ListSummaries(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, summaries, 3)

	// Queue is drained.
	assert.ErrorIs(t, runner.RunOnce(ctx), jobs.ErrNoQueuedJob)
}

func TestRunnerEnqueueRejectsBrokenUpload(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	repo := memory.NewRepository()
	runner, err := NewRunner(repo, cfg, nil)
	require.NoError(t, err)

	garbage := filepath.Join(dir, "garbage.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("not a workbook"), 0o644))

	_, precheck, err := runner.Enqueue(context.Background(), "ONE", garbage, fixtureInvoice(t, dir))
	assert.Error(t, err)
	assert.False(t, precheck.OK)
}

func TestRunnerEnqueueRejectsUnknownCarrier(t *testing.T) {
	dir := t.TempDir()
	runner, err := NewRunner(memory.NewRepository(), testConfig(t), nil)
	require.NoError(t, err)

	_, _, err = runner.Enqueue(context.Background(), "MAERSK", fixtureLedger(t, dir), fixtureInvoice(t, dir))
	assert.Error(t, err)
}

func TestRunnerMarksFailedOnUnreadableInput(t *testing.T) {
	cfg := testConfig(t)
	repo := memory.NewRepository()
	runner, err := NewRunner(repo, cfg, nil)
	require.NoError(t, err)

	// Bypass the precheck to simulate a file that broke between upload
	// and execution.
	job, err := jobs.NewJob("ONE", "/nonexistent/ledger.xlsx", "/nonexistent/invoice.xlsx", decimal.RequireFromString("1.00"), time.Now())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.CreateJob(ctx, job))

	require.NoError(t, runner.RunOnce(ctx))

	failed, err := repo.FindJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailed, failed.State)
	assert.NotEmpty(t, failed.Error)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	runner, err := NewRunner(memory.NewRepository(), testConfig(t), nil)
	require.NoError(t, err)
	worker, err := NewWorker(runner, 5*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(stopped)
	}()
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestConfigToleranceFor(t *testing.T) {
	cfg := Config{
		Tolerance:   "1.00",
		CarrierTols: map[string]string{"COSCO": "0.50"},
	}
	assert.True(t, cfg.ToleranceFor("ONE").Equal(decimal.RequireFromString("1.00")))
	assert.True(t, cfg.ToleranceFor("cosco").Equal(decimal.RequireFromString("0.50")))
}

func TestConfigSupportsCarrier(t *testing.T) {
	cfg := Config{Carriers: []string{"ONE", "COSCO"}}
	assert.True(t, cfg.SupportsCarrier(" one "))
	assert.False(t, cfg.SupportsCarrier("MAERSK"))
}
