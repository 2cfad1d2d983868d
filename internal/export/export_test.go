package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	recon "freight-audit/internal/recon/domain"
)

func sampleResult() (*recon.Result, recon.KPIReport) {
	res := &recon.Result{
		Summaries: []recon.Summary{
			{ShipmentID: "3001", Status: recon.StatusClosed, LedgerTotal: decimal.RequireFromString("1000.50"),
				CarrierTotal: decimal.RequireFromString("999.60"), Difference: decimal.RequireFromString("0.90"),
				WithinTolerance: true, Carrier: "ONE", CarrierSource: "Factura"},
			{ShipmentID: "3999", Status: recon.StatusMissingLedger, CarrierTotal: decimal.RequireFromString("777"),
				Difference: decimal.RequireFromString("-777"), Carrier: "ONE"},
		},
		Containers: []recon.ContainerDetail{
			{ShipmentID: "3001", ContainerID: "CSNU1234567", Route: "LIM-CRI",
				Total: decimal.RequireFromString("1000.50"), Carrier: "ONE"},
		},
		Charges: []recon.ChargeDetail{
			{ShipmentID: "3001", ChargeKey: "DEMURRAGE", Amount: decimal.RequireFromString("50"),
				Origin: recon.OriginLedger, Carrier: "ONE"},
		},
		Exceptions: []recon.Exception{
			{Kind: recon.ExcShipmentOnlyInCarrier, ShipmentID: "3999", Severity: recon.SeverityError,
				Message: "carrier billed a shipment the ledger does not know", Carrier: "ONE"},
		},
	}
	kpi := recon.KPIReport{
		Carrier: "ONE", TotalShipments: 2, ShipmentsOK: 1, ShipmentsNotOK: 1, MissingLedger: 1,
		TotalLedger:  decimal.RequireFromString("1000.50"),
		TotalCarrier: decimal.RequireFromString("1776.60"),
		GlobalDifference: decimal.RequireFromString("-776.10"),
		PercentOK:    50,
	}
	return res, kpi
}

func TestBuildWorkbook(t *testing.T) {
	res, kpi := sampleResult()

	raw, err := BuildWorkbook(res, kpi)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{SheetSummary, SheetContainers, SheetCharges, SheetExceptions, SheetKPIs},
		f.GetSheetList())

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 shipments
	assert.Equal(t, "Guía", rows[0][0])
	assert.Equal(t, "3001", rows[1][0])
	assert.Equal(t, "SI", rows[1][5])
	assert.Equal(t, "MISSING_LEDGER", rows[2][1])

	exc, err := f.GetRows(SheetExceptions)
	require.NoError(t, err)
	require.Len(t, exc, 2)
	assert.Equal(t, "SHIPMENT_ONLY_IN_CARRIER", exc[1][0])
	assert.Equal(t, "ERROR", exc[1][1])

	kpis, err := f.GetRows(SheetKPIs)
	require.NoError(t, err)
	assert.Equal(t, "Naviera", kpis[0][0])
	assert.Equal(t, "ONE", kpis[0][1])
}

func TestBuildWorkbookEmptyResult(t *testing.T) {
	raw, err := BuildWorkbook(&recon.Result{}, recon.KPIReport{Carrier: "ONE"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

func TestBuildKPIPDF(t *testing.T) {
	_, kpi := sampleResult()

	raw, err := BuildKPIPDF(kpi, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
	assert.Greater(t, len(raw), 500)
}
