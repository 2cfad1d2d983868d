package recon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeKPIsBuckets(t *testing.T) {
	summaries := []Summary{
		{ShipmentID: "1", Status: StatusClosed, LedgerTotal: dec("100"), CarrierTotal: dec("100"), WithinTolerance: true},
		{ShipmentID: "2", Status: StatusOpen, LedgerTotal: dec("200"), CarrierTotal: dec("150"), Difference: dec("50"), WithinTolerance: false},
		{ShipmentID: "3", Status: StatusClosed, LedgerTotal: dec("300"), CarrierTotal: dec("0"), Difference: dec("300"), WithinTolerance: false},
		{ShipmentID: "4", Status: StatusMissingLedger, LedgerTotal: dec("0"), CarrierTotal: dec("400"), WithinTolerance: false},
	}

	kpi := ComputeKPIs("one", summaries)

	assert.Equal(t, "ONE", kpi.Carrier)
	assert.Equal(t, 4, kpi.TotalShipments)
	assert.Equal(t, 1, kpi.ShipmentsOK)
	assert.Equal(t, 3, kpi.ShipmentsNotOK)
	assert.Equal(t, 1, kpi.ShipmentsOpen)
	assert.Equal(t, 1, kpi.MissingLedger)
	assert.Equal(t, 1, kpi.MissingCarrier)
	assert.Equal(t, 1, kpi.AmountMismatched, "missing rows must not count as mismatches")
	assert.InDelta(t, 25.0, kpi.PercentOK, 0.0001)
}

func TestComputeKPIsSumsAreExact(t *testing.T) {
	summaries := []Summary{
		{ShipmentID: "1", LedgerTotal: dec("0.10"), CarrierTotal: dec("0.30"), WithinTolerance: true},
		{ShipmentID: "2", LedgerTotal: dec("0.20"), CarrierTotal: dec("0.30"), WithinTolerance: true},
		{ShipmentID: "3", LedgerTotal: dec("0.30"), CarrierTotal: dec("0.30"), WithinTolerance: true},
	}

	kpi := ComputeKPIs("ONE", summaries)

	wantLedger := decimal.Zero
	wantCarrier := decimal.Zero
	for _, s := range summaries {
		wantLedger = wantLedger.Add(s.LedgerTotal)
		wantCarrier = wantCarrier.Add(s.CarrierTotal)
	}
	assert.True(t, kpi.TotalLedger.Equal(wantLedger))
	assert.True(t, kpi.TotalCarrier.Equal(wantCarrier))
	assert.True(t, kpi.GlobalDifference.Equal(dec("-0.30")))
}

func TestComputeKPIsEmpty(t *testing.T) {
	kpi := ComputeKPIs("ONE", nil)
	assert.Zero(t, kpi.TotalShipments)
	assert.Zero(t, kpi.PercentOK)
	assert.True(t, kpi.TotalLedger.IsZero())
}
