package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	recon "freight-audit/internal/recon/domain"
)

// BuildKPIPDF renders the one-page KPI summary for a run.
func BuildKPIPDF(kpi recon.KPIReport, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Freight Billing Audit")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Carrier: %s", kpi.Carrier))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, "Indicator", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)

	rows := []struct {
		label string
		value string
	}{
		{"Total shipments", fmt.Sprintf("%d", kpi.TotalShipments)},
		{"Shipments OK", fmt.Sprintf("%d", kpi.ShipmentsOK)},
		{"Shipments with differences", fmt.Sprintf("%d", kpi.ShipmentsNotOK)},
		{"Open shipments", fmt.Sprintf("%d", kpi.ShipmentsOpen)},
		{"Only in carrier invoice", fmt.Sprintf("%d", kpi.MissingLedger)},
		{"Only in ledger", fmt.Sprintf("%d", kpi.MissingCarrier)},
		{"Amount mismatches", fmt.Sprintf("%d", kpi.AmountMismatched)},
		{"Ledger total", kpi.TotalLedger.StringFixed(2)},
		{"Carrier total", kpi.TotalCarrier.StringFixed(2)},
		{"Global difference", kpi.GlobalDifference.StringFixed(2)},
		{"% OK", fmt.Sprintf("%.2f", kpi.PercentOK)},
	}
	for _, r := range rows {
		pdf.CellFormat(90, 6, r.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, r.value, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
