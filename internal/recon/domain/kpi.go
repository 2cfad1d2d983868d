package recon

import "strings"

// ComputeKPIs folds summary rows into run-level counters and totals. It is a
// pure fold: no shared state, decimal-exact sums. MISSING_LEDGER rows count
// only in their own bucket, never as an amount mismatch, so a shipment is
// never counted twice.
func ComputeKPIs(carrier string, summaries []Summary) KPIReport {
	report := KPIReport{Carrier: strings.ToUpper(strings.TrimSpace(carrier))}

	for _, s := range summaries {
		report.TotalShipments++
		report.TotalLedger = report.TotalLedger.Add(s.LedgerTotal)
		report.TotalCarrier = report.TotalCarrier.Add(s.CarrierTotal)

		if s.WithinTolerance {
			report.ShipmentsOK++
		} else {
			report.ShipmentsNotOK++
		}
		if s.Status == StatusOpen {
			report.ShipmentsOpen++
		}

		if s.Status == StatusMissingLedger {
			report.MissingLedger++
			continue
		}
		if s.CarrierTotal.IsZero() && s.LedgerTotal.IsPositive() {
			report.MissingCarrier++
			continue
		}
		if !s.WithinTolerance && s.LedgerTotal.IsPositive() && s.CarrierTotal.IsPositive() {
			report.AmountMismatched++
		}
	}

	report.GlobalDifference = report.TotalLedger.Sub(report.TotalCarrier)
	if report.TotalShipments > 0 {
		report.PercentOK = float64(report.ShipmentsOK) / float64(report.TotalShipments) * 100
	}
	return report
}
