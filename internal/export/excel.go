// Package export renders reconciliation results into the workbook and PDF
// artifacts analysts download.
package export

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	recon "freight-audit/internal/recon/domain"
)

// Sheet names of the audit workbook, in download order.
const (
	SheetSummary    = "Resumen"
	SheetContainers = "Contenedores"
	SheetCharges    = "Cargos"
	SheetExceptions = "Excepciones"
	SheetKPIs       = "KPIs"
)

// BuildWorkbook renders the full audit workbook for one run.
func BuildWorkbook(res *recon.Result, kpi recon.KPIReport) ([]byte, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetSummary)
	f.NewSheet(SheetContainers)
	f.NewSheet(SheetCharges)
	f.NewSheet(SheetExceptions)
	f.NewSheet(SheetKPIs)

	writeSummarySheet(f, res.Summaries)
	writeContainerSheet(f, res.Containers)
	writeChargeSheet(f, res.Charges)
	writeExceptionSheet(f, res.Exceptions)
	writeKPISheet(f, kpi)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, summaries []recon.Summary) {
	headers := []string{"Guía", "Estado", "Total FILS", "Total Naviera", "Diferencia", "Dentro de Tolerancia", "Naviera", "Hoja Origen"}
	writeHeader(f, SheetSummary, headers)
	for i, s := range summaries {
		row := i + 2
		_ = f.SetCellValue(SheetSummary, cellRef(1, row), s.ShipmentID)
		_ = f.SetCellValue(SheetSummary, cellRef(2, row), string(s.Status))
		_ = f.SetCellValue(SheetSummary, cellRef(3, row), s.LedgerTotal.InexactFloat64())
		_ = f.SetCellValue(SheetSummary, cellRef(4, row), s.CarrierTotal.InexactFloat64())
		_ = f.SetCellValue(SheetSummary, cellRef(5, row), s.Difference.InexactFloat64())
		_ = f.SetCellValue(SheetSummary, cellRef(6, row), boolMark(s.WithinTolerance))
		_ = f.SetCellValue(SheetSummary, cellRef(7, row), s.Carrier)
		_ = f.SetCellValue(SheetSummary, cellRef(8, row), s.CarrierSource)
	}
}

func writeContainerSheet(f *excelize.File, containers []recon.ContainerDetail) {
	headers := []string{"Guía", "Contenedor", "Ruta", "Flete", "Extras", "Total", "Naviera"}
	writeHeader(f, SheetContainers, headers)
	for i, c := range containers {
		row := i + 2
		_ = f.SetCellValue(SheetContainers, cellRef(1, row), c.ShipmentID)
		_ = f.SetCellValue(SheetContainers, cellRef(2, row), c.ContainerID)
		_ = f.SetCellValue(SheetContainers, cellRef(3, row), c.Route)
		_ = f.SetCellValue(SheetContainers, cellRef(4, row), c.Freight.InexactFloat64())
		_ = f.SetCellValue(SheetContainers, cellRef(5, row), c.Extras.InexactFloat64())
		_ = f.SetCellValue(SheetContainers, cellRef(6, row), c.Total.InexactFloat64())
		_ = f.SetCellValue(SheetContainers, cellRef(7, row), c.Carrier)
	}
}

func writeChargeSheet(f *excelize.File, charges []recon.ChargeDetail) {
	headers := []string{"Guía", "Contenedor", "Cargo", "Monto", "Origen", "Naviera"}
	writeHeader(f, SheetCharges, headers)
	for i, c := range charges {
		row := i + 2
		_ = f.SetCellValue(SheetCharges, cellRef(1, row), c.ShipmentID)
		_ = f.SetCellValue(SheetCharges, cellRef(2, row), c.ContainerID)
		_ = f.SetCellValue(SheetCharges, cellRef(3, row), c.ChargeKey)
		_ = f.SetCellValue(SheetCharges, cellRef(4, row), c.Amount.InexactFloat64())
		_ = f.SetCellValue(SheetCharges, cellRef(5, row), string(c.Origin))
		_ = f.SetCellValue(SheetCharges, cellRef(6, row), c.Carrier)
	}
}

func writeExceptionSheet(f *excelize.File, exceptions []recon.Exception) {
	headers := []string{"Tipo", "Severidad", "Guía", "Contenedor", "Detalle", "Naviera"}
	writeHeader(f, SheetExceptions, headers)
	for i, e := range exceptions {
		row := i + 2
		_ = f.SetCellValue(SheetExceptions, cellRef(1, row), string(e.Kind))
		_ = f.SetCellValue(SheetExceptions, cellRef(2, row), string(e.Severity))
		_ = f.SetCellValue(SheetExceptions, cellRef(3, row), e.ShipmentID)
		_ = f.SetCellValue(SheetExceptions, cellRef(4, row), e.ContainerID)
		_ = f.SetCellValue(SheetExceptions, cellRef(5, row), e.Message)
		_ = f.SetCellValue(SheetExceptions, cellRef(6, row), e.Carrier)
	}
}

func writeKPISheet(f *excelize.File, kpi recon.KPIReport) {
	rows := []struct {
		label string
		value any
	}{
		{"Naviera", kpi.Carrier},
		{"Guías Totales", kpi.TotalShipments},
		{"Guías OK", kpi.ShipmentsOK},
		{"Guías con Diferencias", kpi.ShipmentsNotOK},
		{"Guías Abiertas", kpi.ShipmentsOpen},
		{"Solo en Naviera", kpi.MissingLedger},
		{"Solo en FILS", kpi.MissingCarrier},
		{"Montos Discrepantes", kpi.AmountMismatched},
		{"Total FILS", kpi.TotalLedger.InexactFloat64()},
		{"Total Naviera", kpi.TotalCarrier.InexactFloat64()},
		{"Diferencia Global", kpi.GlobalDifference.InexactFloat64()},
		{"% OK", kpi.PercentOK},
	}
	for i, r := range rows {
		_ = f.SetCellValue(SheetKPIs, cellRef(1, i+1), r.label)
		_ = f.SetCellValue(SheetKPIs, cellRef(2, i+1), r.value)
	}
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		_ = f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
}

func cellRef(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func boolMark(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}
