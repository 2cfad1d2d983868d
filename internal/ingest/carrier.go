package ingest

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"freight-audit/internal/money"
	"freight-audit/internal/normalize"
	recon "freight-audit/internal/recon/domain"
)

// errNoUsableColumns marks a sheet that carries no invoice table. COSCO
// workbooks mix invoice sheets with cover pages, so this is skippable there
// while ONE treats it as fatal.
var errNoUsableColumns = errors.New("ingest: no usable invoice columns")

var carrierColumns = []columnSpec{
	{name: "shipment", synonyms: []string{"numero guia", "no documento", "documento", "guia", "referencia", "reference", "waybill", "bl"}},
	{name: "container", synonyms: []string{"contenedor", "container", "cntr", "equipo"}},
	{name: "amount", synonyms: []string{"total naviera", "total facturado", "total", "monto", "importe", "amount"}, required: true},
	{name: "chargeID", synonyms: []string{"cargo id", "id cargo", "charge id", "codigo cargo"}},
	{name: "charge", synonyms: []string{"tipo cargo", "cargo", "concepto", "descripcion", "description", "charge"}},
	{name: "route", synonyms: []string{"ruta", "servicio", "service", "route", "trayecto"}},
}

// parseCarrierSheet reads one invoice sheet into normalized lines. Rows with
// neither shipment nor container identifier are dropped and counted.
func parseCarrierSheet(f *excelize.File, sheet string, stats *ParseStats) ([]recon.CarrierLine, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	headerIdx, headers := findHeaderRow(rows, []string{"total"})
	cols := mapColumns(headers, carrierColumns)
	if cols["amount"] < 0 || (cols["shipment"] < 0 && cols["container"] < 0) {
		return nil, fmt.Errorf("%w: sheet %q", errNoUsableColumns, sheet)
	}

	var lines []recon.CarrierLine
	for _, row := range rows[headerIdx+1:] {
		ship := normalize.ShipmentID(cell(row, cols["shipment"]))
		cont := normalize.ContainerID(cell(row, cols["container"]))
		if ship == "" && cont == "" {
			stats.RowsSkipped++
			continue
		}
		rawAmt := cell(row, cols["amount"])
		if suspectAmount(rawAmt) {
			stats.warnf("sheet %q: unparsable amount %q for %s%s", sheet, rawAmt, ship, cont)
		}
		lines = append(lines, recon.CarrierLine{
			ShipmentID:  ship,
			ContainerID: cont,
			Amount:      money.Parse(rawAmt),
			ChargeID:    normalize.Text(cell(row, cols["chargeID"])),
			ChargeLabel: normalize.Text(cell(row, cols["charge"])),
			Route:       normalize.Text(cell(row, cols["route"])),
			SourceSheet: sheet,
		})
		stats.RowsRead++
	}
	return lines, nil
}

func sniffCarrierSheet(f *excelize.File, sheet string, report *SniffReport) bool {
	rows, err := f.GetRows(sheet)
	if err != nil {
		report.errorf("read sheet %q: %v", sheet, err)
		return false
	}
	_, headers := findHeaderRow(rows, []string{"total"})
	cols := mapColumns(headers, carrierColumns)
	if cols["amount"] < 0 {
		return false
	}
	if cols["shipment"] < 0 && cols["container"] < 0 {
		return false
	}
	if cols["shipment"] < 0 {
		report.warnOnly("sheet %q has no shipment column, matching falls back to containers", sheet)
	}
	return true
}
