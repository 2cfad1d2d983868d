package ingest

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"freight-audit/internal/money"
	"freight-audit/internal/normalize"
	recon "freight-audit/internal/recon/domain"
)

// Sheet names of the operational ledger workbook. Lookup is accent and
// case insensitive, so "Guia" and "Guía" both resolve.
const (
	SheetShipments  = "Guía"
	SheetContainers = "Contenedor"
	SheetCharges    = "Cargos Adicionales"
)

var shipmentColumns = []columnSpec{
	{name: "shipment", synonyms: []string{"numero guia", "nro guia", "no guia", "guia", "waybill", "shipment"}, required: true},
	{name: "status", synonyms: []string{"estado", "status"}},
	{name: "date", synonyms: []string{"fecha", "date"}},
	{name: "route", synonyms: []string{"ruta", "route", "trayecto"}},
	{name: "base", synonyms: []string{"monto tarifa", "tarifa", "monto total", "monto", "total"}},
	{name: "freight", synonyms: []string{"flete", "freight"}},
	{name: "extras", synonyms: []string{"extras", "adicionales"}},
}

var containerColumns = []columnSpec{
	{name: "shipment", synonyms: []string{"numero guia", "nro guia", "no guia", "guia", "waybill", "shipment"}, required: true},
	{name: "container", synonyms: []string{"contenedor", "container", "cntr", "equipo"}, required: true},
	{name: "route", synonyms: []string{"ruta", "route", "trayecto"}},
	{name: "freight", synonyms: []string{"flete", "freight"}},
	{name: "extras", synonyms: []string{"extras", "adicionales"}},
}

var chargeColumns = []columnSpec{
	{name: "shipment", synonyms: []string{"numero guia", "nro guia", "no guia", "guia", "waybill", "shipment"}, required: true},
	{name: "chargeID", synonyms: []string{"cargo id", "id cargo", "charge id", "codigo cargo"}},
	{name: "charge", synonyms: []string{"cargo", "concepto", "charge", "descripcion"}, required: true},
	{name: "amount", synonyms: []string{"monto", "total", "importe", "amount"}, required: true},
	{name: "action", synonyms: []string{"accion", "action"}},
	{name: "date", synonyms: []string{"fecha", "date"}},
	{name: "currency", synonyms: []string{"moneda", "currency"}},
}

// LedgerParser reads the three-sheet operational ledger export: shipment
// billing events, container assignments and itemized extra charges.
type LedgerParser struct{}

func NewLedgerParser() *LedgerParser {
	return &LedgerParser{}
}

// Sniff inspects sheet presence and header structure without building events.
func (p *LedgerParser) Sniff(path string) SniffReport {
	report := SniffReport{OK: true}
	f, err := excelize.OpenFile(path)
	if err != nil {
		report.errorf("open workbook: %v", err)
		return report
	}
	defer f.Close()

	report.Sheets = f.GetSheetList()

	shipments := findSheet(f, SheetShipments)
	if shipments == "" {
		report.errorf("sheet %q not found", SheetShipments)
		return report
	}
	report.SheetUsed = shipments

	rows, err := f.GetRows(shipments)
	if err != nil {
		report.errorf("read sheet %q: %v", shipments, err)
		return report
	}
	_, headers := findHeaderRow(rows, []string{"guia"})
	cols := mapColumns(headers, shipmentColumns)
	if missing := missingRequired(cols, shipmentColumns); len(missing) > 0 {
		report.errorf("sheet %q is missing required columns: %v", shipments, missing)
	}
	if cols["base"] < 0 && cols["freight"] < 0 && cols["extras"] < 0 {
		report.errorf("sheet %q has no amount column", shipments)
	}

	if findSheet(f, SheetContainers) == "" {
		report.warnOnly("sheet %q not found, container detail will be empty", SheetContainers)
	}
	if findSheet(f, SheetCharges) == "" {
		report.warnOnly("sheet %q not found, charge comparison is skipped", SheetCharges)
	}
	return report
}

// Parse reads the workbook into ledger events. Every event of a shipment
// carries the shipment's container and deduplicated charges, so whichever
// event the resolver picks has the full picture.
func (p *LedgerParser) Parse(path string) ([]recon.LedgerEvent, *ParseStats, error) {
	stats := &ParseStats{}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, stats, fmt.Errorf("ingest: open ledger workbook: %w", err)
	}
	defer f.Close()

	events, order, err := p.parseShipments(f, stats)
	if err != nil {
		return nil, stats, err
	}

	containers, err := p.parseContainers(f, stats)
	if err != nil {
		return nil, stats, err
	}
	charges, err := p.parseCharges(f, stats)
	if err != nil {
		return nil, stats, err
	}

	// Shipments known only through a container assignment or a charge still
	// need a ledger presence, with zero billed amounts.
	for _, id := range mergeOrphanIDs(order, containers, charges) {
		stats.warnf("shipment %s appears only in auxiliary sheets", id)
		events = append(events, recon.LedgerEvent{ShipmentID: id, Status: recon.StatusOpen})
		order = append(order, id)
	}

	for i := range events {
		id := events[i].ShipmentID
		if c, ok := containers[id]; ok {
			events[i].ContainerID = c.containerID
			if events[i].Route == "" {
				events[i].Route = c.route
			}
			if events[i].FreightAmount.IsZero() {
				events[i].FreightAmount = c.freight
			}
			if events[i].ExtrasAmount.IsZero() {
				events[i].ExtrasAmount = c.extras
			}
		}
		events[i].Charges = charges[id]
	}
	return events, stats, nil
}

func (p *LedgerParser) parseShipments(f *excelize.File, stats *ParseStats) ([]recon.LedgerEvent, []string, error) {
	sheet := findSheet(f, SheetShipments)
	if sheet == "" {
		return nil, nil, fmt.Errorf("ingest: sheet %q not found", SheetShipments)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	headerIdx, headers := findHeaderRow(rows, []string{"guia"})
	cols := mapColumns(headers, shipmentColumns)
	if err := requireColumns(sheet, cols, shipmentColumns); err != nil {
		return nil, nil, err
	}
	if cols["base"] < 0 && cols["freight"] < 0 && cols["extras"] < 0 {
		return nil, nil, fmt.Errorf("ingest: sheet %q has no amount column", sheet)
	}

	var events []recon.LedgerEvent
	var order []string
	seen := make(map[string]bool)
	for _, row := range rows[headerIdx+1:] {
		id := normalize.ShipmentID(cell(row, cols["shipment"]))
		if id == "" {
			stats.RowsSkipped++
			continue
		}
		rawBase := cell(row, cols["base"])
		if suspectAmount(rawBase) {
			stats.warnf("shipment %s: unparsable amount %q", id, rawBase)
		}
		ev := recon.LedgerEvent{
			ShipmentID:    id,
			Status:        statusFromText(cell(row, cols["status"])),
			Route:         normalize.Text(cell(row, cols["route"])),
			BaseAmount:    money.Parse(rawBase),
			FreightAmount: money.Parse(cell(row, cols["freight"])),
			ExtrasAmount:  money.Parse(cell(row, cols["extras"])),
		}
		if t, ok := parseCellTime(cell(row, cols["date"])); ok {
			ev.EventTime = t
		}
		events = append(events, ev)
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
		stats.RowsRead++
	}
	return events, order, nil
}

type containerRow struct {
	containerID string
	route       string
	freight     decimal.Decimal
	extras      decimal.Decimal
}

// parseContainers keeps the last assignment per shipment. The export lists
// reassignments top to bottom, so last wins.
func (p *LedgerParser) parseContainers(f *excelize.File, stats *ParseStats) (map[string]containerRow, error) {
	out := make(map[string]containerRow)
	sheet := findSheet(f, SheetContainers)
	if sheet == "" {
		stats.warnf("sheet %q not found, container detail will be empty", SheetContainers)
		return out, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	headerIdx, headers := findHeaderRow(rows, []string{"guia", "contenedor"})
	cols := mapColumns(headers, containerColumns)
	if err := requireColumns(sheet, cols, containerColumns); err != nil {
		return nil, err
	}
	for _, row := range rows[headerIdx+1:] {
		id := normalize.ShipmentID(cell(row, cols["shipment"]))
		cont := normalize.ContainerID(cell(row, cols["container"]))
		if id == "" || cont == "" {
			stats.RowsSkipped++
			continue
		}
		out[id] = containerRow{
			containerID: cont,
			route:       normalize.Text(cell(row, cols["route"])),
			freight:     money.Parse(cell(row, cols["freight"])),
			extras:      money.Parse(cell(row, cols["extras"])),
		}
		stats.RowsRead++
	}
	return out, nil
}

// parseCharges deduplicates to the last action per (shipment, charge key)
// and drops charges whose last action removed them.
func (p *LedgerParser) parseCharges(f *excelize.File, stats *ParseStats) (map[string][]recon.ChargeEvent, error) {
	sheet := findSheet(f, SheetCharges)
	if sheet == "" {
		stats.warnf("sheet %q not found, charge comparison is skipped", SheetCharges)
		return map[string][]recon.ChargeEvent{}, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: read sheet %q: %w", sheet, err)
	}
	headerIdx, headers := findHeaderRow(rows, []string{"guia", "cargo"})
	cols := mapColumns(headers, chargeColumns)
	if err := requireColumns(sheet, cols, chargeColumns); err != nil {
		return nil, err
	}

	type chargeState struct {
		event recon.ChargeEvent
		at    time.Time
		seq   int
	}
	latest := make(map[string]map[string]chargeState)
	var shipOrder []string
	keyOrder := make(map[string][]string)
	seq := 0
	for _, row := range rows[headerIdx+1:] {
		id := normalize.ShipmentID(cell(row, cols["shipment"]))
		if id == "" {
			stats.RowsSkipped++
			continue
		}
		name := normalize.Text(cell(row, cols["charge"]))
		chargeID := normalize.Text(cell(row, cols["chargeID"]))
		key := recon.MakeChargeKey(chargeID, name)
		if key == "" {
			stats.RowsSkipped++
			continue
		}
		rawAmt := cell(row, cols["amount"])
		if suspectAmount(rawAmt) {
			stats.warnf("shipment %s charge %s: unparsable amount %q", id, key, rawAmt)
		}
		at, _ := parseCellTime(cell(row, cols["date"]))
		seq++
		state := chargeState{
			event: recon.ChargeEvent{
				Key:        key,
				Name:       name,
				Currency:   normalize.UpperClean(cell(row, cols["currency"])),
				Amount:     money.Parse(rawAmt),
				LastAction: actionFromText(cell(row, cols["action"])),
			},
			at:  at,
			seq: seq,
		}
		if latest[id] == nil {
			latest[id] = make(map[string]chargeState)
			shipOrder = append(shipOrder, id)
		}
		prev, ok := latest[id][key]
		if !ok {
			keyOrder[id] = append(keyOrder[id], key)
		}
		// Later timestamp wins; ties fall to file order.
		if !ok || state.at.After(prev.at) || (state.at.Equal(prev.at) && state.seq > prev.seq) {
			latest[id][key] = state
		}
		stats.RowsRead++
	}

	out := make(map[string][]recon.ChargeEvent, len(latest))
	for _, id := range shipOrder {
		for _, key := range keyOrder[id] {
			state := latest[id][key]
			if state.event.LastAction == recon.ActionRemove {
				continue
			}
			out[id] = append(out[id], state.event)
		}
	}
	return out, nil
}

// findSheet resolves a sheet by accent and case insensitive name.
func findSheet(f *excelize.File, want string) string {
	target := normalize.Header(want)
	for _, name := range f.GetSheetList() {
		if normalize.Header(name) == target {
			return name
		}
	}
	return ""
}

func mergeOrphanIDs(order []string, containers map[string]containerRow, charges map[string][]recon.ChargeEvent) []string {
	known := make(map[string]bool, len(order))
	for _, id := range order {
		known[id] = true
	}
	var orphans []string
	add := func(id string) {
		if !known[id] {
			known[id] = true
			orphans = append(orphans, id)
		}
	}
	for id := range containers {
		add(id)
	}
	for id := range charges {
		add(id)
	}
	sort.Strings(orphans)
	return orphans
}
