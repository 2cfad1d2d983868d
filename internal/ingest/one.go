package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	recon "freight-audit/internal/recon/domain"
)

// ONEParser reads Ocean Network Express invoice exports. The invoice table
// lives on the first sheet.
type ONEParser struct{}

func (p *ONEParser) Name() string { return "ONE" }

func (p *ONEParser) Sniff(path string) SniffReport {
	report := SniffReport{OK: true}
	f, err := excelize.OpenFile(path)
	if err != nil {
		report.errorf("open workbook: %v", err)
		return report
	}
	defer f.Close()

	report.Sheets = f.GetSheetList()
	if len(report.Sheets) == 0 {
		report.errorf("workbook has no sheets")
		return report
	}
	report.SheetUsed = report.Sheets[0]
	if !sniffCarrierSheet(f, report.SheetUsed, &report) {
		report.errorf("sheet %q has no recognizable invoice columns", report.SheetUsed)
	}
	return report
}

func (p *ONEParser) Parse(path string) ([]recon.CarrierLine, *ParseStats, error) {
	stats := &ParseStats{}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, stats, fmt.Errorf("ingest: open ONE workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, stats, fmt.Errorf("ingest: ONE workbook has no sheets")
	}
	lines, err := parseCarrierSheet(f, sheets[0], stats)
	if err != nil {
		return nil, stats, err
	}
	return lines, stats, nil
}
