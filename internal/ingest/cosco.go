package ingest

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	recon "freight-audit/internal/recon/domain"
)

// COSCOParser reads COSCO invoice exports, which spread invoice tables over
// several sheets and pad them with cover pages. Every sheet that resolves
// invoice columns contributes lines; the rest are skipped with a warning.
type COSCOParser struct{}

func (p *COSCOParser) Name() string { return "COSCO" }

func (p *COSCOParser) Sniff(path string) SniffReport {
	report := SniffReport{OK: true}
	f, err := excelize.OpenFile(path)
	if err != nil {
		report.errorf("open workbook: %v", err)
		return report
	}
	defer f.Close()

	report.Sheets = f.GetSheetList()
	usable := 0
	for _, sheet := range report.Sheets {
		if sniffCarrierSheet(f, sheet, &report) {
			usable++
			if report.SheetUsed == "" {
				report.SheetUsed = sheet
			}
		}
	}
	if usable == 0 {
		report.errorf("no sheet has recognizable invoice columns")
	}
	return report
}

func (p *COSCOParser) Parse(path string) ([]recon.CarrierLine, *ParseStats, error) {
	stats := &ParseStats{}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, stats, fmt.Errorf("ingest: open COSCO workbook: %w", err)
	}
	defer f.Close()

	var lines []recon.CarrierLine
	parsed := 0
	for _, sheet := range f.GetSheetList() {
		sheetLines, err := parseCarrierSheet(f, sheet, stats)
		if errors.Is(err, errNoUsableColumns) {
			stats.warnf("sheet %q skipped: no invoice columns", sheet)
			continue
		}
		if err != nil {
			return nil, stats, err
		}
		lines = append(lines, sheetLines...)
		parsed++
	}
	if parsed == 0 {
		return nil, stats, fmt.Errorf("ingest: COSCO workbook has no parsable invoice sheet")
	}
	return lines, stats, nil
}
