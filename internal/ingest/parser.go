// Package ingest adapts spreadsheet exports into the normalized records the
// reconciliation core consumes. Parsers perform identifier canonicalization,
// decimal parsing and charge last-action deduplication, so the core never
// sees raw cells. Structural problems (missing required columns) are fatal;
// dirty cells and droppable rows only produce warnings.
package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"freight-audit/internal/money"
	"freight-audit/internal/normalize"
	recon "freight-audit/internal/recon/domain"
)

// ErrUnsupportedCarrier is returned for a carrier without a parser.
var ErrUnsupportedCarrier = errors.New("ingest: unsupported carrier")

// CarrierParser turns one carrier invoice workbook into normalized lines.
type CarrierParser interface {
	Name() string
	Sniff(path string) SniffReport
	Parse(path string) ([]recon.CarrierLine, *ParseStats, error)
}

// CarrierParserFor selects the parser for a carrier name.
func CarrierParserFor(name string) (CarrierParser, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ONE":
		return &ONEParser{}, nil
	case "COSCO":
		return &COSCOParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCarrier, name)
	}
}

// ParseStats reports what a full parse read, skipped and found suspicious.
type ParseStats struct {
	RowsRead    int
	RowsSkipped int
	Warnings    []string
}

func (s *ParseStats) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// SniffReport is the result of a fast header-only inspection, used by the
// precheck before any heavy parsing starts.
type SniffReport struct {
	OK        bool
	Sheets    []string
	SheetUsed string
	Errors    []string
	Warnings  []string
}

func (r *SniffReport) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.OK = false
}

func (r *SniffReport) warnOnly(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

var timeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006 15:04",
	"02-01-2006",
}

// parseCellTime converts a formatted cell to a timestamp. Excel serial
// numbers are converted through excelize; anything unparsable reports false
// and the zero time, which sorts lowest during resolution.
func parseCellTime(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// suspectAmount reports whether a cell looks like it carried a value the
// money parser could not recover (a nonzero digit present, parsed as zero).
func suspectAmount(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	if !money.Parse(s).IsZero() {
		return false
	}
	for _, r := range s {
		if r >= '1' && r <= '9' {
			return true
		}
	}
	return false
}

// statusFromText maps the free-text ledger status to the enum. Only the
// exact closed token counts as CLOSED.
func statusFromText(value string) recon.Status {
	switch normalize.UpperClean(value) {
	case "CERRADA", "CLOSED":
		return recon.StatusClosed
	default:
		return recon.StatusOpen
	}
}

// actionFromText maps the free-text charge action to the enum.
func actionFromText(value string) recon.ChargeAction {
	switch normalize.UpperClean(value) {
	case "ELIMINAR", "REMOVE", "REMOVED", "DELETE":
		return recon.ActionRemove
	default:
		return recon.ActionKeep
	}
}
