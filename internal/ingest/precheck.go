package ingest

import "fmt"

// IssueLevel grades a precheck finding.
type IssueLevel string

const (
	LevelWarn  IssueLevel = "WARN"
	LevelError IssueLevel = "ERROR"
)

// Issue is one precheck finding, attributed to the file that caused it.
type Issue struct {
	Source  string // "ledger" or "carrier"
	Level   IssueLevel
	Message string
}

// Report is the outcome of a precheck. OK means both files look parsable;
// warnings alone never block a run.
type Report struct {
	Carrier string
	OK      bool
	Issues  []Issue
}

// Precheck inspects both input workbooks before a run is queued, so that a
// structurally broken upload is rejected immediately instead of failing
// minutes later inside a worker.
func Precheck(carrier, ledgerPath, carrierPath string) Report {
	report := Report{Carrier: carrier, OK: true}

	ledgerSniff := NewLedgerParser().Sniff(ledgerPath)
	report.merge("ledger", ledgerSniff)

	parser, err := CarrierParserFor(carrier)
	if err != nil {
		report.OK = false
		report.Issues = append(report.Issues, Issue{
			Source:  "carrier",
			Level:   LevelError,
			Message: fmt.Sprintf("unsupported carrier %q", carrier),
		})
		return report
	}
	report.merge("carrier", parser.Sniff(carrierPath))
	return report
}

func (r *Report) merge(source string, sniff SniffReport) {
	if !sniff.OK {
		r.OK = false
	}
	for _, msg := range sniff.Errors {
		r.Issues = append(r.Issues, Issue{Source: source, Level: LevelError, Message: msg})
	}
	for _, msg := range sniff.Warnings {
		r.Issues = append(r.Issues, Issue{Source: source, Level: LevelWarn, Message: msg})
	}
}
