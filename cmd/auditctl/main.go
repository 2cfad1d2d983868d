// auditctl runs a freight billing reconciliation offline: no server, no
// database, just two workbooks in and the audit artifacts out.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"freight-audit/internal/export"
	"freight-audit/internal/ingest"
	recon "freight-audit/internal/recon/domain"
)

var (
	flagCarrier   string
	flagLedger    string
	flagInvoice   string
	flagOut       string
	flagTolerance string
)

func main() {
	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Reconcile a ledger export against a carrier invoice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Parse, reconcile and write the audit workbook and KPI pdf",
		RunE:  runAudit,
	}
	runCmd.Flags().StringVar(&flagCarrier, "carrier", "", "carrier name (ONE, COSCO)")
	runCmd.Flags().StringVar(&flagLedger, "ledger", "", "ledger workbook path")
	runCmd.Flags().StringVar(&flagInvoice, "invoice", "", "carrier invoice workbook path")
	runCmd.Flags().StringVar(&flagOut, "out", ".", "output directory")
	runCmd.Flags().StringVar(&flagTolerance, "tolerance", "1.00", "amount tolerance")
	_ = runCmd.MarkFlagRequired("carrier")
	_ = runCmd.MarkFlagRequired("ledger")
	_ = runCmd.MarkFlagRequired("invoice")

	precheckCmd := &cobra.Command{
		Use:   "precheck",
		Short: "Inspect both workbooks without running the reconciliation",
		RunE:  runPrecheck,
	}
	precheckCmd.Flags().StringVar(&flagCarrier, "carrier", "", "carrier name (ONE, COSCO)")
	precheckCmd.Flags().StringVar(&flagLedger, "ledger", "", "ledger workbook path")
	precheckCmd.Flags().StringVar(&flagInvoice, "invoice", "", "carrier invoice workbook path")
	_ = precheckCmd.MarkFlagRequired("carrier")
	_ = precheckCmd.MarkFlagRequired("ledger")
	_ = precheckCmd.MarkFlagRequired("invoice")

	root.AddCommand(runCmd, precheckCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runAudit(cmd *cobra.Command, _ []string) error {
	tolerance, err := decimal.NewFromString(flagTolerance)
	if err != nil {
		return fmt.Errorf("invalid tolerance %q", flagTolerance)
	}

	events, ledgerStats, err := ingest.NewLedgerParser().Parse(flagLedger)
	if err != nil {
		return err
	}
	parser, err := ingest.CarrierParserFor(flagCarrier)
	if err != nil {
		return err
	}
	lines, carrierStats, err := parser.Parse(flagInvoice)
	if err != nil {
		return err
	}
	for _, warn := range append(ledgerStats.Warnings, carrierStats.Warnings...) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", warn)
	}

	res, err := recon.Reconcile(flagCarrier, events, lines, tolerance)
	if err != nil {
		return err
	}
	kpi := recon.ComputeKPIs(flagCarrier, res.Summaries)

	if err := os.MkdirAll(flagOut, 0o755); err != nil {
		return err
	}
	workbook, err := export.BuildWorkbook(res, kpi)
	if err != nil {
		return err
	}
	reportPath := filepath.Join(flagOut, "report.xlsx")
	if err := os.WriteFile(reportPath, workbook, 0o644); err != nil {
		return err
	}
	pdf, err := export.BuildKPIPDF(kpi, time.Now())
	if err != nil {
		return err
	}
	pdfPath := filepath.Join(flagOut, "kpis.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "carrier:            %s\n", kpi.Carrier)
	fmt.Fprintf(out, "shipments:          %d (ok %d, with differences %d)\n", kpi.TotalShipments, kpi.ShipmentsOK, kpi.ShipmentsNotOK)
	fmt.Fprintf(out, "only in invoice:    %d\n", kpi.MissingLedger)
	fmt.Fprintf(out, "only in ledger:     %d\n", kpi.MissingCarrier)
	fmt.Fprintf(out, "ledger total:       %s\n", kpi.TotalLedger.StringFixed(2))
	fmt.Fprintf(out, "carrier total:      %s\n", kpi.TotalCarrier.StringFixed(2))
	fmt.Fprintf(out, "global difference:  %s\n", kpi.GlobalDifference.StringFixed(2))
	fmt.Fprintf(out, "exceptions:         %d\n", len(res.Exceptions))
	fmt.Fprintf(out, "report:             %s\n", reportPath)
	fmt.Fprintf(out, "kpis:               %s\n", pdfPath)
	return nil
}

func runPrecheck(cmd *cobra.Command, _ []string) error {
	report := ingest.Precheck(flagCarrier, flagLedger, flagInvoice)
	out := cmd.OutOrStdout()
	for _, issue := range report.Issues {
		fmt.Fprintf(out, "%-5s [%s] %s\n", issue.Level, issue.Source, issue.Message)
	}
	if !report.OK {
		return fmt.Errorf("precheck failed for carrier %s", report.Carrier)
	}
	fmt.Fprintln(out, "ok")
	return nil
}
