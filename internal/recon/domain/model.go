// Package recon is the reconciliation core: it compares the operational
// ledger's view of shipment billing against the carrier invoice feed and
// classifies every discrepancy. All entities are built fresh per run and
// never mutated after the run emits its result.
package recon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status classifies a shipment on the ledger side.
type Status string

const (
	StatusClosed        Status = "CLOSED"
	StatusOpen          Status = "OPEN"
	StatusMissingLedger Status = "MISSING_LEDGER"
)

// ChargeAction is the last known lifecycle action of an itemized charge.
type ChargeAction string

const (
	ActionKeep   ChargeAction = "KEEP"
	ActionRemove ChargeAction = "REMOVE"
)

// NoIDPrefix marks synthetic shipment keys for carrier lines that could only
// be identified by container and matched no ledger shipment.
const NoIDPrefix = "(NO_ID)"

// ChargeEvent is one itemized charge, already deduplicated to the latest
// action per (shipment, charge key) by the ingestion adapter.
type ChargeEvent struct {
	Key        string // explicit charge id ("ID:<id>") if present, else upper-cased name
	Name       string
	Currency   string
	Amount     decimal.Decimal
	LastAction ChargeAction
}

// LedgerEvent is one row observed in the operational report for a shipment.
type LedgerEvent struct {
	ShipmentID  string
	ContainerID string
	Status      Status    // CLOSED or OPEN
	EventTime   time.Time // zero value sorts lowest
	BaseAmount  decimal.Decimal
	// Legacy exports carry freight/extras instead of a base tariff amount.
	FreightAmount decimal.Decimal
	ExtrasAmount  decimal.Decimal
	Route         string
	Charges       []ChargeEvent
}

// CarrierLine is one row from the carrier's invoice feed. ShipmentID may be
// empty; ContainerID is then required. A line with both empty is invalid and
// must be dropped before matching.
type CarrierLine struct {
	ShipmentID  string
	ContainerID string
	Amount      decimal.Decimal
	ChargeID    string
	ChargeLabel string
	Route       string
	SourceSheet string
}

// Itemized reports whether the line represents a single itemized charge
// rather than a lump total.
func (l CarrierLine) Itemized() bool {
	return l.ChargeID != "" || l.ChargeLabel != ""
}

// ChargeKey returns the stable charge identity for the line.
func (l CarrierLine) ChargeKey() string {
	if id := strings.TrimSpace(l.ChargeID); id != "" {
		return "ID:" + id
	}
	if label := strings.TrimSpace(l.ChargeLabel); label != "" {
		return strings.ToUpper(label)
	}
	return "CHARGE"
}

// MakeChargeKey builds the charge identity from an explicit id and a name,
// preferring the id. Resolved once at ingestion, never re-derived ad hoc.
func MakeChargeKey(chargeID, name string) string {
	if id := strings.TrimSpace(chargeID); id != "" {
		return "ID:" + id
	}
	return strings.ToUpper(strings.TrimSpace(name))
}

// Summary is one output row per matched or unmatched shipment.
type Summary struct {
	ShipmentID      string
	Status          Status
	LedgerTotal     decimal.Decimal
	CarrierTotal    decimal.Decimal
	Difference      decimal.Decimal
	WithinTolerance bool
	Carrier         string
	CarrierSource   string
}

// ContainerDetail is the container-level audit row for a shipment.
type ContainerDetail struct {
	ShipmentID  string
	ContainerID string
	Route       string
	Freight     decimal.Decimal
	Extras      decimal.Decimal
	Total       decimal.Decimal
	Carrier     string
}

// Origin tells which side a charge detail row came from.
type Origin string

const (
	OriginLedger  Origin = "LEDGER"
	OriginCarrier Origin = "CARRIER"
)

// ChargeDetail is one charge-level audit row.
type ChargeDetail struct {
	ShipmentID  string
	ContainerID string
	ChargeKey   string
	Amount      decimal.Decimal
	Origin      Origin
	Carrier     string
}

// Severity grades an exception.
type Severity string

const (
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// ExceptionKind is the fixed mismatch taxonomy.
type ExceptionKind string

const (
	ExcShipmentOnlyInCarrier ExceptionKind = "SHIPMENT_ONLY_IN_CARRIER"
	ExcShipmentOnlyInLedger  ExceptionKind = "SHIPMENT_ONLY_IN_LEDGER"
	ExcShipmentNotClosed     ExceptionKind = "SHIPMENT_NOT_CLOSED"
	ExcAmountMismatch        ExceptionKind = "AMOUNT_MISMATCH"
	ExcChargeMismatch        ExceptionKind = "CHARGE_MISMATCH"
	ExcChargeOnlyInLedger    ExceptionKind = "CHARGE_ONLY_IN_LEDGER"
	ExcChargeOnlyInCarrier   ExceptionKind = "CHARGE_ONLY_IN_CARRIER"
)

// Exception is one data finding. Exceptions are output, not program errors;
// they never abort a run.
type Exception struct {
	Kind        ExceptionKind
	ShipmentID  string
	ContainerID string
	Message     string
	Severity    Severity
	Carrier     string
}

// Result bundles everything one reconciliation run emits.
type Result struct {
	Summaries  []Summary
	Containers []ContainerDetail
	Charges    []ChargeDetail
	Exceptions []Exception
}

// KPIReport folds the summary rows into run-level counters and totals.
type KPIReport struct {
	Carrier          string
	TotalShipments   int
	ShipmentsOK      int
	ShipmentsNotOK   int
	ShipmentsOpen    int
	MissingLedger    int
	MissingCarrier   int
	AmountMismatched int // both sides present, outside tolerance
	TotalLedger      decimal.Decimal
	TotalCarrier     decimal.Decimal
	GlobalDifference decimal.Decimal
	PercentOK        float64
}
