package recon

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LedgerBase returns the base tariff amount for an event. Legacy exports
// carry freight/extras instead of a base amount; a zero base falls back to
// their sum so both generations of the report produce the same total.
func LedgerBase(ev LedgerEvent) decimal.Decimal {
	if !ev.BaseAmount.IsZero() {
		return ev.BaseAmount
	}
	return ev.FreightAmount.Add(ev.ExtrasAmount)
}

// LedgerChargeTotals groups the event's itemized charges by charge key,
// excluding charges whose last action was REMOVE. The ingestion adapter
// already filters removals; re-checking here keeps removed charges out even
// when a caller hands over an unfiltered list.
func LedgerChargeTotals(ev LedgerEvent) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(ev.Charges))
	for _, c := range ev.Charges {
		if c.LastAction == ActionRemove {
			continue
		}
		key := c.Key
		if key == "" {
			key = MakeChargeKey("", c.Name)
		}
		if key == "" {
			continue
		}
		totals[key] = totals[key].Add(c.Amount)
	}
	return totals
}

// LedgerTotal is the total billable amount the ledger expects for a
// shipment: base tariff plus all current itemized charges.
func LedgerTotal(ev LedgerEvent) decimal.Decimal {
	total := LedgerBase(ev)
	for _, amount := range LedgerChargeTotals(ev) {
		total = total.Add(amount)
	}
	return total
}

// CarrierTotal sums the invoice amounts of a set of matched carrier lines.
func CarrierTotal(lines []CarrierLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// CarrierChargeTotals groups carrier line amounts by charge key. Lines
// without an itemized charge fold into the generic "CHARGE" bucket.
func CarrierChargeTotals(lines []CarrierLine) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		key := l.ChargeKey()
		totals[key] = totals[key].Add(l.Amount)
	}
	return totals
}

// sortedKeys returns map keys in a stable order.
func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
