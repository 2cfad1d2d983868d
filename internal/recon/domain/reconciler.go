package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Reconcile is the sole public entry point of the core. It drives resolution,
// aggregation and matching for one batch (one ledger export plus one carrier
// export) and classifies every shipment in the union of both sides exactly
// once. The returned collections are complete even when exceptions were
// found; exceptions are the product's output, not failures.
func Reconcile(carrier string, events []LedgerEvent, lines []CarrierLine, tolerance decimal.Decimal) (*Result, error) {
	carrier = strings.ToUpper(strings.TrimSpace(carrier))
	if carrier == "" {
		return nil, ErrEmptyCarrier
	}
	if tolerance.IsNegative() {
		return nil, ErrNegativeTolerance
	}

	byShipment := make(map[string][]LedgerEvent)
	for _, ev := range events {
		if ev.ShipmentID == "" {
			continue
		}
		byShipment[ev.ShipmentID] = append(byShipment[ev.ShipmentID], ev)
	}

	resolved := make(map[string]Resolved, len(byShipment))
	for id, evs := range byShipment {
		r, err := ResolveLedger(evs)
		if err != nil {
			return nil, fmt.Errorf("resolve shipment %s: %w", id, err)
		}
		resolved[id] = r
	}

	matches := MatchCarrier(resolved, lines)

	keys := make([]string, 0, len(resolved)+len(matches))
	seen := make(map[string]struct{}, len(resolved)+len(matches))
	for id := range resolved {
		keys = append(keys, id)
		seen[id] = struct{}{}
	}
	for id := range matches {
		if _, ok := seen[id]; !ok {
			keys = append(keys, id)
		}
	}
	sort.Strings(keys)

	run := &runState{carrier: carrier, tolerance: tolerance, result: &Result{}}
	for _, key := range keys {
		r, hasLedger := resolved[key]
		m := matches[key]
		switch {
		case !hasLedger:
			run.classifyMissingLedger(key, m)
		case len(m.Lines) == 0:
			run.classifyMissingCarrier(key, r)
		default:
			run.classifyBothPresent(key, r, m)
		}
	}
	return run.result, nil
}

type runState struct {
	carrier   string
	tolerance decimal.Decimal
	result    *Result
}

func (s *runState) within(diff decimal.Decimal) bool {
	return diff.Abs().Cmp(s.tolerance) <= 0
}

func (s *runState) classifyMissingLedger(key string, m Match) {
	carrierTotal := CarrierTotal(m.Lines)

	shipmentID := key
	message := "shipment exists in carrier invoice but not in ledger"
	if strings.HasPrefix(key, NoIDPrefix) {
		shipmentID = ""
		message = fmt.Sprintf("carrier line had no shipment id; container %s matches no ledger shipment", m.ViaContainer)
	}
	s.addException(Exception{
		Kind:        ExcShipmentOnlyInCarrier,
		ShipmentID:  shipmentID,
		ContainerID: m.ViaContainer,
		Message:     message,
		Severity:    SeverityError,
	})

	s.result.Summaries = append(s.result.Summaries, Summary{
		ShipmentID:      key,
		Status:          StatusMissingLedger,
		LedgerTotal:     decimal.Zero,
		CarrierTotal:    carrierTotal,
		Difference:      carrierTotal.Neg(),
		WithinTolerance: false,
		Carrier:         s.carrier,
		CarrierSource:   firstSource(m.Lines),
	})
}

func (s *runState) classifyMissingCarrier(key string, r Resolved) {
	ledgerTotal := LedgerTotal(r.Event)

	s.addException(Exception{
		Kind:       ExcShipmentOnlyInLedger,
		ShipmentID: key,
		Message:    "shipment exists in ledger but not in carrier invoice",
		Severity:   SeverityError,
	})
	if r.Status == StatusOpen {
		s.addNotClosed(key, "")
	}

	s.result.Summaries = append(s.result.Summaries, Summary{
		ShipmentID:      key,
		Status:          r.Status,
		LedgerTotal:     ledgerTotal,
		CarrierTotal:    decimal.Zero,
		Difference:      ledgerTotal,
		WithinTolerance: false,
		Carrier:         s.carrier,
	})
	s.addContainerDetail(key, r, r.Event.ContainerID, ledgerTotal)
	s.addLedgerChargeDetails(key, r)
}

func (s *runState) classifyBothPresent(key string, r Resolved, m Match) {
	ledgerTotal := LedgerTotal(r.Event)
	carrierTotal := CarrierTotal(m.Lines)
	diff := ledgerTotal.Sub(carrierTotal)
	ok := s.within(diff)

	if r.Status == StatusOpen {
		s.addNotClosed(key, m.ViaContainer)
	}
	if !ok {
		s.addException(Exception{
			Kind:        ExcAmountMismatch,
			ShipmentID:  key,
			ContainerID: m.ViaContainer,
			Message:     fmt.Sprintf("totals differ: ledger=%s carrier=%s", ledgerTotal, carrierTotal),
			Severity:    SeverityError,
		})
	}

	s.compareCharges(key, r, m)

	s.result.Summaries = append(s.result.Summaries, Summary{
		ShipmentID:      key,
		Status:          r.Status,
		LedgerTotal:     ledgerTotal,
		CarrierTotal:    carrierTotal,
		Difference:      diff,
		WithinTolerance: ok,
		Carrier:         s.carrier,
		CarrierSource:   firstSource(m.Lines),
	})

	container := m.ViaContainer
	if container == "" {
		container = r.Event.ContainerID
	}
	s.addContainerDetail(key, r, container, ledgerTotal)
	s.addLedgerChargeDetails(key, r)
	if carrierItemizes(m.Lines) {
		carrierCharges := CarrierChargeTotals(m.Lines)
		for _, ck := range sortedKeys(carrierCharges) {
			s.result.Charges = append(s.result.Charges, ChargeDetail{
				ShipmentID:  key,
				ContainerID: container,
				ChargeKey:   ck,
				Amount:      carrierCharges[ck],
				Origin:      OriginCarrier,
				Carrier:     s.carrier,
			})
		}
	}
}

// compareCharges union-compares charge keys between both sides. It only runs
// when the ledger carries itemized charges and the carrier lines itemize as
// well; comparing an itemized ledger against a lump-sum invoice would flag
// every charge as one-sided.
func (s *runState) compareCharges(key string, r Resolved, m Match) {
	ledgerCharges := LedgerChargeTotals(r.Event)
	if len(ledgerCharges) == 0 || !carrierItemizes(m.Lines) {
		return
	}
	carrierCharges := CarrierChargeTotals(m.Lines)

	union := make(map[string]decimal.Decimal, len(ledgerCharges)+len(carrierCharges))
	for ck := range ledgerCharges {
		union[ck] = decimal.Zero
	}
	for ck := range carrierCharges {
		union[ck] = decimal.Zero
	}

	container := m.ViaContainer
	if container == "" {
		container = r.Event.ContainerID
	}

	for _, ck := range sortedKeys(union) {
		a := ledgerCharges[ck]
		b := carrierCharges[ck]
		switch {
		case a.IsZero() && !b.IsZero():
			s.addException(Exception{
				Kind:        ExcChargeOnlyInCarrier,
				ShipmentID:  key,
				ContainerID: container,
				Message:     fmt.Sprintf("charge %q present in carrier invoice but not in ledger", ck),
				Severity:    SeverityWarn,
			})
		case !a.IsZero() && b.IsZero():
			s.addException(Exception{
				Kind:        ExcChargeOnlyInLedger,
				ShipmentID:  key,
				ContainerID: container,
				Message:     fmt.Sprintf("charge %q present in ledger but not in carrier invoice", ck),
				Severity:    SeverityWarn,
			})
		case !s.within(a.Sub(b)):
			s.addException(Exception{
				Kind:        ExcChargeMismatch,
				ShipmentID:  key,
				ContainerID: container,
				Message:     fmt.Sprintf("charge %q differs: ledger=%s carrier=%s", ck, a, b),
				Severity:    SeverityError,
			})
		}
	}
}

func (s *runState) addNotClosed(key, container string) {
	s.addException(Exception{
		Kind:        ExcShipmentNotClosed,
		ShipmentID:  key,
		ContainerID: container,
		Message:     "no closed event found for this shipment in the ledger",
		Severity:    SeverityWarn,
	})
}

func (s *runState) addException(e Exception) {
	e.Carrier = s.carrier
	s.result.Exceptions = append(s.result.Exceptions, e)
}

func (s *runState) addContainerDetail(key string, r Resolved, container string, total decimal.Decimal) {
	s.result.Containers = append(s.result.Containers, ContainerDetail{
		ShipmentID:  key,
		ContainerID: container,
		Route:       r.Event.Route,
		Freight:     r.Event.FreightAmount,
		Extras:      r.Event.ExtrasAmount,
		Total:       total,
		Carrier:     s.carrier,
	})
}

func (s *runState) addLedgerChargeDetails(key string, r Resolved) {
	charges := LedgerChargeTotals(r.Event)
	for _, ck := range sortedKeys(charges) {
		s.result.Charges = append(s.result.Charges, ChargeDetail{
			ShipmentID:  key,
			ContainerID: r.Event.ContainerID,
			ChargeKey:   ck,
			Amount:      charges[ck],
			Origin:      OriginLedger,
			Carrier:     s.carrier,
		})
	}
}

func carrierItemizes(lines []CarrierLine) bool {
	for _, l := range lines {
		if l.Itemized() {
			return true
		}
	}
	return false
}

func firstSource(lines []CarrierLine) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0].SourceSheet
}
