package recon

// Resolved is the authoritative ledger record selected for one shipment.
type Resolved struct {
	Status Status
	Event  LedgerEvent
}

// ResolveLedger selects the single authoritative event among all ledger
// events sharing one shipment id: the latest CLOSED event if any exists,
// else the latest event overall with status OPEN. Equal timestamps keep the
// earliest event in input order, so the choice is deterministic.
func ResolveLedger(events []LedgerEvent) (Resolved, error) {
	if len(events) == 0 {
		return Resolved{}, ErrNoEvents
	}

	bestClosed := -1
	bestAny := 0
	for i, ev := range events {
		if ev.EventTime.After(events[bestAny].EventTime) {
			bestAny = i
		}
		if ev.Status != StatusClosed {
			continue
		}
		if bestClosed < 0 || ev.EventTime.After(events[bestClosed].EventTime) {
			bestClosed = i
		}
	}

	if bestClosed >= 0 {
		return Resolved{Status: StatusClosed, Event: events[bestClosed]}, nil
	}
	return Resolved{Status: StatusOpen, Event: events[bestAny]}, nil
}
