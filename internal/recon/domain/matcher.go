package recon

import "sort"

// Match is the set of carrier lines tied to one shipment key. ViaContainer
// is set when the tie was made through the container fallback, either
// because the carrier omitted the shipment id or because the shipment only
// exists on the carrier side as a synthetic "(NO_ID)" key.
type Match struct {
	Lines        []CarrierLine
	ViaContainer string
}

// MatchCarrier builds the correspondence between resolved ledger shipments
// and carrier invoice lines. Lines that carry a shipment id match directly;
// lines that only carry a container match through the ledger's own
// container-to-shipment linkage; containers unknown to the ledger produce a
// synthetic "(NO_ID)<container>" key. A line consumed by the container
// fallback is never reused to synthesize a new shipment.
//
// Lines with neither shipment nor container id are invalid and skipped;
// the ingestion adapter drops and reports them before this point.
func MatchCarrier(resolved map[string]Resolved, lines []CarrierLine) map[string]Match {
	matches := make(map[string]Match)

	byContainer := make(map[string][]CarrierLine)
	for _, l := range lines {
		switch {
		case l.ShipmentID != "":
			m := matches[l.ShipmentID]
			m.Lines = append(m.Lines, l)
			matches[l.ShipmentID] = m
		case l.ContainerID != "":
			byContainer[l.ContainerID] = append(byContainer[l.ContainerID], l)
		}
	}

	containerToShipment := linkContainers(resolved)

	containers := make([]string, 0, len(byContainer))
	for c := range byContainer {
		containers = append(containers, c)
	}
	sort.Strings(containers)

	for _, cont := range containers {
		key, linked := containerToShipment[cont]
		if !linked {
			key = NoIDPrefix + cont
		}
		m := matches[key]
		m.Lines = append(m.Lines, byContainer[cont]...)
		m.ViaContainer = cont
		matches[key] = m
	}
	return matches
}

// linkContainers derives container -> shipment from the resolved ledger
// records. When several shipments share a container the CLOSED one wins,
// then the latest event time, then the lowest shipment id; the original
// report's implicit "most recent wins" was not stable across runs.
func linkContainers(resolved map[string]Resolved) map[string]string {
	ids := make([]string, 0, len(resolved))
	for id := range resolved {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	links := make(map[string]string)
	for _, id := range ids {
		r := resolved[id]
		cont := r.Event.ContainerID
		if cont == "" {
			continue
		}
		cur, ok := links[cont]
		if !ok || betterLink(r, resolved[cur]) {
			links[cont] = id
		}
	}
	return links
}

func betterLink(candidate, current Resolved) bool {
	if candidate.Status != current.Status {
		return candidate.Status == StatusClosed
	}
	return candidate.Event.EventTime.After(current.Event.EventTime)
}
