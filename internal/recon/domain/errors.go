package recon

import "errors"

var (
	// ErrNoEvents is returned when a shipment key resolves with zero ledger
	// events. This is a caller bug, not a data finding.
	ErrNoEvents = errors.New("recon: no ledger events for shipment")
	// ErrEmptyCarrier is returned when the carrier name is blank.
	ErrEmptyCarrier = errors.New("recon: empty carrier name")
	// ErrNegativeTolerance is returned for a tolerance below zero.
	ErrNegativeTolerance = errors.New("recon: negative tolerance")
)
