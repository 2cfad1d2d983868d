package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerTotalBasePlusCharges(t *testing.T) {
	ev := LedgerEvent{
		ShipmentID: "4001",
		BaseAmount: dec("1000"),
		Charges: []ChargeEvent{
			{Key: "ID:77", Amount: dec("50.25"), LastAction: ActionKeep},
			{Key: "DEMURRAGE", Amount: dec("19.75"), LastAction: ActionKeep},
		},
	}
	assert.True(t, LedgerTotal(ev).Equal(dec("1070.00")))
}

func TestLedgerTotalSkipsRemovedCharges(t *testing.T) {
	ev := LedgerEvent{
		ShipmentID: "4001",
		BaseAmount: dec("1000"),
		Charges: []ChargeEvent{
			{Key: "DEMURRAGE", Amount: dec("100"), LastAction: ActionRemove},
			{Key: "STORAGE", Amount: dec("30"), LastAction: ActionKeep},
		},
	}
	assert.True(t, LedgerTotal(ev).Equal(dec("1030")))
}

func TestLedgerTotalOrderInvariant(t *testing.T) {
	a := LedgerEvent{BaseAmount: dec("10"), Charges: []ChargeEvent{
		{Key: "A", Amount: dec("1.10")},
		{Key: "B", Amount: dec("2.20")},
		{Key: "C", Amount: dec("3.30")},
	}}
	b := LedgerEvent{BaseAmount: dec("10"), Charges: []ChargeEvent{
		{Key: "C", Amount: dec("3.30")},
		{Key: "A", Amount: dec("1.10")},
		{Key: "B", Amount: dec("2.20")},
	}}
	assert.True(t, LedgerTotal(a).Equal(LedgerTotal(b)))
}

func TestLedgerBaseLegacyFallback(t *testing.T) {
	ev := LedgerEvent{FreightAmount: dec("700"), ExtrasAmount: dec("55")}
	assert.True(t, LedgerBase(ev).Equal(dec("755")))

	withBase := LedgerEvent{BaseAmount: dec("800"), FreightAmount: dec("700"), ExtrasAmount: dec("55")}
	assert.True(t, LedgerBase(withBase).Equal(dec("800")))
}

func TestLedgerChargeTotalsGroupsByKey(t *testing.T) {
	ev := LedgerEvent{Charges: []ChargeEvent{
		{Key: "ID:9", Amount: dec("10")},
		{Key: "ID:9", Amount: dec("5")},
		{Key: "THC", Amount: dec("7")},
	}}
	totals := LedgerChargeTotals(ev)
	assert.Len(t, totals, 2)
	assert.True(t, totals["ID:9"].Equal(dec("15")))
	assert.True(t, totals["THC"].Equal(dec("7")))
}

func TestCarrierTotalsAndChargeKeys(t *testing.T) {
	lines := []CarrierLine{
		{ShipmentID: "5001", Amount: dec("100"), ChargeID: "9"},
		{ShipmentID: "5001", Amount: dec("40"), ChargeLabel: "demurrage"},
		{ShipmentID: "5001", Amount: dec("60")},
	}
	assert.True(t, CarrierTotal(lines).Equal(dec("200")))

	totals := CarrierChargeTotals(lines)
	assert.True(t, totals["ID:9"].Equal(dec("100")))
	assert.True(t, totals["DEMURRAGE"].Equal(dec("40")))
	assert.True(t, totals["CHARGE"].Equal(dec("60")))
}

func TestMakeChargeKeyPrefersID(t *testing.T) {
	assert.Equal(t, "ID:12", MakeChargeKey(" 12 ", "Demurrage"))
	assert.Equal(t, "DEMURRAGE", MakeChargeKey("", "Demurrage"))
	assert.Equal(t, "", MakeChargeKey("", ""))
}
