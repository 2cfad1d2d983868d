package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarrierParserFor(t *testing.T) {
	p, err := CarrierParserFor(" one ")
	require.NoError(t, err)
	assert.Equal(t, "ONE", p.Name())

	p, err = CarrierParserFor("COSCO")
	require.NoError(t, err)
	assert.Equal(t, "COSCO", p.Name())

	_, err = CarrierParserFor("MAERSK")
	assert.ErrorIs(t, err, ErrUnsupportedCarrier)
}

func TestONEParserFirstSheet(t *testing.T) {
	path := writeWorkbook(t, sheetFixture{name: "Factura", rows: [][]string{
		{"No. Documento", "Contenedor", "Tipo Cargo", "Total Naviera"},
		{"3001", "CSNU-123456-7", "Flete", "1,000.50"},
		{"", "TLLU7654321", "Demurrage", "80.00"},
		{"", "", "", "999"}, // no identifiers, dropped
	}})

	lines, stats, err := (&ONEParser{}).Parse(path)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "3001", lines[0].ShipmentID)
	assert.Equal(t, "CSNU1234567", lines[0].ContainerID)
	assert.True(t, lines[0].Amount.Equal(decimal.RequireFromString("1000.50")))
	assert.Equal(t, "Flete", lines[0].ChargeLabel)
	assert.True(t, lines[0].Itemized())
	assert.Equal(t, "Factura", lines[0].SourceSheet)

	assert.Empty(t, lines[1].ShipmentID)
	assert.Equal(t, "TLLU7654321", lines[1].ContainerID)

	assert.Equal(t, 2, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsSkipped)
}

func TestONEParserRejectsWorkbookWithoutInvoiceColumns(t *testing.T) {
	path := writeWorkbook(t, sheetFixture{name: "Resumen", rows: [][]string{
		{"Comentario"},
		{"sin datos"},
	}})

	_, _, err := (&ONEParser{}).Parse(path)
	assert.ErrorIs(t, err, errNoUsableColumns)
}

func TestCOSCOParserUnionOfSheets(t *testing.T) {
	path := writeWorkbook(t,
		sheetFixture{name: "Portada", rows: [][]string{
			{"COSCO Shipping"},
			{"Estado de cuenta"},
		}},
		sheetFixture{name: "Fletes", rows: [][]string{
			{"Referencia", "Contenedor", "Total"},
			{"3001", "", "500.00"},
		}},
		sheetFixture{name: "Sobreestadías", rows: [][]string{
			{"Referencia", "Contenedor", "Concepto", "Total"},
			{"", "ABCU1111111", "Demurrage", "120.00"},
		}},
	)

	lines, stats, err := (&COSCOParser{}).Parse(path)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Fletes", lines[0].SourceSheet)
	assert.Equal(t, "Sobreestadías", lines[1].SourceSheet)
	assert.NotEmpty(t, stats.Warnings) // cover sheet skipped
}

func TestCOSCOParserNoParsableSheet(t *testing.T) {
	path := writeWorkbook(t, sheetFixture{name: "Portada", rows: [][]string{{"x"}}})
	_, _, err := (&COSCOParser{}).Parse(path)
	assert.Error(t, err)
}

func TestCarrierSniff(t *testing.T) {
	path := writeWorkbook(t, sheetFixture{name: "Factura", rows: [][]string{
		{"No. Documento", "Total Naviera"},
		{"3001", "100"},
	}})

	report := (&ONEParser{}).Sniff(path)
	assert.True(t, report.OK)
	assert.Equal(t, "Factura", report.SheetUsed)

	report = (&COSCOParser{}).Sniff(path)
	assert.True(t, report.OK)
}

func TestPrecheck(t *testing.T) {
	ledger := writeWorkbook(t, sheetFixture{name: "Guía", rows: [][]string{
		{"Número Guía", "Estado", "Monto Tarifa"},
		{"3001", "CERRADA", "100"},
	}})
	invoice := writeWorkbook(t, sheetFixture{name: "Factura", rows: [][]string{
		{"No. Documento", "Total Naviera"},
		{"3001", "100"},
	}})

	report := Precheck("ONE", ledger, invoice)
	assert.True(t, report.OK)
	for _, issue := range report.Issues {
		assert.Equal(t, LevelWarn, issue.Level)
	}

	report = Precheck("MAERSK", ledger, invoice)
	assert.False(t, report.OK)
}
