package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnIndex(t *testing.T) {
	headers := []string{"", "Fornitore", "N. Fattura", "Importo Totale", "SCADENZA", "Saldato"}

	index := columnIndex(Config{}, headers)

	assert.Equal(t, 1, index[FieldCounterparty])
	assert.Equal(t, 2, index[FieldInvoiceRef])
	assert.Equal(t, 3, index[FieldAmountTotal])
	assert.Equal(t, 4, index[FieldDateDue])
	assert.Equal(t, 5, index[FieldSettled])

	_, ok := index[FieldCostCenter]
	assert.False(t, ok)
}

func TestColumnIndex_OverrideReplacesDefaults(t *testing.T) {
	headers := []string{"Fornitore", "Beneficiario"}

	index := columnIndex(Config{
		Columns: map[string][]string{FieldCounterparty: {"beneficiario"}},
	}, headers)

	// the override replaces the default aliases, it does not extend them
	assert.Equal(t, 1, index[FieldCounterparty])
}

func TestCell_ShortRow(t *testing.T) {
	index := map[string]int{FieldNotes: 5}

	assert.Equal(t, "", cell([]string{"a", "b"}, index, FieldNotes))
	assert.Equal(t, "", cell([]string{"a", "b"}, index, FieldAmountPaid))
}
