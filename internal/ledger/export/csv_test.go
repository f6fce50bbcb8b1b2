package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/servicebook/servicebook/internal/ledger"
)

func TestWriteLaysOutOneLinePerItem(t *testing.T) {
	rows := []ledger.FlatRecord{
		{
			Record: ledger.Record{
				Date:        "2024-02-01",
				PaymentType: ledger.PaymentReceivable,
				Items: ledger.LineItems{
					{Kind: ledger.KindCatalog, ID: "1", Name: "Wash", Price: 750, Quantity: 2},
					{Kind: ledger.KindCustom, Name: "Wax", Price: 50},
				},
				Remarks: "ok",
			},
			CompanyName:   "Acme",
			VehiclePlate:  "A 1",
			VehicleType:   "Truck",
			ComputedTotal: 1550,
		},
		{
			Record: ledger.Record{
				Date:        "2024-01-01",
				PaymentType: ledger.PaymentPayable,
				Items:       ledger.LineItems{{Kind: ledger.KindLegacy, Name: "Old"}},
			},
			CompanyName:  "Beta",
			VehiclePlate: "B 1",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(language.English).Write(&buf, rows))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 5)

	assert.Equal(t, Header, lines[0])
	assert.Equal(t, []string{"Receivable", "2024-02-01", "Acme", "A 1", "Truck", "• Wash - $750 × 2", "ok", "1,550"}, lines[1])
	assert.Equal(t, []string{"", "", "", "", "", "• Wax - $50", "", ""}, lines[2])
	assert.Equal(t, []string{"", "", "", "", "", "", "", ""}, lines[3])
	assert.Equal(t, "Payable", lines[4][0])
	assert.Equal(t, "• Old", lines[4][5])
	assert.Equal(t, "0", lines[4][7])
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(language.English).Write(&buf, nil))
	assert.Equal(t, "Type,Date,Company,Plate,Vehicle Type,Items,Remarks,Total\r\n", buf.String())
}
