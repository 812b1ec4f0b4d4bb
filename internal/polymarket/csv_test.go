package polymarket

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymarket-tax-go/internal/tax"
)

func TestDetectCSVColumns(t *testing.T) {
	headers := []string{"Condition_ID", "Question", "Outcome", "Side", "Shares", "Avg_Price", "Total Value", "Fees", "Tx_Hash", "Trade_Date"}

	m := DetectCSVColumns(headers)

	assert.Equal(t, "Condition_ID", m.MarketID)
	assert.Equal(t, "Question", m.MarketTitle)
	assert.Equal(t, "Outcome", m.Outcome)
	assert.Equal(t, "Side", m.Type)
	assert.Equal(t, "Shares", m.Quantity)
	assert.Equal(t, "Avg_Price", m.PricePerShare)
	assert.Equal(t, "Total Value", m.TotalAmount)
	assert.Equal(t, "Fees", m.Fee)
	assert.Equal(t, "Tx_Hash", m.TransactionHash)
	assert.Equal(t, "Trade_Date", m.Timestamp)
}

func TestDetectCSVColumnsMissing(t *testing.T) {
	m := DetectCSVColumns([]string{"foo", "bar"})
	assert.Empty(t, m.Quantity)
	assert.Empty(t, m.Timestamp)
}

func TestParseCSVRows(t *testing.T) {
	m := CSVColumnMap{
		MarketID:      "market_id",
		MarketTitle:   "title",
		Outcome:       "outcome",
		Type:          "type",
		Quantity:      "quantity",
		PricePerShare: "price",
		Timestamp:     "date",
	}

	rows := []map[string]string{
		{"market_id": "0xabc", "title": "Will it rain?", "outcome": "yes", "type": "buy", "quantity": "100", "price": "0.40", "date": "2025-01-15"},
		{"market_id": "0xabc", "title": "Will it rain?", "outcome": "yes", "type": "SETTLEMENT", "quantity": "100", "price": "1.00", "date": "2025-06-01 09:30:00"},
		{"market_id": "0xabc", "title": "", "outcome": "yes", "type": "buy", "quantity": "0", "price": "0.40", "date": "2025-01-15"},
		{"market_id": "0xabc", "title": "", "outcome": "yes", "type": "buy", "quantity": "10", "price": "0.40", "date": "not a date"},
	}

	normalized := ParseCSVRows(rows, m)

	// Zero-quantity and bad-date rows are dropped.
	require.Len(t, normalized, 2)

	assert.Equal(t, tax.TxBuy, normalized[0].Type)
	assert.Equal(t, tax.OutcomeYes, normalized[0].Outcome)
	// No total column: derived from quantity * price.
	assert.InDelta(t, 40.0, normalized[0].TotalAmount, 1e-9)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), normalized[0].Timestamp)
	assert.Equal(t, SourceCSV, normalized[0].ImportSource)

	assert.Equal(t, tax.TxSettlement, normalized[1].Type)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), normalized[1].Timestamp)
}

func TestParseCSVRowsUnknownTypeDefaultsToBuy(t *testing.T) {
	m := CSVColumnMap{Quantity: "q", PricePerShare: "p", Type: "t", Timestamp: "d"}
	rows := []map[string]string{{"q": "5", "p": "0.5", "t": "transfer", "d": "2025-01-15"}}

	normalized := ParseCSVRows(rows, m)

	require.Len(t, normalized, 1)
	assert.Equal(t, tax.TxBuy, normalized[0].Type)
}

func TestReadCSV(t *testing.T) {
	data := `market_id,title,outcome,type,quantity,price,date
0xabc,Will it rain?,Yes,BUY,100,0.40,2025-01-15
0xabc,Will it rain?,Yes,SELL,60,0.70,2025-03-01`

	normalized, err := ReadCSV(strings.NewReader(data))

	require.NoError(t, err)
	require.Len(t, normalized, 2)
	assert.Equal(t, "0xabc", normalized[0].MarketID)
	assert.Equal(t, tax.TxSell, normalized[1].Type)
	assert.InDelta(t, 42.0, normalized[1].TotalAmount, 1e-9)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}
