package polymarket

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-tax-go/internal/tax"
)

// CSVColumnMap names the CSV header for each transaction field. Optional
// fields are left empty when the file has no matching column.
type CSVColumnMap struct {
	MarketID        string
	MarketTitle     string
	Outcome         string
	Type            string
	Quantity        string
	PricePerShare   string
	TotalAmount     string
	Fee             string
	TransactionHash string
	Timestamp       string
}

// DetectCSVColumns guesses the column mapping from header names. Matching
// is case-insensitive and substring-based so "Price Per Share", "price"
// and "avg_price" all map to the price column.
func DetectCSVColumns(headers []string) CSVColumnMap {
	findCol := func(keywords ...string) string {
		for _, h := range headers {
			lower := strings.ToLower(strings.TrimSpace(h))
			for _, k := range keywords {
				if strings.Contains(lower, k) {
					return h
				}
			}
		}
		return ""
	}

	return CSVColumnMap{
		MarketID:        findCol("market_id", "marketid", "market id", "condition_id"),
		MarketTitle:     findCol("market_title", "markettitle", "title", "question", "market"),
		Outcome:         findCol("outcome", "side_outcome"),
		Type:            findCol("type", "side", "action", "trade_type"),
		Quantity:        findCol("quantity", "size", "amount", "shares"),
		PricePerShare:   findCol("price", "price_per_share", "pricepershare", "avg_price"),
		TotalAmount:     findCol("total", "total_amount", "totalamount", "value"),
		Fee:             findCol("fee", "fees", "commission"),
		TransactionHash: findCol("hash", "transaction_hash", "tx_hash", "txhash"),
		Timestamp:       findCol("timestamp", "date", "time", "created_at", "trade_date"),
	}
}

var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseCSVTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCSVRows converts header-keyed rows into normalized transactions
// using the supplied column mapping. Rows with a non-positive quantity or
// an unparseable timestamp are dropped.
func ParseCSVRows(rows []map[string]string, m CSVColumnMap) []NormalizedTransaction {
	normalized := make([]NormalizedTransaction, 0, len(rows))

	for _, row := range rows {
		cell := func(column string) string {
			if column == "" {
				return ""
			}
			return strings.TrimSpace(row[column])
		}
		number := func(column string) decimal.Decimal {
			d, err := decimal.NewFromString(cell(column))
			if err != nil {
				return decimal.Zero
			}
			return d
		}

		quantity := number(m.Quantity)
		if !quantity.IsPositive() {
			continue
		}
		timestamp, ok := parseCSVTime(cell(m.Timestamp))
		if !ok {
			continue
		}

		price := number(m.PricePerShare)
		totalAmount := number(m.TotalAmount)
		if m.TotalAmount == "" || cell(m.TotalAmount) == "" {
			totalAmount = quantity.Mul(price)
		}

		txType := tax.TransactionType(strings.ToUpper(cell(m.Type)))
		switch txType {
		case tax.TxBuy, tax.TxSell, tax.TxSettlement, tax.TxRedeem:
		default:
			txType = tax.TxBuy
		}

		title := cell(m.MarketTitle)
		if title == "" {
			title = cell(m.MarketID)
		}

		normalized = append(normalized, NormalizedTransaction{
			MarketID:        cell(m.MarketID),
			MarketTitle:     title,
			Outcome:         NormalizeOutcome(cell(m.Outcome)),
			Type:            txType,
			Quantity:        quantity.InexactFloat64(),
			PricePerShare:   price.InexactFloat64(),
			TotalAmount:     totalAmount.InexactFloat64(),
			Fee:             number(m.Fee).InexactFloat64(),
			TransactionHash: cell(m.TransactionHash),
			Timestamp:       timestamp,
			ImportSource:    SourceCSV,
		})
	}

	return normalized
}

// ReadCSV reads an entire CSV file, auto-detects the column mapping from
// the header row and returns the normalized transactions.
func ReadCSV(r io.Reader) ([]NormalizedTransaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return ParseCSVRows(rows, DetectCSVColumns(headers)), nil
}
