package polymarket

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-tax-go/internal/tax"
)

// Import sources recorded on normalized transactions.
const (
	SourceAPI    = "api"
	SourceCSV    = "csv"
	SourceManual = "manual"
)

// NormalizedTransaction is the common record every import path produces,
// regardless of whether it came from the CLOB, the Data API or a CSV file.
type NormalizedTransaction struct {
	MarketID        string
	MarketTitle     string
	Outcome         tax.Outcome
	Type            tax.TransactionType
	Quantity        float64
	PricePerShare   float64
	TotalAmount     float64
	Fee             float64
	TransactionHash string
	Timestamp       time.Time
	ImportSource    string
}

var basisPointDivisor = decimal.NewFromInt(10000)

// isSettlement reports whether a CLOB fill is really a market resolution
// payout: a matched SELL at exactly 0 or 1.
func isSettlement(trade Trade, price decimal.Decimal) bool {
	return trade.Status == "MATCHED" &&
		trade.Side == "SELL" &&
		(price.IsZero() || price.Equal(decimal.NewFromInt(1)))
}

// NormalizeOutcome maps an API outcome label to YES or NO, defaulting to
// YES for anything unrecognized.
func NormalizeOutcome(raw string) tax.Outcome {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "YES":
		return tax.OutcomeYes
	case "NO":
		return tax.OutcomeNo
	}
	return tax.OutcomeYes
}

// NormalizeTrades converts CLOB fills to normalized transactions, resolving
// market titles from the supplied metadata and reclassifying sells on
// resolved markets as settlements. Fills with unparseable numbers or
// timestamps are dropped. The result is sorted by timestamp ascending.
func NormalizeTrades(trades []Trade, markets map[string]*Market) []NormalizedTransaction {
	normalized := make([]NormalizedTransaction, 0, len(trades))

	for _, trade := range trades {
		quantity, err := decimal.NewFromString(trade.Size)
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(trade.Price)
		if err != nil {
			continue
		}
		feeRate, err := decimal.NewFromString(trade.FeeRateBps)
		if err != nil {
			feeRate = decimal.Zero
		}

		timestamp, err := parseTradeTime(trade)
		if err != nil {
			continue
		}

		totalAmount := quantity.Mul(price)
		fee := totalAmount.Mul(feeRate.Div(basisPointDivisor))

		market := markets[trade.Market]
		marketResolved := market != nil && (market.Resolved || market.Closed)

		txType := tax.TransactionType(trade.Side)
		if isSettlement(trade, price) || (marketResolved && trade.Side == "SELL") {
			txType = tax.TxSettlement
		}

		title := trade.Market
		if market != nil && market.Question != "" {
			title = market.Question
		}

		normalized = append(normalized, NormalizedTransaction{
			MarketID:        trade.Market,
			MarketTitle:     title,
			Outcome:         NormalizeOutcome(trade.Outcome),
			Type:            txType,
			Quantity:        quantity.InexactFloat64(),
			PricePerShare:   price.InexactFloat64(),
			TotalAmount:     totalAmount.InexactFloat64(),
			Fee:             fee.InexactFloat64(),
			TransactionHash: trade.TransactionHash,
			Timestamp:       timestamp,
			ImportSource:    SourceAPI,
		})
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Timestamp.Before(normalized[j].Timestamp)
	})
	return normalized
}

// parseTradeTime prefers the ISO match time and falls back to the
// unix-second timestamp field.
func parseTradeTime(trade Trade) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, trade.MatchTime); err == nil {
		return t, nil
	}
	seconds, err := strconv.ParseInt(trade.Timestamp, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(seconds, 0).UTC(), nil
}

// NormalizeActivity converts Data API activity records to normalized
// transactions. Trade records missing a side are incomplete and dropped.
// The outcome index is authoritative when present: 0 is YES, 1 is NO.
// The result is sorted by timestamp ascending.
func NormalizeActivity(activities []Activity) []NormalizedTransaction {
	normalized := make([]NormalizedTransaction, 0, len(activities))

	for _, a := range activities {
		if a.Type == "TRADE" && a.Side == "" {
			continue
		}

		var outcome tax.Outcome
		switch a.OutcomeIndex {
		case 0:
			outcome = tax.OutcomeYes
		case 1:
			outcome = tax.OutcomeNo
		default:
			outcome = NormalizeOutcome(a.Outcome)
		}

		txType := tax.TransactionType(a.Side)
		if a.Type == "REDEEM" {
			txType = tax.TxRedeem
		}

		normalized = append(normalized, NormalizedTransaction{
			MarketID:        a.ConditionID,
			MarketTitle:     a.Title,
			Outcome:         outcome,
			Type:            txType,
			Quantity:        a.Size,
			PricePerShare:   a.Price,
			TotalAmount:     a.UsdcSize,
			Fee:             0,
			TransactionHash: a.TransactionHash,
			Timestamp:       time.Unix(a.Timestamp, 0).UTC(),
			ImportSource:    SourceAPI,
		})
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Timestamp.Before(normalized[j].Timestamp)
	})
	return normalized
}
