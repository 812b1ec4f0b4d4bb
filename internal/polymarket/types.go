package polymarket

// Trade is a single fill from the CLOB trades endpoint. Numeric fields
// arrive as strings and are parsed during normalization.
type Trade struct {
	ID              string `json:"id"`
	TakerOrderID    string `json:"taker_order_id"`
	Market          string `json:"market"` // condition ID
	AssetID         string `json:"asset_id"`
	Side            string `json:"side"`
	Size            string `json:"size"`
	Price           string `json:"price"`
	Status          string `json:"status"`
	MatchTime       string `json:"match_time"`
	LastUpdate      string `json:"last_update"`
	Outcome         string `json:"outcome"`
	FeeRateBps      string `json:"fee_rate_bps"`
	TraderSide      string `json:"trader_side"`
	TransactionHash string `json:"transaction_hash"`
	Owner           string `json:"owner"`
	Timestamp       string `json:"timestamp"`
}

// TradesResponse is one page of the CLOB trades endpoint.
type TradesResponse struct {
	Data       []Trade `json:"data"`
	NextCursor string  `json:"next_cursor"`
	Limit      int     `json:"limit"`
	Count      int     `json:"count"`
}

// Market is the Gamma API market record.
type Market struct {
	ConditionID     string  `json:"condition_id"`
	QuestionID      string  `json:"question_id"`
	Tokens          []Token `json:"tokens"`
	Question        string  `json:"question"`
	Description     string  `json:"description"`
	MarketSlug      string  `json:"market_slug"`
	EndDateISO      string  `json:"end_date_iso"`
	Active          bool    `json:"active"`
	Closed          bool    `json:"closed"`
	Resolved        bool    `json:"resolved"`
	AcceptingOrders bool    `json:"accepting_orders"`
}

// Token is one outcome token of a market.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// Activity is one record from the Data API activity endpoint. Unlike the
// CLOB it carries native numbers and unix-second timestamps, and covers
// on-chain redemptions in addition to trades.
type Activity struct {
	Type            string  `json:"type"` // TRADE or REDEEM
	Side            string  `json:"side"`
	ConditionID     string  `json:"conditionId"`
	Title           string  `json:"title"`
	Outcome         string  `json:"outcome"`
	OutcomeIndex    int     `json:"outcomeIndex"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	UsdcSize        float64 `json:"usdcSize"`
	TransactionHash string  `json:"transactionHash"`
	Timestamp       int64   `json:"timestamp"`
}

// Position is one open position from the Data API positions endpoint.
type Position struct {
	ConditionID  string  `json:"conditionId"`
	Title        string  `json:"title"`
	Outcome      string  `json:"outcome"`
	OutcomeIndex int     `json:"outcomeIndex"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	CurPrice     float64 `json:"curPrice"`
	CurrentValue float64 `json:"currentValue"`
	CashPnl      float64 `json:"cashPnl"`
	PercentPnl   float64 `json:"percentPnl"`
}
