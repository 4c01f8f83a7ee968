package economy

import "time"

type WalletView struct {
	Tokens        int64          `json:"tokens"`
	HoldingsValue int64          `json:"holdings_value"`
	NetWorth      int64          `json:"net_worth"`
	Positions     []PositionView `json:"positions"`
}

type PositionView struct {
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	AvgPrice    float64 `json:"avg_price"`
	LastPrice   float64 `json:"last_price"`
	MarketValue int64   `json:"market_value"`
}

// MarketPoint is one hour-bucketed sample of the token market. Synthetic
// marks display-only points fabricated by the read path; they are never
// what is stored.
type MarketPoint struct {
	ID                    int64     `json:"id"`
	Bucket                time.Time `json:"timestamp"`
	TokenValue            float64   `json:"token_value"`
	TokensInCirculation   int64     `json:"tokens_in_circulation"`
	TotalTransactionValue float64   `json:"total_transaction_value"`
	Synthetic             bool      `json:"synthetic,omitempty"`
}

type Transaction struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
	TotalCost int64     `json:"total_cost"`
	CreatedAt time.Time `json:"created_at"`
}

type TradeInput struct {
	UserID         string
	Symbol         string
	Side           string
	Quantity       int64
	Price          float64
	IdempotencyKey string
}

type TradeResult struct {
	TransactionID int64   `json:"transaction_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Quantity      int64   `json:"quantity"`
	Price         float64 `json:"price"`
	TotalCost     int64   `json:"total_cost"`
	NewBalance    int64   `json:"new_balance"`
}

type PotEntry struct {
	UserID string `json:"user_id"`
	Tokens int64  `json:"tokens"`
}

type PotView struct {
	TotalTokens int64      `json:"total_tokens"`
	Entries     []PotEntry `json:"entries"`
}

type PotEnterResult struct {
	UserTokens int64 `json:"user_tokens"`
	TotalPot   int64 `json:"total_pot"`
	NewBalance int64 `json:"new_balance"`
}

type DrawResult struct {
	WinnerUserID string `json:"winner_user_id"`
	Tokens       int64  `json:"tokens"`
	Entrants     int    `json:"entrants"`
}

type PortfolioPoint struct {
	Date     time.Time `json:"date"`
	Cash     float64   `json:"cash"`
	Holdings float64   `json:"holdings"`
	NetWorth float64   `json:"net_worth"`
}

// AccountSnapshot is the per-user input to the ranker, read at query time.
type AccountSnapshot struct {
	UserID        string
	Username      string
	Image         string
	CashBalance   int64
	HoldingsValue int64
}

type LeaderboardEntry struct {
	UserID        string  `json:"user_id"`
	Rank          int64   `json:"rank"`
	Username      string  `json:"username"`
	Image         string  `json:"image,omitempty"`
	TotalValue    int64   `json:"total_value"`
	Profit        int64   `json:"profit"`
	PercentChange float64 `json:"percent_change"`
	CashBalance   int64   `json:"cash_balance"`
	HoldingsValue int64   `json:"holdings_value"`
}

type RewardResult struct {
	Kind       string `json:"kind"`
	Prize      string `json:"prize,omitempty"`
	Cost       int64  `json:"cost"`
	Won        int64  `json:"won"`
	NewBalance int64  `json:"new_balance"`
}
