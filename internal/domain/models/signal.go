package models

import "time"

// Action is the trade direction carried by a signal. Quantity stays
// non-negative; direction lives here.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// TradingSignal is the unit handed from a strategy to the manager and, once
// the risk gate accepts it, to the execution collaborator. Immutable.
type TradingSignal struct {
	Symbol      string             `json:"symbol"`
	Action      Action             `json:"action"`
	Confidence  float64            `json:"confidence"`
	Price       float64            `json:"price"`
	Quantity    float64            `json:"quantity"`
	Strategy    string             `json:"strategy"`
	GeneratedAt time.Time          `json:"generated_at"`
	Rationale   string             `json:"rationale,omitempty"`
	Metadata    map[string]float64 `json:"metadata,omitempty"`
}

// Position is a strategy-scoped signed exposure on one symbol.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// StrategyMetrics is a read-only per-strategy snapshot for monitoring.
type StrategyMetrics struct {
	Strategy    string  `json:"strategy"`
	Active      bool    `json:"active"`
	Signals     int64   `json:"signals"`
	Trades      int64   `json:"trades"`
	Rejected    int64   `json:"rejected"`
	Wins        int64   `json:"wins"`
	Losses      int64   `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	RealizedPnL float64 `json:"realized_pnl"`
}
