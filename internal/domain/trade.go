package domain

import (
	"time"

	"github.com/google/uuid"
)

// TradeStatus distinguishes executed fills from attempts that were refused by
// regulation, so log consumers can tell them apart.
type TradeStatus string

const (
	TradeExecuted         TradeStatus = "executed"
	TradeRejectedShortBan TradeStatus = "rejected_short_ban"
)

// TradeRecord is one entry in the append-only trade log. Records are staged
// during a round and appended to the log only when the round commits.
type TradeRecord struct {
	ID       string      `json:"id"`
	Round    int         `json:"round"`
	Agent    string      `json:"agent"`
	Asset    string      `json:"asset"`
	Action   OrderAction `json:"action"`
	Quantity int         `json:"quantity"`
	Price    float64     `json:"price"`
	Status   TradeStatus `json:"status"`
	At       time.Time   `json:"at"`
}

// NewTradeRecord builds a trade record with a fresh ID and timestamp.
func NewTradeRecord(round int, agent, asset string, action OrderAction, qty int, price float64, status TradeStatus) TradeRecord {
	return TradeRecord{
		ID:       uuid.NewString(),
		Round:    round,
		Agent:    agent,
		Asset:    asset,
		Action:   action,
		Quantity: qty,
		Price:    price,
		Status:   status,
		At:       time.Now().UTC(),
	}
}
