package models

import "time"

// Receipt is the result of a successful purchase, cached in the HSS under
// receipt:{idempotency_key} for a retention window that outlives any
// plausible client retry horizon. All successful purchase calls for a fixed
// idempotency key must return a byte-identical Receipt, so this struct's
// JSON encoding must never depend on map iteration order or other
// non-deterministic factors.
type Receipt struct {
	Success bool      `json:"success"`
	TxID    string    `json:"txId"`
	SeatID  string    `json:"seatId"`
	UserID  string    `json:"userId"`
	IssuedAt time.Time `json:"issuedAt"`
}
