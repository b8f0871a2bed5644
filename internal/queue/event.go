// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// SessionClosedEvent is published when a rental session is closed.  It
// carries enough information for downstream consumers (audit log, daily
// cash-up, analytics) without querying the primary database.
type SessionClosedEvent struct {
	SessionID       uint64  `json:"session_id"`
	ComputerID      uint64  `json:"computer_id"`
	ComputerName    string  `json:"computer_name"`
	Customer        string  `json:"customer"`
	StartedAt       string  `json:"started_at"`
	EndedAt         string  `json:"ended_at"`
	DurationMinutes float64 `json:"duration_minutes"`
	Amount          float64 `json:"amount"`
	Paid            bool    `json:"paid"`
	ClosedBy        string  `json:"closed_by"`
}
