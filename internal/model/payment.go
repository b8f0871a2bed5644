package model

import "time"

// Payment is the immutable money record written when a session closes.
// Exactly one payment exists per closed session, and its amount equals the
// session's total amount at the moment of creation.  Payments are only ever
// deleted together with their session.
type Payment struct {
	ID          uint64    `json:"id"`
	SessionID   uint64    `json:"sessionId"`
	Amount      float64   `json:"amount"`
	PaymentTime time.Time `json:"paymentTime"`
}
