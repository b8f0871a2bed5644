package model

import "time"

// DefaultCustomer is used when a session is opened without a customer label.
const DefaultCustomer = "Anonymous"

// Session records one rental of a computer.  A session is "open" while
// EndTime is nil; an open session has no total amount yet.  Both fields are
// set exactly once, atomically, when the session is closed, and never change
// afterwards.
//
// Fields:
//
//	ID          – primary key identifier.
//	ComputerID  – the computer being rented.
//	Customer    – free-text customer label, defaults to "Anonymous".
//	StartTime   – when the session was opened (UTC).
//	EndTime     – when the session was closed; nil while open.
//	TotalAmount – final billed amount; nil while open.
//	IsPaid      – true when an explicit amount was taken at close time.
type Session struct {
	ID          uint64     `json:"id"`
	ComputerID  uint64     `json:"computerId"`
	Customer    string     `json:"user"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	TotalAmount *float64   `json:"totalAmount"`
	IsPaid      bool       `json:"isPaid"`
}

// Open reports whether the session is still running.
func (s *Session) Open() bool { return s.EndTime == nil }

// SessionDetail is a session joined with its computer and, once closed, its
// payment.  Returned by the session read endpoints.
type SessionDetail struct {
	Session
	Computer *Computer `json:"computer,omitempty"`
	Payment  *Payment  `json:"payment,omitempty"`
}
