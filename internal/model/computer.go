package model

// Computer status values.  A computer is `in-use` exactly while one open
// session references it; `maintenance` is set manually by an admin and blocks
// new sessions without participating in the open/close state machine.
const (
	StatusAvailable   = "available"
	StatusInUse       = "in-use"
	StatusMaintenance = "maintenance"
)

// Computer represents a rentable terminal as stored in the `computers`
// table.  HourlyRate is the price per hour in birr.  The JSON field names
// match the dashboard client, which consumes them as-is.
type Computer struct {
	ID         uint64  `json:"id"`         // computers.id
	Name       string  `json:"name"`       // computers.name (unique, e.g. PC-01)
	HourlyRate float64 `json:"hourlyRate"` // computers.hourly_rate
	Status     string  `json:"status"`     // computers.status
}

// ComputerWithSession pairs a computer with its current open session, if any.
// The session is derived at read time ("the open session for this computer"),
// never stored as a column.
type ComputerWithSession struct {
	Computer
	CurrentSession *Session `json:"currentSession"`
}

// ValidStatus reports whether s is one of the recognised computer statuses.
func ValidStatus(s string) bool {
	return s == StatusAvailable || s == StatusInUse || s == StatusMaintenance
}
