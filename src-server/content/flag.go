package content

import "time"

// UpdateFlag is stored under storage.KeyContentUpdated after each save.
type UpdateFlag struct {
	Pending bool      `json:"pending"`
	At      time.Time `json:"at"`
}

// HasPendingUpdate reports whether flag announces content newer than the
// last update already applied.
func HasPendingUpdate(flag UpdateFlag, lastApplied time.Time) bool {
	return flag.Pending && flag.At.After(lastApplied)
}
