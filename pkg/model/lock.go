package model

import "time"

// LockRecord is the content of a destination lock file.
type LockRecord struct {
	Destination  string    `json:"destination"`
	HolderNonce  string    `json:"holder_nonce"`
	AcquiredAt   time.Time `json:"acquired_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	FencingToken int64     `json:"fencing_token"`
	Purpose      string    `json:"purpose,omitempty"`
}

// IsExpired returns true if the lock has expired.
func (l *LockRecord) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// LockState represents the current state of a lock.
type LockState string

const (
	LockStateHeld    LockState = "held"
	LockStateExpired LockState = "expired"
	LockStateFree    LockState = "free"
)
