package model

import "time"

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// RunOp identifies the kind of journaled run.
type RunOp string

const (
	RunClone  RunOp = "clone"
	RunVerify RunOp = "verify"
)

// JournalRecord is a single line in the run journal (JSONL format).
type JournalRecord struct {
	Timestamp   time.Time      `json:"timestamp"`
	RunID       string         `json:"run_id"`
	Op          RunOp          `json:"op"`
	Job         string         `json:"job,omitempty"`
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Success     bool           `json:"success"`
	Details     map[string]any `json:"details,omitempty"`
	PrevHash    HashValue      `json:"prev_hash"`
	RecordHash  HashValue      `json:"record_hash"`
}
