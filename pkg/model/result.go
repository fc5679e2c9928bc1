package model

import (
	"encoding/json"
	"time"

	"github.com/jvs-project/treeclone/pkg/pathutil"
)

// Failure is one entry the clone could not reproduce.
type Failure struct {
	Path pathutil.Path
	Err  error
}

// MarshalJSON renders the error as its message.
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Path  pathutil.Path `json:"path"`
		Error string        `json:"error"`
	}{f.Path, msg})
}

// CloneResult summarizes one clone call.
type CloneResult struct {
	Copied       int             `json:"copied"`
	Skipped      int             `json:"skipped"`
	DirsCreated  int             `json:"dirs_created"`
	SkippedPaths []pathutil.Path `json:"skipped_paths,omitempty"`
	Failures     []Failure       `json:"failures,omitempty"` // encounter order
	Duration     time.Duration   `json:"duration_ns"`
}

// OK reports whether every in-scope entry was reproduced or deliberately skipped.
func (r *CloneResult) OK() bool {
	return len(r.Failures) == 0
}

// VerificationReport is the outcome of one verification call. It is never
// mutated after it is returned.
type VerificationReport struct {
	Success bool            `json:"success"`
	Missing []pathutil.Path `json:"missing"` // sorted by relative path
	Checked int             `json:"checked"`
}
