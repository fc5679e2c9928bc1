// Package doctor inspects the state treeclone leaves behind between runs:
// the run journal, destination locks and staged files abandoned by
// interrupted copies.
package doctor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/jvs-project/treeclone/internal/journal"
	"github.com/jvs-project/treeclone/internal/lock"
	"github.com/jvs-project/treeclone/pkg/fsutil"
	"github.com/jvs-project/treeclone/pkg/model"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
}

// Options says where to look. Zero fields skip the matching check.
type Options struct {
	Fs          afero.Fs      // defaults to the local disk
	Locks       *lock.Manager // nil skips the lock check
	JournalPath string
	Roots       []string // destination roots scanned for abandoned staged files
}

// Doctor performs health checks.
type Doctor struct {
	fs      afero.Fs
	locks   *lock.Manager
	journal string
	roots   []string
}

// NewDoctor creates a new doctor.
func NewDoctor(opts Options) *Doctor {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Doctor{
		fs:      fs,
		locks:   opts.Locks,
		journal: opts.JournalPath,
		roots:   opts.Roots,
	}
}

// Check runs all diagnostic checks.
func (d *Doctor) Check() (*Result, error) {
	result := &Result{Healthy: true, Findings: []Finding{}}

	d.checkJournal(result)
	if err := d.checkLocks(result); err != nil {
		return nil, err
	}
	d.checkOrphanTmp(result)

	return result, nil
}

func (d *Doctor) checkJournal(result *Result) {
	if d.journal == "" {
		return
	}
	n, err := journal.VerifyChain(d.journal)
	if err != nil {
		result.Findings = append(result.Findings, Finding{
			Category:    "journal",
			Description: fmt.Sprintf("journal chain broken after %d good records: %v", n, err),
			Severity:    "critical",
			Path:        d.journal,
		})
		result.Healthy = false
	}
}

func (d *Doctor) checkLocks(result *Result) error {
	if d.locks == nil {
		return nil
	}
	recs, err := d.locks.List()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		state, _, err := d.locks.Status(rec.Destination)
		if err != nil {
			return err
		}
		switch state {
		case model.LockStateFree:
			continue
		case model.LockStateExpired:
			result.Findings = append(result.Findings, Finding{
				Category:    "lock",
				Description: fmt.Sprintf("expired lock on %s (since %s)", rec.Destination, rec.ExpiresAt.Format(time.RFC3339)),
				Severity:    "warning",
				Path:        rec.Destination,
			})
			continue
		}
		result.Findings = append(result.Findings, Finding{
			Category:    "lock",
			Description: fmt.Sprintf("%s is locked by %q until %s", rec.Destination, rec.Purpose, rec.ExpiresAt.Format(time.RFC3339)),
			Severity:    "info",
			Path:        rec.Destination,
		})
	}
	return nil
}

func (d *Doctor) checkOrphanTmp(result *Result) {
	for _, path := range d.orphanTmp() {
		result.Findings = append(result.Findings, Finding{
			Category:    "tmp",
			Description: "staged file left by an interrupted copy",
			Severity:    "warning",
			Path:        path,
		})
	}
}

// orphanTmp lists staged files under the roots. Unreadable or missing roots
// are skipped.
func (d *Doctor) orphanTmp() []string {
	var out []string
	for _, root := range d.roots {
		afero.Walk(d.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if !info.IsDir() && strings.HasPrefix(info.Name(), fsutil.TempPrefix) {
				out = append(out, path)
			}
			return nil
		})
	}
	return out
}

// RepairAction describes an available repair operation.
type RepairAction struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	AutoSafe    bool   `json:"auto_safe"`
}

// RepairResult describes the outcome of a repair operation.
type RepairResult struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Cleaned int    `json:"cleaned,omitempty"`
}

// ListRepairActions returns the available repair actions.
func (d *Doctor) ListRepairActions() []RepairAction {
	return []RepairAction{
		{ID: "prune-locks", Description: "Remove expired destination locks", AutoSafe: true},
		{ID: "clean-tmp", Description: "Remove staged files left by interrupted copies", AutoSafe: true},
	}
}

// Repair executes the named repair actions in order.
func (d *Doctor) Repair(actions []string) ([]RepairResult, error) {
	var results []RepairResult
	for _, action := range actions {
		var r RepairResult
		switch action {
		case "prune-locks":
			r = d.pruneLocks()
		case "clean-tmp":
			r = d.cleanTmp()
		default:
			return results, fmt.Errorf("unknown repair action: %s", action)
		}
		results = append(results, r)
	}
	return results, nil
}

func (d *Doctor) pruneLocks() RepairResult {
	if d.locks == nil {
		return RepairResult{Action: "prune-locks", Success: true, Message: "locking is disabled"}
	}
	n, err := d.locks.Prune()
	if err != nil {
		return RepairResult{Action: "prune-locks", Message: err.Error(), Cleaned: n}
	}
	return RepairResult{Action: "prune-locks", Success: true, Message: fmt.Sprintf("removed %d expired locks", n), Cleaned: n}
}

func (d *Doctor) cleanTmp() RepairResult {
	cleaned := 0
	for _, path := range d.orphanTmp() {
		if err := d.fs.Remove(path); err != nil {
			return RepairResult{Action: "clean-tmp", Message: err.Error(), Cleaned: cleaned}
		}
		cleaned++
	}
	return RepairResult{Action: "clean-tmp", Success: true, Message: fmt.Sprintf("removed %d staged files", cleaned), Cleaned: cleaned}
}
