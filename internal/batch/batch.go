// Package batch runs a list of clone jobs with bounded concurrency.
//
// Jobs that share a destination root never overlap: they run one after the
// other, in list order, inside a single worker. Independent destinations run
// in parallel.
package batch

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/model"
)

// Job is one clone, optionally followed by a verification.
type Job struct {
	Name        string
	Source      fsys.Site
	Destination fsys.Site
	Options     model.Options
	Verify      bool
}

// Result is the outcome of one job. Clone is nil when the clone aborted;
// Report is nil when verification did not run or errored.
type Result struct {
	Job      string                    `json:"job"`
	Clone    *model.CloneResult        `json:"clone,omitempty"`
	Report   *model.VerificationReport `json:"verification,omitempty"`
	Err      error                     `json:"-"`
	Error    string                    `json:"error,omitempty"`
	Duration time.Duration             `json:"duration_ns"`
}

// OK reports whether the job completed, had no failures and, if verified, passed.
func (r Result) OK() bool {
	if r.Err != nil || r.Clone == nil || !r.Clone.OK() {
		return false
	}
	return r.Report == nil || r.Report.Success
}

// Executor runs a single job.
type Executor func(ctx context.Context, job Job) Result

// Runner runs jobs through an Executor.
type Runner struct {
	exec     Executor
	parallel int
}

// NewRunner creates a Runner using at most parallel workers (minimum 1).
func NewRunner(exec Executor, parallel int) *Runner {
	if parallel < 1 {
		parallel = 1
	}
	return &Runner{exec: exec, parallel: parallel}
}

// Run executes jobs and returns one result per job, in input order. Once ctx
// is done, jobs not yet started are reported with ctx's error.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	p := pool.New().WithMaxGoroutines(r.parallel).WithContext(ctx)
	for _, group := range groupByDestination(jobs) {
		p.Go(func(ctx context.Context) error {
			for _, i := range group {
				results[i] = r.runOne(ctx, jobs[i])
			}
			return nil
		})
	}
	_ = p.Wait()

	return results
}

func (r *Runner) runOne(ctx context.Context, job Job) Result {
	if err := ctx.Err(); err != nil {
		return Result{Job: job.Name, Err: err, Error: err.Error()}
	}
	start := time.Now()
	res := r.exec(ctx, job)
	res.Job = job.Name
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	if res.Err != nil && res.Error == "" {
		res.Error = res.Err.Error()
	}
	return res
}

// groupByDestination returns job indexes grouped by destination root, groups
// ordered by first appearance.
func groupByDestination(jobs []Job) [][]int {
	index := make(map[string]int)
	var groups [][]int
	for i, j := range jobs {
		key := string(j.Destination.Root)
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
