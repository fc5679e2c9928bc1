package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jvs-project/treeclone/internal/batch"
	"github.com/jvs-project/treeclone/pkg/errclass"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/progress"
	"github.com/jvs-project/treeclone/pkg/treeclone"
)

var printer = message.NewPrinter(language.English)

// count renders n with digit grouping.
func count(n int) string {
	return printer.Sprintf("%d", n)
}

// localSites resolves two command-line paths to local sites. A destination
// inside the source would be enumerated while it is being written.
func localSites(source, destination string) (treeclone.Site, treeclone.Site, error) {
	src, err := filepath.Abs(source)
	if err != nil {
		return treeclone.Site{}, treeclone.Site{}, fmt.Errorf("resolve source: %w", err)
	}
	dst, err := filepath.Abs(destination)
	if err != nil {
		return treeclone.Site{}, treeclone.Site{}, fmt.Errorf("resolve destination: %w", err)
	}
	if rel, err := filepath.Rel(src, dst); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return treeclone.Site{}, treeclone.Site{}, errclass.InvalidPath(dst, "destination must not be the source or lie inside it")
	}
	return treeclone.LocalSite(src), treeclone.LocalSite(dst), nil
}

// terminal returns a progress renderer on stderr, enabled only for
// interactive text output.
func (a *app) terminal() *progress.Terminal {
	enabled := false
	if f, ok := a.errOut.(*os.File); ok && !a.flags.jsonOutput {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return progress.NewTerminal(a.errOut, enabled)
}

// acquire takes the destination lock and keeps its lease alive until the
// returned release func is called.
func (a *app) acquire(destination, purpose string) (func(), error) {
	if a.locks == nil {
		return func() {}, nil
	}
	rec, err := a.locks.Acquire(destination, purpose)
	if err != nil {
		return nil, err
	}
	logger := a.logger.WithFields(map[string]any{"destination": destination, "fencing_token": rec.FencingToken})
	logger.Debug("lock acquired")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(max(a.cfg.Lock.TTL/2, time.Millisecond))
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if _, err := a.locks.Renew(destination, rec.HolderNonce); err != nil {
					logger.Warn("lock renewal failed", map[string]any{"error": err.Error()})
					return
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		if err := a.locks.ValidateFencing(destination, rec.FencingToken); err != nil {
			logger.Warn("lock was taken over during the run", map[string]any{"error": err.Error()})
			return
		}
		if err := a.locks.Release(destination, rec.HolderNonce); err != nil {
			logger.Warn("lock release failed", map[string]any{"error": err.Error()})
		}
	}, nil
}

// execute runs one clone job under the destination lock, verifies it when
// asked, and records metrics and a journal entry. It is the batch.Executor
// behind both the clone and batch commands.
func (a *app) execute(ctx context.Context, job batch.Job) batch.Result {
	start := time.Now()
	res := batch.Result{Job: job.Name}
	dest := string(job.Destination.Root)

	release, err := a.acquire(dest, "clone "+job.Name)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		a.record(model.RunClone, job, res)
		return res
	}
	defer release()

	client := treeclone.New(treeclone.ClientOptions{
		Logger:   a.logger.WithFields(map[string]any{"job": job.Name}),
		Progress: a.progress,
	})

	cloneStart := time.Now()
	res.Clone, res.Err = client.Clone(ctx, job.Source, job.Destination, job.Options)
	a.metrics.RecordClone(res.Clone, time.Since(cloneStart))

	if res.Err == nil && job.Verify {
		verifyStart := time.Now()
		report, err := client.Verify(ctx, job.Source, job.Destination, job.Options.Scope)
		a.metrics.RecordVerify(report, time.Since(verifyStart))
		if err != nil {
			res.Err = fmt.Errorf("after clone: %w", err)
		}
		res.Report = report
	}

	res.Duration = time.Since(start)
	a.record(model.RunClone, job, res)
	return res
}

// verify runs a standalone verification with metrics and a journal entry.
func (a *app) verify(ctx context.Context, src, dst treeclone.Site, scope model.Scope) (*model.VerificationReport, error) {
	client := treeclone.New(treeclone.ClientOptions{Logger: a.logger, Progress: a.progress})

	start := time.Now()
	report, err := client.Verify(ctx, src, dst, scope)
	a.metrics.RecordVerify(report, time.Since(start))

	a.record(model.RunVerify, batch.Job{Name: "verify", Source: src, Destination: dst}, batch.Result{
		Report:   report,
		Err:      err,
		Duration: time.Since(start),
	})
	return report, err
}

// record appends res to the journal. A journal failure is logged and does
// not change the run's outcome.
func (a *app) record(op model.RunOp, job batch.Job, res batch.Result) {
	if a.journal == nil {
		return
	}

	details := map[string]any{"duration_ms": res.Duration.Milliseconds()}
	success := res.Err == nil
	if res.Clone != nil {
		details["copied"] = res.Clone.Copied
		details["skipped"] = res.Clone.Skipped
		details["dirs_created"] = res.Clone.DirsCreated
		details["failures"] = len(res.Clone.Failures)
		success = success && res.Clone.OK()
	}
	if res.Report != nil {
		details["checked"] = res.Report.Checked
		details["missing"] = len(res.Report.Missing)
		success = success && res.Report.Success
	}
	if op == model.RunClone && res.Clone == nil {
		success = false
	}
	if op == model.RunVerify && res.Report == nil {
		success = false
	}
	if res.Err != nil {
		details["error"] = res.Err.Error()
	}

	_, err := a.journal.Append(model.JournalRecord{
		Op:          op,
		Job:         job.Name,
		Source:      string(job.Source.Root),
		Destination: string(job.Destination.Root),
		Success:     success,
		Details:     details,
	})
	if err != nil {
		a.logger.ErrorErr("journal append failed", err, map[string]any{"path": a.journal.Path()})
	}
}
