package batch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/treeclone/internal/batch"
	"github.com/jvs-project/treeclone/internal/engine"
	"github.com/jvs-project/treeclone/internal/verify"
	"github.com/jvs-project/treeclone/pkg/fixture"
	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
)

func job(name string, dst pathutil.Path) batch.Job {
	return batch.Job{
		Name:        name,
		Source:      fsys.NewSite(fsys.NewMemory(), "/src"),
		Destination: fsys.NewSite(fsys.NewMemory(), dst),
	}
}

func TestRun_ResultsInInputOrder(t *testing.T) {
	exec := func(ctx context.Context, j batch.Job) batch.Result {
		return batch.Result{Clone: &model.CloneResult{Copied: len(j.Name)}}
	}
	jobs := []batch.Job{job("a", "/d1"), job("bbb", "/d2"), job("cc", "/d3")}

	results := batch.NewRunner(exec, 3).Run(context.Background(), jobs)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, jobs[i].Name, r.Job)
		assert.Equal(t, len(jobs[i].Name), r.Clone.Copied)
		assert.True(t, r.OK())
	}
}

func TestRun_SameDestinationNeverOverlaps(t *testing.T) {
	var mu sync.Mutex
	active := map[pathutil.Path]int{}
	var overlap atomic.Bool
	var order []string

	exec := func(ctx context.Context, j batch.Job) batch.Result {
		mu.Lock()
		active[j.Destination.Root]++
		if active[j.Destination.Root] > 1 {
			overlap.Store(true)
		}
		if j.Destination.Root == "/shared" {
			order = append(order, j.Name)
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active[j.Destination.Root]--
		mu.Unlock()
		return batch.Result{Clone: &model.CloneResult{}}
	}
	jobs := []batch.Job{
		job("s1", "/shared"), job("o1", "/other1"), job("s2", "/shared"),
		job("o2", "/other2"), job("s3", "/shared"),
	}

	results := batch.NewRunner(exec, 4).Run(context.Background(), jobs)
	assert.Len(t, results, 5)
	assert.False(t, overlap.Load())
	assert.Equal(t, []string{"s1", "s2", "s3"}, order)
}

func TestRun_BoundedParallelism(t *testing.T) {
	var running, peak atomic.Int32
	exec := func(ctx context.Context, j batch.Job) batch.Result {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return batch.Result{Clone: &model.CloneResult{}}
	}
	var jobs []batch.Job
	for _, d := range []pathutil.Path{"/a", "/b", "/c", "/d", "/e", "/f"} {
		jobs = append(jobs, job(string(d), d))
	}

	batch.NewRunner(exec, 2).Run(context.Background(), jobs)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_CancelledContextSkipsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	exec := func(ctx context.Context, j batch.Job) batch.Result {
		called = true
		return batch.Result{}
	}
	results := batch.NewRunner(exec, 1).Run(ctx, []batch.Job{job("a", "/a")})
	assert.False(t, called)
	require.ErrorIs(t, results[0].Err, context.Canceled)
	assert.False(t, results[0].OK())
	assert.NotEmpty(t, results[0].Error)
}

func TestResult_OK(t *testing.T) {
	assert.False(t, batch.Result{}.OK())
	assert.False(t, batch.Result{Err: errors.New("x"), Clone: &model.CloneResult{}}.OK())
	assert.False(t, batch.Result{Clone: &model.CloneResult{}, Report: &model.VerificationReport{}}.OK())
	assert.True(t, batch.Result{Clone: &model.CloneResult{}, Report: &model.VerificationReport{Success: true}}.OK())
}

func TestRun_RealClones(t *testing.T) {
	mem := fsys.NewMemory()
	src := fsys.NewSite(mem, "/src")
	require.NoError(t, fixture.Build(src))

	cloner := engine.NewCloner()
	verifier := verify.NewVerifier()
	exec := func(ctx context.Context, j batch.Job) batch.Result {
		res, err := cloner.Clone(j.Source, j.Destination, j.Options)
		if err != nil {
			return batch.Result{Err: err}
		}
		out := batch.Result{Clone: res}
		if j.Verify {
			out.Report, out.Err = verifier.Verify(j.Source, j.Destination, j.Options.Scope)
		}
		return out
	}

	jobs := []batch.Job{
		{Name: "one", Source: src, Destination: fsys.NewSite(mem, "/out/one"), Verify: true},
		{Name: "two", Source: src, Destination: fsys.NewSite(mem, "/out/two"), Verify: true},
	}
	for _, r := range batch.NewRunner(exec, 2).Run(context.Background(), jobs) {
		assert.True(t, r.OK(), r.Job)
		assert.Equal(t, len(fixture.Files), r.Clone.Copied)
	}
}
