// Package metrics provides Prometheus metrics for treeclone runs.
//
// A CLI run is short-lived, so metrics are not scraped; they are written in
// the text exposition format for the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jvs-project/treeclone/pkg/model"
)

const namespace = "treeclone"

var (
	enabled         bool
	enabledMutex    sync.RWMutex
	defaultRegistry *Registry
)

// Init enables metrics and installs a fresh default registry.
func Init() {
	enabledMutex.Lock()
	defer enabledMutex.Unlock()
	enabled = true
	defaultRegistry = NewRegistry()
}

// Enabled returns true if metrics are enabled.
func Enabled() bool {
	enabledMutex.RLock()
	defer enabledMutex.RUnlock()
	return enabled
}

// Default returns the default metrics registry, initializing it on first use.
func Default() *Registry {
	enabledMutex.RLock()
	r := defaultRegistry
	enabledMutex.RUnlock()
	if r == nil {
		Init()
		return Default()
	}
	return r
}

// Registry holds all treeclone collectors on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Runs           *prometheus.CounterVec
	FilesCopied    prometheus.Counter
	FilesSkipped   prometheus.Counter
	EntriesFailed  prometheus.Counter
	DirsEnsured    prometheus.Counter
	MissingEntries prometheus.Counter
	RunDuration    *prometheus.HistogramVec
	LastSuccess    *prometheus.GaugeVec
}

// NewRegistry creates a registry with every collector registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Clone and verify runs by outcome.",
		}, []string{"op", "outcome"}),
		FilesCopied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_copied_total",
			Help:      "Files written to a destination.",
		}),
		FilesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Files left untouched because the destination already existed.",
		}),
		EntriesFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_failed_total",
			Help:      "Entries recorded as failed by clones that continued on error.",
		}),
		DirsEnsured: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directories_ensured_total",
			Help:      "Destination directories created or found present.",
		}),
		MissingEntries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_missing_entries_total",
			Help:      "Expected destination paths reported missing by verification.",
		}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of clone and verify runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"op"}),
		LastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"op"}),
	}
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordClone records a finished clone. result is nil when the clone aborted.
func (r *Registry) RecordClone(result *model.CloneResult, duration time.Duration) {
	ok := result != nil && result.OK()
	r.Runs.WithLabelValues(string(model.RunClone), outcome(ok)).Inc()
	r.RunDuration.WithLabelValues(string(model.RunClone)).Observe(duration.Seconds())
	if result != nil {
		r.FilesCopied.Add(float64(result.Copied))
		r.FilesSkipped.Add(float64(result.Skipped))
		r.EntriesFailed.Add(float64(len(result.Failures)))
		r.DirsEnsured.Add(float64(result.DirsCreated))
	}
	if ok {
		r.LastSuccess.WithLabelValues(string(model.RunClone)).SetToCurrentTime()
	}
}

// RecordVerify records a finished verification. report is nil when it errored.
func (r *Registry) RecordVerify(report *model.VerificationReport, duration time.Duration) {
	ok := report != nil && report.Success
	r.Runs.WithLabelValues(string(model.RunVerify), outcome(ok)).Inc()
	r.RunDuration.WithLabelValues(string(model.RunVerify)).Observe(duration.Seconds())
	if report != nil {
		r.MissingEntries.Add(float64(len(report.Missing)))
	}
	if ok {
		r.LastSuccess.WithLabelValues(string(model.RunVerify)).SetToCurrentTime()
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
