// Package verify implements the verification operator: a read-only pass over
// a source and a destination site that reports every source-derived path
// missing from the destination.
package verify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jvs-project/treeclone/internal/scope"
	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/logging"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
	"github.com/jvs-project/treeclone/pkg/progress"
)

// OpCheck is the progress op name reported while expected entries are checked.
const OpCheck = "verify"

// Verifier checks that a destination holds every path its source implies.
// It shares no state with the cloner and may be reused across calls.
type Verifier struct {
	logger   *logging.Logger
	progress progress.Callback
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger routes verification diagnostics to l.
func WithLogger(l *logging.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithProgress reports each expected entry checked to cb.
func WithProgress(cb progress.Callback) Option {
	return func(v *Verifier) {
		if cb != nil {
			v.progress = cb
		}
	}
}

// NewVerifier creates a Verifier. Without options it is silent.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		logger:   logging.Nop(),
		progress: progress.Noop,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

type expected struct {
	key  string
	dest pathutil.Path
}

// Verify computes the destination paths implied by src's tree within s and
// reports those absent from dst. Extra destination entries are ignored and
// file contents are not compared. A missing destination root is reported as
// every expected path missing rather than as an error.
func (v *Verifier) Verify(src, dst fsys.Site, s model.Scope) (*model.VerificationReport, error) {
	mapper, err := scope.NewMapper(src, dst, s)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var want []expected
	for e, err := range src.FS.Enumerate(src.Root, true) {
		if err != nil {
			return nil, fmt.Errorf("verify source: %w", err)
		}
		m, err := mapper.Map(e)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		if m.InScope {
			want = append(want, expected{key: m.SlashRel, dest: m.Dest})
		}
	}

	have, err := v.actual(dst)
	if err != nil {
		return nil, fmt.Errorf("verify destination: %w", err)
	}

	p := progress.New(OpCheck, len(want), v.progress)
	var missing []expected
	for _, w := range want {
		if !have[w.key] {
			missing = append(missing, w)
			v.logger.Debug("missing entry", map[string]any{"path": string(w.dest)})
		}
		p.Increment(w.key)
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].key < missing[j].key })

	report := &model.VerificationReport{
		Success: len(missing) == 0,
		Missing: make([]pathutil.Path, 0, len(missing)),
		Checked: len(want),
	}
	for _, m := range missing {
		report.Missing = append(report.Missing, m.dest)
	}

	v.logger.Info("verification finished", map[string]any{
		"source":      string(src.Root),
		"destination": string(dst.Root),
		"checked":     report.Checked,
		"missing":     len(report.Missing),
		"success":     report.Success,
	})
	return report, nil
}

// actual returns the relative slash paths of everything under dst's root.
func (v *Verifier) actual(dst fsys.Site) (map[string]bool, error) {
	have := make(map[string]bool)
	exists, err := dst.FS.Exists(dst.Root)
	if err != nil {
		return nil, err
	}
	if !exists {
		return have, nil
	}

	op := dst.FS.Operator()
	for e, err := range dst.FS.Enumerate(dst.Root, true) {
		if err != nil {
			return nil, err
		}
		rel, err := op.Relativize(dst.Root, e.Path)
		if err != nil {
			return nil, err
		}
		have[strings.Join(op.Segments(rel), "/")] = true
	}
	return have, nil
}
