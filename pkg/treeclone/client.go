package treeclone

import (
	"context"
	"fmt"

	"github.com/jvs-project/treeclone/internal/engine"
	"github.com/jvs-project/treeclone/internal/verify"
	"github.com/jvs-project/treeclone/pkg/fsys"
	"github.com/jvs-project/treeclone/pkg/logging"
	"github.com/jvs-project/treeclone/pkg/model"
	"github.com/jvs-project/treeclone/pkg/pathutil"
	"github.com/jvs-project/treeclone/pkg/progress"
)

// Re-exported types so callers need only this package for common use.
type (
	Site               = fsys.Site
	Options            = model.Options
	Scope              = model.Scope
	CloneResult        = model.CloneResult
	VerificationReport = model.VerificationReport
)

// Outcome is the result of CloneAndVerify.
type Outcome struct {
	Clone  *model.CloneResult        `json:"clone"`
	Report *model.VerificationReport `json:"verification"`
}

// OK reports whether the clone had no failures and verification passed.
func (o *Outcome) OK() bool {
	return o.Clone != nil && o.Clone.OK() && o.Report != nil && o.Report.Success
}

// Client runs clones and verifications with a shared logger and progress sink.
type Client struct {
	cloner   *engine.Cloner
	verifier *verify.Verifier
}

// ClientOptions configures a Client. Zero values are silent.
type ClientOptions struct {
	Logger   *logging.Logger
	Progress progress.Callback
}

// New creates a Client.
func New(opts ClientOptions) *Client {
	return &Client{
		cloner:   engine.NewCloner(engine.WithLogger(opts.Logger), engine.WithProgress(opts.Progress)),
		verifier: verify.NewVerifier(verify.WithLogger(opts.Logger), verify.WithProgress(opts.Progress)),
	}
}

// Clone reproduces src's tree under dst. ctx is only checked before the clone
// starts; a running clone is not interrupted.
func (c *Client) Clone(ctx context.Context, src, dst Site, opts Options) (*CloneResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.cloner.Clone(src, dst, opts)
}

// Verify reports the paths implied by src within s that are missing from dst.
func (c *Client) Verify(ctx context.Context, src, dst Site, s Scope) (*VerificationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.verifier.Verify(src, dst, s)
}

// CloneAndVerify clones and then verifies with the same scope. Verification
// runs even when the clone recorded failures, so the report shows what they
// left missing.
func (c *Client) CloneAndVerify(ctx context.Context, src, dst Site, opts Options) (*Outcome, error) {
	result, err := c.Clone(ctx, src, dst, opts)
	if err != nil {
		return nil, err
	}
	report, err := c.Verify(ctx, src, dst, opts.Scope)
	if err != nil {
		return &Outcome{Clone: result}, fmt.Errorf("after clone: %w", err)
	}
	return &Outcome{Clone: result, Report: report}, nil
}

var defaultClient = New(ClientOptions{})

// Clone runs Client.Clone on a silent client.
func Clone(ctx context.Context, src, dst Site, opts Options) (*CloneResult, error) {
	return defaultClient.Clone(ctx, src, dst, opts)
}

// Verify runs Client.Verify on a silent client.
func Verify(ctx context.Context, src, dst Site, s Scope) (*VerificationReport, error) {
	return defaultClient.Verify(ctx, src, dst, s)
}

// CloneAndVerify runs Client.CloneAndVerify on a silent client.
func CloneAndVerify(ctx context.Context, src, dst Site, opts Options) (*Outcome, error) {
	return defaultClient.CloneAndVerify(ctx, src, dst, opts)
}

// DefaultOptions returns recursive, non-overwriting, fail-fast options.
func DefaultOptions() Options {
	return model.DefaultOptions()
}

// LocalSite returns a site rooted at root on the local disk.
func LocalSite(root string) Site {
	return fsys.NewSite(fsys.NewLocal(), pathutil.Path(root))
}

// MemorySite returns a site rooted at root in a fresh in-memory store.
func MemorySite(root string) Site {
	return fsys.NewSite(fsys.NewMemory(), pathutil.Path(root))
}
