// Package transfer moves the whole store in and out of the process: export
// to a backup file, import-and-replace from one, and upload/download against
// the remote backup slot. It is the only package that performs destructive
// whole-store replacement.
//
// Every operation runs its steps strictly in order. Validation and
// preconditions are checked before any mutation; once replacement starts the
// context is no longer consulted.
package transfer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/ledgerbook/internal/config"
	"github.com/roach88/ledgerbook/internal/remote"
	"github.com/roach88/ledgerbook/internal/repository"
)

// Session supplies the cloud preconditions: an authenticated identity and
// network reachability. Neither is retried.
type Session interface {
	Identity() string
	Online(ctx context.Context) bool
}

// StaticSession is a Session with fixed answers.
type StaticSession struct {
	ID        string
	Reachable bool
}

// Identity returns ID.
func (s StaticSession) Identity() string { return s.ID }

// Online returns Reachable.
func (s StaticSession) Online(context.Context) bool { return s.Reachable }

// ProbeSession is online when Probe succeeds.
type ProbeSession struct {
	ID    string
	Probe func(ctx context.Context) error
}

// Identity returns ID.
func (s ProbeSession) Identity() string { return s.ID }

// Online calls Probe. A nil Probe counts as online.
func (s ProbeSession) Online(ctx context.Context) bool {
	return s.Probe == nil || s.Probe(ctx) == nil
}

// Artifact is a named document ready for delivery.
type Artifact struct {
	Filename string
	Data     []byte
}

// Summary counts the records restored by an import or download.
type Summary = repository.Summary

// Engine runs transfer operations over a repository.
type Engine struct {
	repo    *repository.Repository
	appName string
	clock   repository.Clock
	slot    remote.Slot
	session Session
	mode    repository.ReplaceMode
	strict  bool
	logger  zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAppName sets the application name written into backups and file names.
func WithAppName(name string) Option {
	return func(e *Engine) { e.appName = name }
}

// WithClock sets the clock used for snapshot timestamps and file names.
func WithClock(c repository.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRemote sets the remote slot used by Upload and Download.
func WithRemote(s remote.Slot) Option {
	return func(e *Engine) { e.slot = s }
}

// WithSession sets the cloud precondition source.
func WithSession(s Session) Option {
	return func(e *Engine) { e.session = s }
}

// WithReplaceMode selects sequential (default) or atomic replacement.
func WithReplaceMode(m repository.ReplaceMode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithStrict enables schema and integrity validation on import and download.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over repo.
func New(repo *repository.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:    repo,
		appName: config.DefaultAppName,
		clock:   repository.SystemClock{},
		mode:    repository.ReplaceSequential,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "transfer").Logger()
	return e
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}
