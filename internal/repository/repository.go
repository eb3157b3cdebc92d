// Package repository enforces the cross-entity rules of the ledger on top of
// the local store: identity generation, timestamps, input validation,
// cascading deletes and whole-store replacement.
//
// Every mutating call writes through to the store before it returns. There is
// no caching and no locking across calls; concurrent updates to the same
// record race at the store and the last write wins.
package repository

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/store"
)

// Clock supplies wall-clock time for createdAt and updatedAt stamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator produces fresh record identities.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identities.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Repository is the entity repository over a local store.
type Repository struct {
	store    *store.Store
	clock    Clock
	ids      IDGenerator
	logger   zerolog.Logger
	validate *validator.Validate
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the clock used for timestamps.
func WithClock(c Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithIDGenerator sets the identity generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Repository) { r.ids = g }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New creates a repository over s.
func New(s *store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:    s,
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		logger:   zerolog.Nop(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "repository").Logger()
	return r
}

// now returns the current instant in milliseconds.
func (r *Repository) now() int64 {
	return model.Millis(r.clock.Now())
}

// touch returns a fresh updatedAt that is strictly greater than prev even
// when the clock has not moved.
func (r *Repository) touch(prev int64) int64 {
	now := r.now()
	if now <= prev {
		return prev + 1
	}
	return now
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Money is compared numerically by gte/lte rules.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(model.Money); ok {
			return m.Float()
		}
		return nil
	}, model.Money{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check validates v and maps failures to INVALID_INPUT.
func (r *Repository) check(op string, v any) error {
	return invalidInput(op, r.validate.Struct(v))
}

// checkFields validates only the named struct fields of v.
func (r *Repository) checkFields(op string, v any, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return invalidInput(op, r.validate.StructPartial(v, fields...))
}

func invalidInput(op string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ledgererr.Wrap(ledgererr.CodeInvalidInput, op, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return ledgererr.New(ledgererr.CodeInvalidInput, op, strings.Join(parts, "; "))
}

// clean trims surrounding whitespace and applies Unicode NFC normalisation.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
