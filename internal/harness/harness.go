package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/roach88/ledgerbook/internal/backup"
	"github.com/roach88/ledgerbook/internal/codec"
	"github.com/roach88/ledgerbook/internal/config"
	"github.com/roach88/ledgerbook/internal/ledgererr"
	"github.com/roach88/ledgerbook/internal/model"
	"github.com/roach88/ledgerbook/internal/remote"
	"github.com/roach88/ledgerbook/internal/repository"
	"github.com/roach88/ledgerbook/internal/store"
	"github.com/roach88/ledgerbook/internal/testutil"
	"github.com/roach88/ledgerbook/internal/transfer"
)

// SessionID is the identity the harness signs in with for cloud steps.
const SessionID = "harness"

// lastArtifact is the alias of the most recent export when a step sets none.
const lastArtifact = "_last"

// Harness executes one scenario against a private store.
type Harness struct {
	scenario  *Scenario
	store     *store.Store
	repo      *repository.Repository
	clock     *testutil.DeterministicClock
	slot      *remote.MemorySlot
	aliases   map[string]string
	artifacts map[string][]byte
	logger    zerolog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes repository and transfer logs to l. Runs are silent by
// default.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh SQLite file in a temporary directory, a frozen
// clock and sequential ids, so two runs of the same scenario produce the
// same final state. A step that fails with a ledgererr is recorded in the
// trace; any other failure aborts the run.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "ledgerbook-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "harness.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario:  scenario,
		store:     st,
		clock:     testutil.NewFrozenClock(testutil.DefaultEpoch),
		slot:      remote.NewMemorySlot(),
		aliases:   map[string]string{},
		artifacts: map[string][]byte{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.repo = repository.New(st,
		repository.WithClock(h.clock),
		repository.WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
		repository.WithLogger(h.logger),
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		outcome := OutcomeOK
		stepErr := h.execute(ctx, step)
		if stepErr != nil {
			code := ledgererr.CodeOf(stepErr)
			if code == "" {
				return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Op, stepErr)
			}
			outcome = string(code)
		}
		result.AddTrace(step.Op, step.As, outcome)

		switch {
		case step.ExpectError != "" && outcome != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %s", i, step.Op, step.ExpectError, outcome))
		case step.ExpectError == "" && stepErr != nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, stepErr))
		}
	}

	ds, err := h.repo.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dump final state: %w", err)
	}
	snap := backup.Build(ds.Customers, ds.Invoices, ds.Images, h.appName(), h.clock.Now())
	result.State = &snap

	for _, msg := range EvaluateAssertions(ds, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) appName() string {
	if h.scenario.AppName != "" {
		return h.scenario.AppName
	}
	return config.DefaultAppName
}

func (h *Harness) engine(args StepArgs) *transfer.Engine {
	mode := repository.ReplaceSequential
	if h.scenario.ReplaceMode != "" {
		mode = repository.ReplaceMode(h.scenario.ReplaceMode)
	}
	return transfer.New(h.repo,
		transfer.WithAppName(h.appName()),
		transfer.WithClock(h.clock),
		transfer.WithRemote(h.slot),
		transfer.WithSession(transfer.StaticSession{ID: SessionID, Reachable: !args.Offline}),
		transfer.WithReplaceMode(mode),
		transfer.WithStrict(args.Strict),
		transfer.WithLogger(h.logger),
	)
}

// resolve maps an alias to the record id bound to it. Unknown aliases are
// used as literal ids.
func (h *Harness) resolve(alias string) string {
	if id, ok := h.aliases[alias]; ok {
		return id
	}
	return alias
}

func (h *Harness) bind(alias, id string) {
	if alias != "" {
		h.aliases[alias] = id
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseTotal(op, s string) (model.Money, error) {
	if s == "" {
		return model.Zero, nil
	}
	m, err := model.ParseMoney(s)
	if err != nil {
		return model.Money{}, ledgererr.Wrap(ledgererr.CodeInvalidInput, op, err)
	}
	return m, nil
}

// execute runs one step.
func (h *Harness) execute(ctx context.Context, step Step) error {
	a := step.Args

	switch step.Op {
	case OpCreateCustomer:
		c, err := h.repo.CreateCustomer(ctx, repository.NewCustomer{
			Name:    a.Name,
			Phone:   a.Phone,
			Email:   a.Email,
			Address: a.Address,
			Notes:   a.Notes,
		})
		if err != nil {
			return err
		}
		h.bind(step.As, c.ID)

	case OpUpdateCustomer:
		_, err := h.repo.UpdateCustomer(ctx, h.resolve(a.Customer), repository.CustomerPatch{
			Name:    optional(a.Name),
			Phone:   optional(a.Phone),
			Email:   optional(a.Email),
			Address: optional(a.Address),
			Notes:   optional(a.Notes),
		})
		return err

	case OpDeleteCustomer:
		return h.repo.DeleteCustomer(ctx, h.resolve(a.Customer))

	case OpCreateInvoice:
		total, err := parseTotal("create invoice", a.Total)
		if err != nil {
			return err
		}
		inv, err := h.repo.CreateInvoice(ctx, repository.NewInvoice{
			CustomerID:    h.resolve(a.Customer),
			InvoiceNumber: a.Number,
			Description:   a.Description,
			Total:         total,
			Status:        model.Status(a.Status),
		})
		if err != nil {
			return err
		}
		h.bind(step.As, inv.ID)

	case OpUpdateInvoice:
		patch := repository.InvoicePatch{
			InvoiceNumber: optional(a.Number),
			Description:   optional(a.Description),
		}
		if a.Total != "" {
			total, err := parseTotal("update invoice", a.Total)
			if err != nil {
				return err
			}
			patch.Total = &total
		}
		if a.Status != "" {
			status := model.Status(a.Status)
			patch.Status = &status
		}
		_, err := h.repo.UpdateInvoice(ctx, h.resolve(a.Invoice), patch)
		return err

	case OpDeleteInvoice:
		return h.repo.DeleteInvoice(ctx, h.resolve(a.Invoice))

	case OpAttachImage:
		data, err := codec.Decode(a.Data)
		if err != nil {
			return err
		}
		inv, err := h.repo.AttachImage(ctx, h.resolve(a.Invoice), data, a.Filename)
		if err != nil {
			return err
		}
		h.bind(step.As, inv.ImageIDs[len(inv.ImageIDs)-1])

	case OpExport:
		art, err := h.engine(a).Export(ctx)
		if err != nil {
			return err
		}
		h.artifacts[lastArtifact] = art.Data
		if step.As != "" {
			h.artifacts[step.As] = art.Data
		}

	case OpWipe:
		_, err := h.repo.Replace(ctx, repository.Batch{}, repository.ReplaceAtomic)
		return err

	case OpImport:
		doc, err := h.document(a)
		if err != nil {
			return err
		}
		_, err = h.engine(a).Import(ctx, bytes.NewReader(doc))
		return err

	case OpUpload:
		return h.engine(a).Upload(ctx)

	case OpDownload:
		_, err := h.engine(a).Download(ctx)
		return err

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// document returns the backup text an import step reads.
func (h *Harness) document(a StepArgs) ([]byte, error) {
	if a.Document != "" {
		return []byte(a.Document), nil
	}
	from := a.From
	if from == "" {
		from = lastArtifact
	}
	doc, ok := h.artifacts[from]
	if !ok {
		return nil, fmt.Errorf("no exported artifact %q", a.From)
	}
	return doc, nil
}
