// Package resolver determines how much is due for a CE and whether it
// was already paid. The payment ledger is consulted first and is
// authoritative for paid status; the billed lookup API is only called
// when the ledger has no answer, and a refused duplicate query falls
// back to a cached, caveated value so the preview still renders.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freightops/afrmm/pkg/ledger"
	"github.com/freightops/afrmm/pkg/logging"
	"github.com/freightops/afrmm/pkg/money"
)

// Status classifies the resolution outcome.
type Status string

const (
	// StatusDue means an amount is outstanding.
	StatusDue Status = "due"

	// StatusPaid means the surcharge is settled.
	StatusPaid Status = "paid"

	// StatusUnknown means neither an amount nor a paid flag could be
	// determined. Unknown is never reported as paid.
	StatusUnknown Status = "unknown"
)

// Source names for Resolution.Source.
const (
	SourceLedger     = "ledger"
	SourceLookup     = "lookup"
	SourceStaleCache = "stale-cache"
)

// Caveat values attached to degraded resolutions.
const (
	CaveatStaleCache      = "stale-cache"
	CaveatValueUnresolved = "value-unresolved"
	CaveatExternalPaid    = "reported-paid-externally"
)

// Resolution is the answer handed to the preview and the orchestrator.
type Resolution struct {
	CENumber    string
	Status      Status
	AmountDue   money.Centavos
	AlreadyPaid bool
	Source      string
	Caveat      string
	ObservedAt  time.Time
	Balance     *money.Centavos
}

// LookupClient is the billed external valuation API.
type LookupClient interface {
	GetValueAndStatus(ctx context.Context, ceNumber string) (*Valuation, error)
}

// LedgerReader is the subset of the payment ledger the resolver needs.
type LedgerReader interface {
	FindLastSuccess(ctx context.Context, ceNumber string) (*ledger.Record, error)
}

// BalanceChecker reports the payer account balance. It is best-effort:
// failures degrade the preview, never block it.
type BalanceChecker interface {
	Balance(ctx context.Context) (money.Centavos, error)
}

// Resolver composes the ledger, the billed lookup, the stale cache and
// the optional balance check.
type Resolver struct {
	ledger  LedgerReader
	lookup  LookupClient
	cache   *StaleCache
	balance BalanceChecker
	log     *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBalanceChecker attaches a best-effort balance source.
func WithBalanceChecker(b BalanceChecker) Option {
	return func(r *Resolver) { r.balance = b }
}

// WithLogger attaches a component logger.
func WithLogger(log *logging.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// New creates a Resolver.
func New(ledgerReader LedgerReader, lookup LookupClient, cache *StaleCache, opts ...Option) *Resolver {
	r := &Resolver{ledger: ledgerReader, lookup: lookup, cache: cache}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve determines the amount due and paid status for a CE.
//
// Once a completed-payment record exists the billed API is never
// queried again for that CE; the ledger answer short-circuits
// everything else. Lookup failures degrade to a caveated resolution
// rather than an error so a preview is always possible.
func (r *Resolver) Resolve(ctx context.Context, ceNumber string) (*Resolution, error) {
	rec, err := r.ledger.FindLastSuccess(ctx, ceNumber)
	if err != nil {
		return nil, fmt.Errorf("ledger check for CE %s: %w", ceNumber, err)
	}
	if rec != nil {
		return &Resolution{
			CENumber:    ceNumber,
			Status:      StatusPaid,
			AmountDue:   0,
			AlreadyPaid: true,
			Source:      SourceLedger,
			ObservedAt:  rec.CreatedAt,
		}, nil
	}

	res := r.resolveExternal(ctx, ceNumber)
	r.attachBalance(ctx, res)
	return res, nil
}

func (r *Resolver) resolveExternal(ctx context.Context, ceNumber string) *Resolution {
	valuation, err := r.lookup.GetValueAndStatus(ctx, ceNumber)
	if err != nil {
		if errors.Is(err, ErrDuplicateQuery) {
			return r.fromCache(ceNumber)
		}
		r.logf("lookup for CE %s failed: %v", ceNumber, err)
		return &Resolution{
			CENumber: ceNumber,
			Status:   StatusUnknown,
			Source:   SourceLookup,
			Caveat:   CaveatValueUnresolved,
		}
	}

	res := &Resolution{
		CENumber:   ceNumber,
		Source:     SourceLookup,
		ObservedAt: time.Now().UTC(),
	}

	switch {
	case !valuation.HasAmount && !valuation.HasPaidFlag:
		// A response carrying neither field answers nothing. It must
		// never be read as already paid.
		res.Status = StatusUnknown
		res.Caveat = CaveatValueUnresolved
	case valuation.HasPaidFlag && valuation.Paid:
		// The API says paid but the ledger has no record. The ledger
		// alone gates execution; surface the external claim as a
		// caveat for the preview instead of trusting it.
		res.Status = StatusPaid
		res.Caveat = CaveatExternalPaid
	default:
		res.Status = StatusDue
		res.AmountDue = valuation.AmountDue
		if valuation.HasAmount && r.cache != nil {
			if err := r.cache.Put(ceNumber, valuation.AmountDue); err != nil {
				r.logf("value cache write for CE %s failed: %v", ceNumber, err)
			}
		}
	}
	return res
}

func (r *Resolver) fromCache(ceNumber string) *Resolution {
	if r.cache != nil {
		if amount, observedAt, ok := r.cache.Get(ceNumber); ok {
			r.logf("lookup deduped for CE %s, using cached value from %s", ceNumber, observedAt.Format(time.RFC3339))
			return &Resolution{
				CENumber:   ceNumber,
				Status:     StatusDue,
				AmountDue:  amount,
				Source:     SourceStaleCache,
				Caveat:     CaveatStaleCache,
				ObservedAt: observedAt,
			}
		}
	}
	return &Resolution{
		CENumber: ceNumber,
		Status:   StatusUnknown,
		Source:   SourceStaleCache,
		Caveat:   CaveatValueUnresolved,
	}
}

func (r *Resolver) attachBalance(ctx context.Context, res *Resolution) {
	if r.balance == nil {
		return
	}
	amount, err := r.balance.Balance(ctx)
	if err != nil {
		r.logf("balance check failed: %v", err)
		return
	}
	res.Balance = &amount
}

func (r *Resolver) logf(format string, v ...interface{}) {
	if r.log != nil {
		r.log.Warnf(format, v...)
	}
}
