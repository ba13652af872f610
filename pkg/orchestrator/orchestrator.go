// Package orchestrator drives the payment lifecycle: a preview that
// parks a confirmable intent, and a confirmed execution that runs the
// portal automation under a hard deadline and records the outcome.
//
// Two properties are enforced here and nowhere above: execution is
// released only by confirming a stored intent, and the ledger alone
// decides whether a CE is already paid before any browser launches.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freightops/afrmm/pkg/intent"
	"github.com/freightops/afrmm/pkg/ledger"
	"github.com/freightops/afrmm/pkg/logging"
	"github.com/freightops/afrmm/pkg/money"
	"github.com/freightops/afrmm/pkg/portal"
	"github.com/freightops/afrmm/pkg/resolver"
)

// ErrCENotFound is returned by a CEResolver when the process reference
// does not map to a CE number.
var ErrCENotFound = errors.New("no CE number for process reference")

// CEResolver maps a freight process reference to its CE number.
type CEResolver interface {
	ResolveCE(ctx context.Context, processRef string) (string, error)
}

// ValueResolver determines amount due and paid status for a CE.
type ValueResolver interface {
	Resolve(ctx context.Context, ceNumber string) (*resolver.Resolution, error)
}

// IntentStore is the confirmation gate between preview and execution.
type IntentStore interface {
	Create(ctx context.Context, sessionID, actionType, toolName string, args map[string]string, previewText string, ttl time.Duration) (string, error)
	Get(ctx context.Context, intentID string) (*intent.Intent, error)
	Confirm(ctx context.Context, intentID string) (*intent.Intent, error)
}

// PaymentLedger records completed payments and answers paid-status
// checks.
type PaymentLedger interface {
	RecordSuccess(ctx context.Context, facts ledger.Facts, receiptRef string) (string, error)
	FindLastSuccess(ctx context.Context, ceNumber string) (*ledger.Record, error)
}

// ReceiptSink stores a receipt artifact and returns its reference.
type ReceiptSink interface {
	Store(data []byte) (string, error)
}

const (
	actionTypePayAfrmm = "pay_afrmm"
	toolNamePortal     = "afrmm_portal"
)

// Config carries the static payment parameters.
type Config struct {
	// Bank is the debit account used for every payment.
	Bank ledger.BankFields

	// IntentTTL is the confirmation window. Defaults to 15 minutes.
	IntentTTL time.Duration

	// ExecutionDeadline bounds one confirmed attempt end to end.
	// Defaults to 180 seconds.
	ExecutionDeadline time.Duration
}

func (c Config) withDefaults() Config {
	if c.IntentTTL == 0 {
		c.IntentTTL = 15 * time.Minute
	}
	if c.ExecutionDeadline == 0 {
		c.ExecutionDeadline = 180 * time.Second
	}
	return c
}

// Orchestrator composes the resolvers, the intent gate, the ledger and
// the portal runner.
type Orchestrator struct {
	ces      CEResolver
	values   ValueResolver
	intents  IntentStore
	records  PaymentLedger
	receipts ReceiptSink
	runner   Runner
	cfg      Config
	log      *logging.Logger
}

// New creates an Orchestrator. A nil logger disables logging.
func New(ces CEResolver, values ValueResolver, intents IntentStore, records PaymentLedger, receipts ReceiptSink, runner Runner, cfg Config, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		ces:      ces,
		values:   values,
		intents:  intents,
		records:  records,
		receipts: receipts,
		runner:   runner,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
}

// Preview resolves the process reference, determines what is due, and
// parks a pending intent whose confirmation is the only path to
// execution. Nothing irreversible happens here; a failure to store the
// intent fails the preview because an unconfirmable payment must not
// appear confirmable.
func (o *Orchestrator) Preview(ctx context.Context, sessionID, processRef string) (*Preview, error) {
	ce, err := o.ces.ResolveCE(ctx, processRef)
	if err != nil {
		return nil, fmt.Errorf("resolve CE for process %s: %w", processRef, err)
	}

	res, err := o.values.Resolve(ctx, ce)
	if err != nil {
		return nil, fmt.Errorf("resolve value for CE %s: %w", ce, err)
	}

	text := renderPreview(processRef, res, o.cfg.Bank)

	args := map[string]string{
		"process_ref": processRef,
		"ce_number":   ce,
	}
	// Volatile display fields ride along for the record but are
	// excluded from the dedupe hash, so a re-preview with a fresher
	// amount reuses the same intent.
	if res.Status == resolver.StatusDue {
		args["amount_due"] = res.AmountDue.String()
	}
	if !res.ObservedAt.IsZero() {
		args["resolved_at"] = res.ObservedAt.UTC().Format(time.RFC3339)
	}
	if res.Caveat != "" {
		args["caveat"] = res.Caveat
	}

	id, err := o.intents.Create(ctx, sessionID, actionTypePayAfrmm, toolNamePortal, args, text, o.cfg.IntentTTL)
	if err != nil {
		return nil, fmt.Errorf("store pending intent: %w", err)
	}

	o.infof("preview ready for process %s (CE %s, intent %s)", processRef, ce, id)
	return &Preview{
		IntentID:   id,
		ProcessRef: processRef,
		CENumber:   ce,
		Resolution: res,
		Text:       text,
	}, nil
}

// Confirm consumes a pending intent and executes the payment. A second
// Confirm of the same intent lands on INTENT_NOT_FOUND without ever
// touching the portal. The returned error is reserved for
// infrastructure failures; every payment outcome, including failures,
// arrives as a Result.
func (o *Orchestrator) Confirm(ctx context.Context, intentID string) (*Result, error) {
	it, err := o.intents.Confirm(ctx, intentID)
	switch {
	case errors.Is(err, intent.ErrExpired):
		return failedResult("", "", CodeIntentExpired, err), nil
	case errors.Is(err, intent.ErrNotFound):
		return failedResult("", "", CodeIntentNotFound, err), nil
	case err != nil:
		return nil, fmt.Errorf("confirm intent %s: %w", intentID, err)
	}
	return o.execute(ctx, it)
}

// Retry re-executes an intent that was confirmed but whose attempt
// failed, without requiring a fresh preview. The ledger recheck inside
// execution makes a retry after an unnoticed success an ALREADY_PAID
// short-circuit instead of a second payment.
func (o *Orchestrator) Retry(ctx context.Context, intentID string) (*Result, error) {
	it, err := o.intents.Get(ctx, intentID)
	if errors.Is(err, intent.ErrNotFound) {
		return failedResult("", "", CodeIntentNotFound, err), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load intent %s: %w", intentID, err)
	}
	if it.Status != intent.StatusConfirmed {
		return failedResult("", "", CodeIntentNotFound, fmt.Errorf("intent %s is %s, not confirmed", intentID, it.Status)), nil
	}
	if it.Expired(time.Now().UTC()) {
		return failedResult("", "", CodeIntentExpired, intent.ErrExpired), nil
	}
	return o.execute(ctx, it)
}

func (o *Orchestrator) execute(ctx context.Context, it *intent.Intent) (*Result, error) {
	ce := it.Args["ce_number"]
	processRef := it.Args["process_ref"]

	// Last recheck before the browser launches. Only the ledger is
	// consulted; an external paid claim without a record here does not
	// block execution, and a record here blocks it unconditionally.
	rec, err := o.records.FindLastSuccess(ctx, ce)
	if err != nil {
		return nil, fmt.Errorf("ledger recheck for CE %s: %w", ce, err)
	}
	if rec != nil {
		o.infof("CE %s already recorded as paid (record %s), skipping execution", ce, rec.ID)
		return &Result{
			State:      StateAlreadyPaid,
			Code:       CodeAlreadyPaid,
			Message:    Message(CodeAlreadyPaid),
			ProcessRef: processRef,
			CENumber:   ce,
			AmountPaid: rec.AmountPaid,
			Bank:       rec.Bank,
			ReceiptRef: rec.ReceiptRef,
			RecordID:   rec.ID,
		}, nil
	}

	req := portal.Request{
		CENumber: ce,
		BankCode: o.cfg.Bank.BankCode,
		Branch:   o.cfg.Bank.Branch,
		Account:  o.cfg.Bank.Account,
	}
	if due, err := money.ParseBRL(it.Args["amount_due"]); err == nil {
		req.AmountDue = due
	}

	execCtx, cancel := context.WithTimeout(ctx, o.cfg.ExecutionDeadline)
	defer cancel()

	o.infof("executing payment for CE %s (intent %s, deadline %s)", ce, it.ID, o.cfg.ExecutionDeadline)
	ch := startAttempt(execCtx, o.runner, req)

	select {
	case res := <-ch:
		return o.settle(ctx, processRef, ce, req, res)
	case <-execCtx.Done():
		// The attempt may still land after this point. The outcome is
		// unknown, never assumed failed.
		o.errorf("payment attempt for CE %s hit the execution deadline", ce)
		return failedResult(processRef, ce, CodeAutomationTimeout, execCtx.Err()), nil
	}
}

func (o *Orchestrator) settle(ctx context.Context, processRef, ce string, req portal.Request, res attemptResult) (*Result, error) {
	if res.err != nil {
		switch {
		case errors.Is(res.err, portal.ErrTerminalNotObserved):
			o.errorf("terminal state not observed for CE %s: %v", ce, res.err)
			return failedResult(processRef, ce, CodeTerminalNotObserved, res.err), nil
		case errors.Is(res.err, context.DeadlineExceeded):
			o.errorf("payment attempt for CE %s timed out: %v", ce, res.err)
			return failedResult(processRef, ce, CodeAutomationTimeout, res.err), nil
		default:
			o.errorf("payment attempt for CE %s failed: %v", ce, res.err)
			return failedResult(processRef, ce, CodeAutomationStepFailed, res.err), nil
		}
	}

	outcome := res.outcome
	if outcome.AlreadyPaid {
		// Record the external settlement so future resolutions never
		// query the billed API for this CE again.
		facts := ledger.Facts{
			CENumber:   ce,
			ProcessRef: processRef,
			Status:     ledger.StatusConfirmedExternal,
			Bank:       o.cfg.Bank,
		}
		if _, err := o.records.RecordSuccess(ctx, facts, ""); err != nil {
			o.warnf("recording external settlement for CE %s failed: %v", ce, err)
		}
		return &Result{
			State:      StateAlreadyPaid,
			Code:       CodeAlreadyPaid,
			Message:    Message(CodeAlreadyPaid),
			ProcessRef: processRef,
			CENumber:   ce,
			Bank:       o.cfg.Bank,
		}, nil
	}

	receiptRef := o.storeReceipt(ce, outcome)
	result := &Result{
		State:      StateSucceeded,
		Message:    "Payment completed; the portal confirmed it.",
		ProcessRef: processRef,
		CENumber:   ce,
		AmountPaid: outcome.AmountPaid,
		Bank:       o.cfg.Bank,
		ReceiptRef: receiptRef,
	}

	facts := ledger.Facts{
		CENumber:   ce,
		ProcessRef: processRef,
		Status:     ledger.StatusSuccess,
		Bank:       o.cfg.Bank,
		AmountDue:  req.AmountDue,
		AmountPaid: outcome.AmountPaid,
	}
	recordID, err := o.records.RecordSuccess(ctx, facts, receiptRef)
	if err != nil {
		// Money moved. A missing record must never turn the report
		// into a failure; it surfaces as a warning and a loud log.
		o.errorf("payment for CE %s succeeded but ledger write failed: %v", ce, err)
		result.Warning = Message(CodePersistFailed)
		return result, nil
	}

	result.RecordID = recordID
	o.infof("payment for CE %s recorded as %s", ce, recordID)
	return result, nil
}

// storeReceipt persists the best available receipt artifact. The PDF
// render is preferred; the success screen HTML is the fallback. A
// storage failure degrades to an empty reference, it never fails the
// payment report.
func (o *Orchestrator) storeReceipt(ce string, outcome *portal.Outcome) string {
	if o.receipts == nil {
		return ""
	}
	if len(outcome.ReceiptPDF) > 0 {
		ref, err := o.receipts.Store(outcome.ReceiptPDF)
		if err == nil {
			return ref
		}
		o.warnf("storing PDF receipt for CE %s failed: %v", ce, err)
	}
	if len(outcome.ReceiptHTML) > 0 {
		ref, err := o.receipts.Store(outcome.ReceiptHTML)
		if err == nil {
			return ref
		}
		o.warnf("storing HTML receipt for CE %s failed: %v", ce, err)
	}
	return ""
}

func failedResult(processRef, ce string, code Code, err error) *Result {
	return &Result{
		State:      StateFailed,
		Code:       code,
		Message:    Message(code),
		ProcessRef: processRef,
		CENumber:   ce,
		Err:        err,
	}
}

func (o *Orchestrator) infof(format string, v ...interface{}) {
	if o.log != nil {
		o.log.Infof(format, v...)
	}
}

func (o *Orchestrator) warnf(format string, v ...interface{}) {
	if o.log != nil {
		o.log.Warnf(format, v...)
	}
}

func (o *Orchestrator) errorf(format string, v ...interface{}) {
	if o.log != nil {
		o.log.Errorf(format, v...)
	}
}
