package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/freightops/afrmm/pkg/logging"
	"github.com/freightops/afrmm/pkg/money"
)

// Driver walks the portal through the payment sequence for a single
// CE. Steps are strictly sequential; the portal's frames are not safe
// for concurrent interaction. Transient failures retry only the
// current step, and the pay click itself is never retried.
type Driver struct {
	page Page
	cfg  Config
	log  *logging.Logger
}

// NewDriver creates a driver over an open portal page. A nil logger
// disables logging.
func NewDriver(page Page, cfg Config, log *logging.Logger) *Driver {
	return &Driver{page: page, cfg: cfg.withDefaults(), log: log}
}

func (d *Driver) debugf(format string, v ...interface{}) {
	if d.log != nil {
		d.log.Debugf(format, v...)
	}
}

func (d *Driver) infof(format string, v ...interface{}) {
	if d.log != nil {
		d.log.Infof(format, v...)
	}
}

func (d *Driver) warnf(format string, v ...interface{}) {
	if d.log != nil {
		d.log.Warnf(format, v...)
	}
}

// Execute runs the full payment sequence and returns the terminal
// outcome. An Outcome with Success=true is produced only after the
// terminal success marker is observed in a frame; every other path is
// an error or an explicit AlreadyPaid outcome.
func (d *Driver) Execute(ctx context.Context, req Request) (*Outcome, error) {
	d.infof("starting payment sequence for CE %s", req.CENumber)

	if err := d.runStep(ctx, StepAuthenticate, d.cfg.StepAttempts, func() error {
		return d.authenticate(ctx)
	}); err != nil {
		return nil, err
	}

	if err := d.runStep(ctx, StepLocateMenu, d.cfg.StepAttempts, func() error {
		return d.locateMenu(ctx)
	}); err != nil {
		return nil, err
	}

	if err := d.runStep(ctx, StepSelectAction, d.cfg.StepAttempts, func() error {
		return d.selectAction(ctx)
	}); err != nil {
		return nil, err
	}

	if err := d.runStep(ctx, StepFillIdentifier, d.cfg.StepAttempts, func() error {
		return d.fillIdentifier(ctx, req.CENumber)
	}); err != nil {
		return nil, err
	}

	// The value screen may already report the CE as settled; that is
	// a terminal outcome, not an error, and the pay flow must stop
	// here without touching the bank fields.
	if IsAlreadyPaid(AnyFrameText(d.page)) {
		d.infof("portal reports CE %s already settled", req.CENumber)
		return &Outcome{AlreadyPaid: true, TerminalText: "already settled"}, nil
	}

	screenAmount, balance := d.readValueScreen()

	if err := d.runStep(ctx, StepFillBankDetails, d.cfg.StepAttempts, func() error {
		return d.fillBankDetails(ctx, req)
	}); err != nil {
		return nil, err
	}

	// Point of no return. The confirmation dialog is only accepted
	// under explicit authorization; without it the attempt stops
	// before the pay click rather than submitting and dismissing.
	if !d.cfg.AuthorizePayDialog {
		return nil, &StepError{Step: StepConfirmDialog, Err: ErrDialogNotAuthorized}
	}
	d.page.SetDialogPolicy(true)

	// Single attempt: a pay click that may have reached the server
	// must never be repeated.
	if err := d.runStep(ctx, StepClickPay, 1, func() error {
		return d.clickPay()
	}); err != nil {
		return nil, err
	}

	outcome, err := d.observeTerminal(ctx, req)
	if err != nil {
		return nil, err
	}

	if outcome.AmountPaid == 0 {
		if screenAmount != 0 {
			outcome.AmountPaid = screenAmount
		} else {
			outcome.AmountPaid = req.AmountDue
		}
	}
	outcome.Balance = balance
	return outcome, nil
}

// runStep executes fn up to attempts times, retrying only this step.
// Restarting the whole sequence on a transient error risks a second
// pay submission, so that never happens here.
func (d *Driver) runStep(ctx context.Context, name string, attempts int, fn func() error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &StepError{Step: name, Err: ctxErr}
		}
		if err = fn(); err == nil {
			d.debugf("step %s completed (attempt %d/%d)", name, i, attempts)
			return nil
		}
		d.warnf("step %s attempt %d/%d failed: %v", name, i, attempts, err)
	}
	return &StepError{Step: name, Err: err}
}

func (d *Driver) authenticate(ctx context.Context) error {
	frame, err := d.waitForFrame(ctx, "senha")
	if err != nil {
		return fmt.Errorf("login screen not found: %w", err)
	}
	if err := fillAny(frame, loginUserStrategies, d.cfg.Username, d.cfg.StepTimeout); err != nil {
		return err
	}
	if err := fillAny(frame, loginPasswordStrategies, d.cfg.Password, d.cfg.StepTimeout); err != nil {
		return err
	}
	return clickAny(frame, loginSubmitStrategies, d.cfg.StepTimeout)
}

func (d *Driver) locateMenu(ctx context.Context) error {
	frame, err := d.waitForFrame(ctx, "pagamento")
	if err != nil {
		return fmt.Errorf("payment menu not found: %w", err)
	}
	return clickAny(frame, paymentMenuStrategies, d.cfg.StepTimeout)
}

func (d *Driver) selectAction(ctx context.Context) error {
	frame, err := d.waitForFrame(ctx, "pagar afrmm")
	if err != nil {
		return fmt.Errorf("pay action not found: %w", err)
	}
	return clickAny(frame, payAfrmmActionStrategies, d.cfg.StepTimeout)
}

func (d *Driver) fillIdentifier(ctx context.Context, ceNumber string) error {
	frame, err := d.waitForFrame(ctx, "numero do ce")
	if err != nil {
		return fmt.Errorf("CE entry screen not found: %w", err)
	}
	if err := fillAny(frame, ceFieldStrategies, ceNumber, d.cfg.StepTimeout); err != nil {
		return err
	}
	return clickAny(frame, ceSearchStrategies, d.cfg.StepTimeout)
}

func (d *Driver) fillBankDetails(ctx context.Context, req Request) error {
	frame, err := d.waitForFrame(ctx, "banco")
	if err != nil {
		return fmt.Errorf("bank details screen not found: %w", err)
	}
	if err := fillAny(frame, bankCodeStrategies, req.BankCode, d.cfg.StepTimeout); err != nil {
		return err
	}
	if err := fillAny(frame, branchStrategies, req.Branch, d.cfg.StepTimeout); err != nil {
		return err
	}
	return fillAny(frame, accountStrategies, req.Account, d.cfg.StepTimeout)
}

func (d *Driver) clickPay() error {
	// Re-entry guard: if the success marker is already on screen the
	// sequence reached this state twice; re-clicking Pay here is the
	// double-payment path and must short-circuit instead.
	if IsTerminalSuccess(AnyFrameText(d.page)) {
		d.warnf("terminal marker already present before pay click, short-circuiting")
		return nil
	}

	frame, ok := FindInAnyFrame(d.page, FrameWithText("pagar"))
	if !ok {
		return fmt.Errorf("pay button not found in any frame")
	}
	return clickAny(frame, payButtonStrategies, d.cfg.StepTimeout)
}

// observeTerminal polls all frames for the terminal marker until the
// deadline. Timing out here means the result is unknown: the pay
// request may have reached the server, so the caller must report
// manual verification, never assume failure.
func (d *Driver) observeTerminal(ctx context.Context, req Request) (*Outcome, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		text := AnyFrameText(d.page)

		if IsTerminalSuccess(text) {
			d.infof("terminal success marker observed for CE %s", req.CENumber)
			return d.captureSuccess(), nil
		}
		if IsAlreadyPaid(text) {
			d.infof("portal reported CE %s already settled at pay time", req.CENumber)
			return &Outcome{AlreadyPaid: true, TerminalText: "already settled"}, nil
		}

		select {
		case <-ctx.Done():
			return nil, &StepError{Step: StepObserveTerminal, Err: ErrTerminalNotObserved}
		case <-ticker.C:
		}
	}
}

// captureSuccess snapshots the success screen as the receipt. The
// HTML of the frame carrying the marker is the canonical artifact; a
// PDF render is attached when the environment supports it.
func (d *Driver) captureSuccess() *Outcome {
	outcome := &Outcome{Success: true}

	if frame, ok := FindInAnyFrame(d.page, func(f Frame) bool {
		text, err := f.InnerText()
		return err == nil && IsTerminalSuccess(text)
	}); ok {
		if text, err := frame.InnerText(); err == nil {
			outcome.TerminalText = text
		}
		if content, err := frame.Content(); err == nil {
			outcome.ReceiptHTML = []byte(content)
			if amount, err := ExtractLabeledAmount(content, "valor"); err == nil {
				outcome.AmountPaid = amount
			}
		}
	}

	if pdf, err := d.page.PDF(); err == nil {
		outcome.ReceiptPDF = pdf
	} else {
		d.debugf("receipt PDF render unavailable: %v", err)
	}
	return outcome
}

// waitForFrame polls for a frame whose visible text contains marker,
// bounded by the step timeout.
func (d *Driver) waitForFrame(ctx context.Context, marker string) (Frame, error) {
	deadline := time.Now().Add(d.cfg.StepTimeout)
	pred := FrameWithText(marker)

	for {
		if frame, ok := FindInAnyFrame(d.page, pred); ok {
			return frame, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no frame with marker %q within %s", marker, d.cfg.StepTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (d *Driver) readValueScreen() (money.Centavos, *money.Centavos) {
	var screenAmount money.Centavos
	var balance *money.Centavos

	for _, f := range d.page.Frames() {
		content, err := f.Content()
		if err != nil {
			continue
		}
		if screenAmount == 0 {
			if amount, err := ExtractLabeledAmount(content, "valor"); err == nil {
				screenAmount = amount
			}
		}
		if balance == nil {
			if b, err := ExtractLabeledAmount(content, "saldo"); err == nil {
				balance = &b
			}
		}
	}
	return screenAmount, balance
}
