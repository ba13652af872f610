package portal

import (
	"errors"
	"fmt"
	"time"

	"github.com/freightops/afrmm/pkg/money"
)

// Config configures a portal session and driver.
type Config struct {
	// BaseURL is the portal entry address. Frames behind it change;
	// the address does not.
	BaseURL string

	// Username and Password authenticate the payer account.
	Username string
	Password string

	// Headless controls whether the browser runs without a window.
	// Headed is the default in production so an operator can watch.
	Headless bool

	// StepTimeout bounds each individual interaction.
	StepTimeout time.Duration

	// StepAttempts is how many times a failing step is retried before
	// the attempt aborts. Retries re-run only the current step; the
	// sequence is never restarted.
	StepAttempts int

	// AuthorizePayDialog permits accepting the portal's confirmation
	// dialog after the pay click. When false the dialog is dismissed
	// and the attempt fails without paying.
	AuthorizePayDialog bool
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.StepTimeout == 0 {
		out.StepTimeout = 15 * time.Second
	}
	if out.StepAttempts == 0 {
		out.StepAttempts = 2
	}
	return out
}

// Request identifies the payment the driver should perform.
type Request struct {
	CENumber  string
	AmountDue money.Centavos
	BankCode  string
	Branch    string
	Account   string
}

// Outcome is the driver's terminal report for one attempt. Success is
// true only when the terminal marker was observed in a frame.
type Outcome struct {
	Success      bool
	AlreadyPaid  bool
	TerminalText string
	AmountPaid   money.Centavos
	ReceiptHTML  []byte
	ReceiptPDF   []byte
	Balance      *money.Centavos
}

// Step names, in execution order.
const (
	StepAuthenticate    = "authenticate"
	StepLocateMenu      = "locate_menu"
	StepSelectAction    = "select_action"
	StepFillIdentifier  = "fill_identifier"
	StepFillBankDetails = "fill_bank_details"
	StepClickPay        = "click_pay"
	StepConfirmDialog   = "confirm_dialog"
	StepObserveTerminal = "observe_terminal_state"
)

// ErrTerminalNotObserved means the sequence ran to its end without
// the success marker appearing. It is a failure: partial completion
// is never reported as success.
var ErrTerminalNotObserved = errors.New("terminal success marker not observed")

// ErrDialogNotAuthorized means the pay confirmation dialog appeared
// but accepting it was not authorized, so it was dismissed.
var ErrDialogNotAuthorized = errors.New("pay confirmation dialog not authorized")

// StepError reports which step of the sequence failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("portal step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
