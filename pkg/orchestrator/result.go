package orchestrator

import (
	"fmt"
	"strings"

	"github.com/freightops/afrmm/pkg/ledger"
	"github.com/freightops/afrmm/pkg/money"
	"github.com/freightops/afrmm/pkg/resolver"
)

// State is the orchestrator's position in the payment lifecycle.
type State string

const (
	StatePreview              State = "PREVIEW"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateExecuting            State = "EXECUTING"
	StateSucceeded            State = "SUCCEEDED"
	StateFailed               State = "FAILED"
	StateAlreadyPaid          State = "ALREADY_PAID"
)

// Preview is the pre-confirmation view of a payment. Producing it
// performs no irreversible action.
type Preview struct {
	IntentID   string
	ProcessRef string
	CENumber   string
	Resolution *resolver.Resolution
	Text       string
}

// Result is the structured terminal report for a confirmed attempt.
type Result struct {
	State      State
	Code       Code
	Message    string
	ProcessRef string
	CENumber   string
	AmountPaid money.Centavos
	Bank       ledger.BankFields
	ReceiptRef string
	RecordID   string

	// Warning carries non-fatal post-success conditions, such as a
	// failed ledger write after money moved.
	Warning string

	// Err is the underlying error for FAILED results.
	Err error
}

// Success reports whether the attempt ended with money confirmed moved.
func (r *Result) Success() bool {
	return r.State == StateSucceeded
}

// renderPreview builds the human-facing confirmation text.
func renderPreview(processRef string, res *resolver.Resolution, bank ledger.BankFields) string {
	var b strings.Builder

	fmt.Fprintf(&b, "AFRMM payment for process %s\n", processRef)
	fmt.Fprintf(&b, "CE: %s\n", res.CENumber)

	switch res.Status {
	case resolver.StatusPaid:
		b.WriteString("Status: already settled\n")
	case resolver.StatusDue:
		fmt.Fprintf(&b, "Amount due: R$ %s\n", res.AmountDue)
	default:
		b.WriteString("Amount due: could not be determined\n")
	}

	if res.Caveat != "" {
		fmt.Fprintf(&b, "Caveat: %s\n", res.Caveat)
	}
	if res.Balance != nil {
		fmt.Fprintf(&b, "Account balance: R$ %s\n", *res.Balance)
	}
	fmt.Fprintf(&b, "Debit account: bank %s, branch %s, account %s\n", bank.BankCode, bank.Branch, bank.Account)
	b.WriteString("Confirm to execute the payment.")

	return b.String()
}
