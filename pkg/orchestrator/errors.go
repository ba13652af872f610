package orchestrator

// Code classifies every terminal outcome a payment attempt can reach.
// Each code maps to exactly one user-visible message so upstream
// layers never improvise wording around money movement.
type Code string

const (
	// CodeAlreadyPaid is a short-circuit, not an error: the ledger or
	// the portal shows the CE is settled.
	CodeAlreadyPaid Code = "ALREADY_PAID"

	// CodeCENotFound means the process reference did not resolve to a
	// CE number.
	CodeCENotFound Code = "CE_NOT_FOUND"

	// CodeValueUnresolved means the amount due could not be
	// determined. Non-fatal: the preview degrades, confirmation is
	// still possible.
	CodeValueUnresolved Code = "VALUE_UNRESOLVED"

	// CodeIntentExpired means confirmation arrived after the intent's
	// window closed.
	CodeIntentExpired Code = "INTENT_EXPIRED"

	// CodeIntentNotFound means the intent does not exist or was
	// already consumed; a duplicate confirm lands here as a no-op.
	CodeIntentNotFound Code = "INTENT_NOT_FOUND"

	// CodeAutomationTimeout means the execution deadline elapsed with
	// no terminal result. The outcome is unknown.
	CodeAutomationTimeout Code = "AUTOMATION_TIMEOUT"

	// CodeAutomationStepFailed means a portal step exhausted its
	// strategies and retries before the pay click took effect.
	CodeAutomationStepFailed Code = "AUTOMATION_STEP_FAILED"

	// CodeTerminalNotObserved means the sequence completed but the
	// success marker never appeared. Treated as failure, with the
	// same manual-verification duty as a timeout.
	CodeTerminalNotObserved Code = "TERMINAL_STATE_NOT_OBSERVED"

	// CodePersistFailed means the payment succeeded but recording it
	// failed. Logged loudly; never retracts the reported success.
	CodePersistFailed Code = "PERSIST_FAILED"
)

// messages is the single source of user-visible wording per code.
// The unknown-outcome codes must instruct manual verification before
// any retry; retrying blind is the double-payment path.
var messages = map[Code]string{
	CodeAlreadyPaid:          "This CE's AFRMM is already settled; no payment was made.",
	CodeCENotFound:           "No CE number could be resolved for this process reference.",
	CodeValueUnresolved:      "The amount due could not be determined right now.",
	CodeIntentExpired:        "The confirmation window for this payment has expired; request a new preview.",
	CodeIntentNotFound:       "There is no pending payment matching this confirmation.",
	CodeAutomationTimeout:    "The payment attempt timed out and its result is unknown; verify manually in the portal before retrying.",
	CodeAutomationStepFailed: "The portal automation failed before completing the payment; no payment was made.",
	CodeTerminalNotObserved:  "The portal never showed the payment confirmation and the result is unknown; verify manually in the portal before retrying.",
	CodePersistFailed:        "The payment succeeded but recording it locally failed; the record will be repaired on the next attempt.",
}

// Message returns the fixed user-visible message for a code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "The payment attempt ended in an unexpected state; verify manually in the portal."
}
