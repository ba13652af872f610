package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDApproval is the identifier for the approval section
	SectionIDApproval = "approval"
)

// Default confirmation and execution bounds.
const (
	defaultIntentTTLMinutes         = 15
	defaultExecutionDeadlineSeconds = 180
)

// ApprovalSection governs the confirmation gate around payments.
// Accepting the portal's pay dialog always defaults to off; only an
// operator turning it on authorizes the irreversible click-through.
type ApprovalSection struct {
	autoAcceptPayDialog      bool
	keepBrowserOpen          bool
	intentTTLMinutes         int
	executionDeadlineSeconds int
	mu                       sync.RWMutex
}

// NewApprovalSection creates an approval section with defaults.
func NewApprovalSection() *ApprovalSection {
	return &ApprovalSection{
		autoAcceptPayDialog:      false,
		keepBrowserOpen:          true,
		intentTTLMinutes:         defaultIntentTTLMinutes,
		executionDeadlineSeconds: defaultExecutionDeadlineSeconds,
	}
}

// ID returns the section identifier.
func (s *ApprovalSection) ID() string {
	return SectionIDApproval
}

// Title returns the section title.
func (s *ApprovalSection) Title() string {
	return "Payment Approval"
}

// Description returns the section description.
func (s *ApprovalSection) Description() string {
	return "Confirmation window, execution deadline and pay-dialog authorization."
}

// Data returns the current configuration data.
func (s *ApprovalSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"auto_accept_pay_dialog":       s.autoAcceptPayDialog,
		"keep_browser_open_on_success": s.keepBrowserOpen,
		"intent_ttl_minutes":           s.intentTTLMinutes,
		"execution_deadline_seconds":   s.executionDeadlineSeconds,
	}
}

// SetData updates the configuration from the provided data.
func (s *ApprovalSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range data {
		switch key {
		case "auto_accept_pay_dialog", "keep_browser_open_on_success":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for '%s': expected bool, got %T", key, value)
			}
			if key == "auto_accept_pay_dialog" {
				s.autoAcceptPayDialog = b
			} else {
				s.keepBrowserOpen = b
			}
		case "intent_ttl_minutes":
			n, err := intValue(value)
			if err != nil {
				return fmt.Errorf("invalid value for 'intent_ttl_minutes': %w", err)
			}
			s.intentTTLMinutes = n
		case "execution_deadline_seconds":
			n, err := intValue(value)
			if err != nil {
				return fmt.Errorf("invalid value for 'execution_deadline_seconds': %w", err)
			}
			s.executionDeadlineSeconds = n
		}
	}
	return nil
}

// Validate checks the time bounds.
func (s *ApprovalSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.intentTTLMinutes <= 0 {
		return fmt.Errorf("intent_ttl_minutes must be positive")
	}
	if s.executionDeadlineSeconds <= 0 {
		return fmt.Errorf("execution_deadline_seconds must be positive")
	}
	return nil
}

// Reset restores the defaults, including dialog authorization off.
func (s *ApprovalSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoAcceptPayDialog = false
	s.keepBrowserOpen = true
	s.intentTTLMinutes = defaultIntentTTLMinutes
	s.executionDeadlineSeconds = defaultExecutionDeadlineSeconds
}

// AutoAcceptPayDialog reports whether accepting the portal's pay
// confirmation dialog is authorized.
func (s *ApprovalSection) AutoAcceptPayDialog() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoAcceptPayDialog
}

// SetAutoAcceptPayDialog sets the dialog authorization.
func (s *ApprovalSection) SetAutoAcceptPayDialog(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoAcceptPayDialog = enabled
}

// KeepBrowserOpenOnSuccess reports whether a successful payment leaves
// the browser window open for inspection.
func (s *ApprovalSection) KeepBrowserOpenOnSuccess() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keepBrowserOpen
}

// IntentTTLMinutes returns the confirmation window length.
func (s *ApprovalSection) IntentTTLMinutes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.intentTTLMinutes
}

// ExecutionDeadlineSeconds returns the per-attempt deadline.
func (s *ApprovalSection) ExecutionDeadlineSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executionDeadlineSeconds
}
