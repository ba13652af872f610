package config

import (
	"fmt"
	"net/url"
	"sync"
)

const (
	// SectionIDPortal is the identifier for the portal section
	SectionIDPortal = "portal"
)

// Default interaction bounds for the portal driver.
const (
	defaultStepTimeoutSeconds = 15
	defaultStepAttempts       = 2
)

// PortalSection holds the payment portal endpoint and credentials.
type PortalSection struct {
	baseURL            string
	username           string
	password           string
	headless           bool
	stepTimeoutSeconds int
	stepAttempts       int
	mu                 sync.RWMutex
}

// NewPortalSection creates a portal section with default interaction
// bounds. The browser runs headed by default so an operator can watch
// a payment happen.
func NewPortalSection() *PortalSection {
	return &PortalSection{
		stepTimeoutSeconds: defaultStepTimeoutSeconds,
		stepAttempts:       defaultStepAttempts,
	}
}

// ID returns the section identifier.
func (s *PortalSection) ID() string {
	return SectionIDPortal
}

// Title returns the section title.
func (s *PortalSection) Title() string {
	return "Payment Portal"
}

// Description returns the section description.
func (s *PortalSection) Description() string {
	return "Mercante portal address, credentials and browser interaction bounds."
}

// Data returns the current configuration data.
func (s *PortalSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"base_url":             s.baseURL,
		"username":             s.username,
		"password":             s.password,
		"headless":             s.headless,
		"step_timeout_seconds": s.stepTimeoutSeconds,
		"step_attempts":        s.stepAttempts,
	}
}

// SetData updates the configuration from the provided data.
func (s *PortalSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range data {
		switch key {
		case "base_url", "username", "password":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for '%s': expected string, got %T", key, value)
			}
			switch key {
			case "base_url":
				s.baseURL = str
			case "username":
				s.username = str
			case "password":
				s.password = str
			}
		case "headless":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for 'headless': expected bool, got %T", value)
			}
			s.headless = b
		case "step_timeout_seconds":
			n, err := intValue(value)
			if err != nil {
				return fmt.Errorf("invalid value for 'step_timeout_seconds': %w", err)
			}
			s.stepTimeoutSeconds = n
		case "step_attempts":
			n, err := intValue(value)
			if err != nil {
				return fmt.Errorf("invalid value for 'step_attempts': %w", err)
			}
			s.stepAttempts = n
		}
	}
	return nil
}

// Validate checks the endpoint and the interaction bounds.
func (s *PortalSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.baseURL != "" {
		if _, err := url.ParseRequestURI(s.baseURL); err != nil {
			return fmt.Errorf("invalid portal base_url: %w", err)
		}
	}
	if s.stepTimeoutSeconds <= 0 {
		return fmt.Errorf("step_timeout_seconds must be positive")
	}
	if s.stepAttempts <= 0 {
		return fmt.Errorf("step_attempts must be positive")
	}
	return nil
}

// Reset restores the section defaults and clears credentials.
func (s *PortalSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = ""
	s.username = ""
	s.password = ""
	s.headless = false
	s.stepTimeoutSeconds = defaultStepTimeoutSeconds
	s.stepAttempts = defaultStepAttempts
}

// BaseURL returns the portal entry address.
func (s *PortalSection) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// Username returns the portal username.
func (s *PortalSection) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Password returns the portal password.
func (s *PortalSection) Password() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.password
}

// Headless reports whether the browser runs without a window.
func (s *PortalSection) Headless() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headless
}

// StepTimeoutSeconds returns the per-step timeout.
func (s *PortalSection) StepTimeoutSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepTimeoutSeconds
}

// StepAttempts returns the per-step retry bound.
func (s *PortalSection) StepAttempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepAttempts
}

// intValue accepts the numeric types a JSON round-trip can produce.
func intValue(value interface{}) (int, error) {
	switch n := value.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}
