package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDBankAccount is the identifier for the bank account section
	SectionIDBankAccount = "bank_account"
)

// BankAccountSection holds the debit account used for payments.
type BankAccountSection struct {
	bankCode string
	branch   string
	account  string
	mu       sync.RWMutex
}

// NewBankAccountSection creates an empty bank account section.
func NewBankAccountSection() *BankAccountSection {
	return &BankAccountSection{}
}

// ID returns the section identifier.
func (s *BankAccountSection) ID() string {
	return SectionIDBankAccount
}

// Title returns the section title.
func (s *BankAccountSection) Title() string {
	return "Bank Account"
}

// Description returns the section description.
func (s *BankAccountSection) Description() string {
	return "Debit account used for AFRMM payments: bank code, branch and account number."
}

// Data returns the current configuration data.
func (s *BankAccountSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"bank_code": s.bankCode,
		"branch":    s.branch,
		"account":   s.account,
	}
}

// SetData updates the configuration from the provided data.
func (s *BankAccountSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range data {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid value type for '%s': expected string, got %T", key, value)
		}
		switch key {
		case "bank_code":
			s.bankCode = str
		case "branch":
			s.branch = str
		case "account":
			s.account = str
		}
	}
	return nil
}

// Validate requires the account to be fully specified or fully empty.
// A half-configured debit account must never reach a payment attempt.
func (s *BankAccountSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	empty := s.bankCode == "" && s.branch == "" && s.account == ""
	full := s.bankCode != "" && s.branch != "" && s.account != ""
	if !empty && !full {
		return fmt.Errorf("bank account requires bank_code, branch and account together")
	}
	return nil
}

// Reset clears the account details.
func (s *BankAccountSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bankCode = ""
	s.branch = ""
	s.account = ""
}

// IsConfigured reports whether a complete debit account is set.
func (s *BankAccountSection) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bankCode != "" && s.branch != "" && s.account != ""
}

// BankCode returns the configured bank code.
func (s *BankAccountSection) BankCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bankCode
}

// Branch returns the configured branch.
func (s *BankAccountSection) Branch() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.branch
}

// Account returns the configured account number.
func (s *BankAccountSection) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// SetAccount sets the full debit account.
func (s *BankAccountSection) SetAccount(bankCode, branch, account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bankCode = bankCode
	s.branch = branch
	s.account = account
}
