package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewBankAccountSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewPortalSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewLookupSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewApprovalSection()); err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetBankAccount returns the bank account section from global config.
// Returns nil if config is not initialized.
func GetBankAccount() *BankAccountSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDBankAccount)
	if !ok {
		return nil
	}

	bank, ok := section.(*BankAccountSection)
	if !ok {
		return nil
	}
	return bank
}

// GetPortal returns the portal section from global config.
// Returns nil if config is not initialized.
func GetPortal() *PortalSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDPortal)
	if !ok {
		return nil
	}

	portal, ok := section.(*PortalSection)
	if !ok {
		return nil
	}
	return portal
}

// GetLookup returns the valuation lookup section from global config.
// Returns nil if config is not initialized.
func GetLookup() *LookupSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDLookup)
	if !ok {
		return nil
	}

	lookup, ok := section.(*LookupSection)
	if !ok {
		return nil
	}
	return lookup
}

// GetApproval returns the approval section from global config.
// Returns nil if config is not initialized.
func GetApproval() *ApprovalSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDApproval)
	if !ok {
		return nil
	}

	approval, ok := section.(*ApprovalSection)
	if !ok {
		return nil
	}
	return approval
}

// IsPayDialogAuthorized reports whether accepting the portal's pay
// dialog is configured. Returns false if config is not initialized:
// the safe default is to refuse.
func IsPayDialogAuthorized() bool {
	approval := GetApproval()
	if approval == nil {
		return false
	}
	return approval.AutoAcceptPayDialog()
}
