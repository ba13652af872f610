package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankAccountSection(t *testing.T) {
	t.Run("round trips through Data and SetData", func(t *testing.T) {
		section := NewBankAccountSection()
		section.SetAccount("001", "3399", "12345-6")

		restored := NewBankAccountSection()
		require.NoError(t, restored.SetData(section.Data()))
		assert.Equal(t, "001", restored.BankCode())
		assert.Equal(t, "3399", restored.Branch())
		assert.Equal(t, "12345-6", restored.Account())
		assert.True(t, restored.IsConfigured())
	})

	t.Run("rejects a partial account", func(t *testing.T) {
		section := NewBankAccountSection()
		section.SetAccount("001", "", "")
		assert.Error(t, section.Validate())
		assert.False(t, section.IsConfigured())
	})

	t.Run("empty account is valid", func(t *testing.T) {
		assert.NoError(t, NewBankAccountSection().Validate())
	})

	t.Run("rejects non-string values", func(t *testing.T) {
		err := NewBankAccountSection().SetData(map[string]interface{}{"bank_code": 1})
		assert.Error(t, err)
	})
}

func TestPortalSection(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		section := NewPortalSection()
		assert.Equal(t, defaultStepTimeoutSeconds, section.StepTimeoutSeconds())
		assert.Equal(t, defaultStepAttempts, section.StepAttempts())
		assert.False(t, section.Headless(), "headed by default so the operator can watch")
	})

	t.Run("accepts JSON float numbers", func(t *testing.T) {
		section := NewPortalSection()
		require.NoError(t, section.SetData(map[string]interface{}{
			"step_timeout_seconds": float64(30),
			"step_attempts":        float64(3),
		}))
		assert.Equal(t, 30, section.StepTimeoutSeconds())
		assert.Equal(t, 3, section.StepAttempts())
	})

	t.Run("rejects an unparseable base URL", func(t *testing.T) {
		section := NewPortalSection()
		require.NoError(t, section.SetData(map[string]interface{}{"base_url": "::bad::"}))
		assert.Error(t, section.Validate())
	})

	t.Run("rejects zero timeouts", func(t *testing.T) {
		section := NewPortalSection()
		require.NoError(t, section.SetData(map[string]interface{}{"step_timeout_seconds": 0}))
		assert.Error(t, section.Validate())
	})
}

func TestLookupSection(t *testing.T) {
	t.Run("defaults match the client limiter", func(t *testing.T) {
		assert.Equal(t, defaultRatePerMinute, NewLookupSection().RatePerMinute())
	})

	t.Run("reset clears the API key", func(t *testing.T) {
		section := NewLookupSection()
		require.NoError(t, section.SetData(map[string]interface{}{"api_key": "secret"}))
		section.Reset()
		assert.Empty(t, section.APIKey())
	})

	t.Run("rejects a non-positive rate", func(t *testing.T) {
		section := NewLookupSection()
		require.NoError(t, section.SetData(map[string]interface{}{"rate_per_minute": -1}))
		assert.Error(t, section.Validate())
	})
}

func TestApprovalSection(t *testing.T) {
	t.Run("pay dialog authorization defaults to off", func(t *testing.T) {
		section := NewApprovalSection()
		assert.False(t, section.AutoAcceptPayDialog())
	})

	t.Run("reset turns authorization back off", func(t *testing.T) {
		section := NewApprovalSection()
		section.SetAutoAcceptPayDialog(true)
		require.True(t, section.AutoAcceptPayDialog())

		section.Reset()
		assert.False(t, section.AutoAcceptPayDialog())
	})

	t.Run("defaults", func(t *testing.T) {
		section := NewApprovalSection()
		assert.Equal(t, defaultIntentTTLMinutes, section.IntentTTLMinutes())
		assert.Equal(t, defaultExecutionDeadlineSeconds, section.ExecutionDeadlineSeconds())
		assert.True(t, section.KeepBrowserOpenOnSuccess())
	})

	t.Run("rejects non-positive bounds", func(t *testing.T) {
		section := NewApprovalSection()
		require.NoError(t, section.SetData(map[string]interface{}{"intent_ttl_minutes": 0}))
		assert.Error(t, section.Validate())
	})
}

func TestInitialize(t *testing.T) {
	// The global manager is process state; restore it after the test.
	globalMu.Lock()
	prev := globalManager
	globalManager = nil
	globalMu.Unlock()
	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = prev
		globalMu.Unlock()
	})

	path := t.TempDir() + "/config.json"
	require.NoError(t, Initialize(path))
	require.True(t, IsInitialized())

	assert.NotNil(t, GetBankAccount())
	assert.NotNil(t, GetPortal())
	assert.NotNil(t, GetLookup())
	assert.NotNil(t, GetApproval())
	assert.False(t, IsPayDialogAuthorized(), "dialog authorization must never default on")
}
