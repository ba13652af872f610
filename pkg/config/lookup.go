package config

import (
	"fmt"
	"net/url"
	"sync"
)

const (
	// SectionIDLookup is the identifier for the valuation lookup section
	SectionIDLookup = "lookup"
)

// defaultRatePerMinute matches the lookup client's built-in limiter.
const defaultRatePerMinute = 10

// LookupSection holds the billed valuation API settings.
type LookupSection struct {
	baseURL       string
	apiKey        string
	ratePerMinute int
	cachePath     string
	mu            sync.RWMutex
}

// NewLookupSection creates a lookup section with the default rate.
func NewLookupSection() *LookupSection {
	return &LookupSection{ratePerMinute: defaultRatePerMinute}
}

// ID returns the section identifier.
func (s *LookupSection) ID() string {
	return SectionIDLookup
}

// Title returns the section title.
func (s *LookupSection) Title() string {
	return "Valuation Lookup"
}

// Description returns the section description.
func (s *LookupSection) Description() string {
	return "Billed CE valuation API: endpoint, key, local rate limit and value cache location."
}

// Data returns the current configuration data.
func (s *LookupSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"base_url":        s.baseURL,
		"api_key":         s.apiKey,
		"rate_per_minute": s.ratePerMinute,
		"cache_path":      s.cachePath,
	}
}

// SetData updates the configuration from the provided data.
func (s *LookupSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range data {
		switch key {
		case "base_url", "api_key", "cache_path":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for '%s': expected string, got %T", key, value)
			}
			switch key {
			case "base_url":
				s.baseURL = str
			case "api_key":
				s.apiKey = str
			case "cache_path":
				s.cachePath = str
			}
		case "rate_per_minute":
			n, err := intValue(value)
			if err != nil {
				return fmt.Errorf("invalid value for 'rate_per_minute': %w", err)
			}
			s.ratePerMinute = n
		}
	}
	return nil
}

// Validate checks the endpoint and rate limit.
func (s *LookupSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.baseURL != "" {
		if _, err := url.ParseRequestURI(s.baseURL); err != nil {
			return fmt.Errorf("invalid lookup base_url: %w", err)
		}
	}
	if s.ratePerMinute <= 0 {
		return fmt.Errorf("rate_per_minute must be positive")
	}
	return nil
}

// Reset restores defaults and clears the API key.
func (s *LookupSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = ""
	s.apiKey = ""
	s.ratePerMinute = defaultRatePerMinute
	s.cachePath = ""
}

// BaseURL returns the API endpoint.
func (s *LookupSection) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// APIKey returns the API key.
func (s *LookupSection) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// RatePerMinute returns the local rate limit.
func (s *LookupSection) RatePerMinute() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratePerMinute
}

// CachePath returns where last-observed values are cached.
func (s *LookupSection) CachePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cachePath
}
