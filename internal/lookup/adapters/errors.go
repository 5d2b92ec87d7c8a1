package adapters

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory is the normalized adapter failure taxonomy.
type ErrorCategory string

const (
	// ErrorTimeout means the source did not answer within its deadline.
	ErrorTimeout ErrorCategory = "timeout"
	// ErrorBadData means the reply could not be decoded.
	ErrorBadData ErrorCategory = "bad_data"
	// ErrorAuthentication means credentials were rejected.
	ErrorAuthentication ErrorCategory = "authentication"
	// ErrorProviderOutage means the source is unavailable (5xx, transport failure).
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	// ErrorNotConfigured means the adapter has no credentials; the dispatcher skips it.
	ErrorNotConfigured ErrorCategory = "not_configured"
	ErrorInternal      ErrorCategory = "internal"
)

// ProviderError wraps adapter failures with a category.
type ProviderError struct {
	Category   ErrorCategory
	Source     string
	Message    string
	Underlying error
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("adapter %s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("adapter %s [%s]: %s", e.Source, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a categorized adapter error.
func NewProviderError(category ErrorCategory, source Kind, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		Source:     source.String(),
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the category from err. Context deadline errors map to
// ErrorTimeout even when they were not wrapped by an adapter.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	return ErrorInternal
}

// ErrNotConfigured is returned by adapters that lack credentials.
var ErrNotConfigured = errors.New("adapter not configured")

// IsNotConfigured reports whether err means the adapter should be skipped.
func IsNotConfigured(err error) bool {
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	return GetCategory(err) == ErrorNotConfigured
}

// CategoryForStatus maps an upstream HTTP status to a category.
func CategoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 404:
		return ErrorNotFound
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorBadData
	}
}
