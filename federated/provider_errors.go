package federated

import (
	"errors"
	"fmt"
)

// ProviderError captures normalized provider response details.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Description string
	Err         error
	// Rejected marks a definitive provider "no": the token is not
	// authentic. Anything else is treated as transient.
	Rejected bool
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Provider != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	} else if e.Provider != "" {
		scope = e.Provider
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Description != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsRejection reports whether err is a definitive provider rejection as
// opposed to a transient failure.
func IsRejection(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Rejected
	}
	return false
}
