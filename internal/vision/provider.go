package vision

import (
	"context"
	"errors"
	"fmt"
)

// Provider is the external vision-analysis boundary: an image reference
// in, a natural-language annotation out. Timeout and retry classification
// are the caller's responsibility; implementations only tag failures as
// transient or permanent.
type Provider interface {
	Analyze(ctx context.Context, imageRef string) (string, error)
}

// ProviderError wraps a provider failure with its retry classification.
type ProviderError struct {
	Err       error
	Permanent bool
}

func (e *ProviderError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("provider rejected request: %v", e.Err)
	}
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient marks err as retryable.
func Transient(err error) error {
	return &ProviderError{Err: err}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &ProviderError{Err: err, Permanent: true}
}

// IsPermanent reports whether err is a provider rejection that must not
// be retried. Errors without a classification are treated as transient.
func IsPermanent(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Permanent
}
