package retrymechanism

import (
	"time"

	"github.com/newrelic/infra-integrations-sdk/v3/log"
)

// DefaultMaxRetries is used when MaxRetries is not positive
const DefaultMaxRetries = 3

type RetryMechanismImpl struct {
	MaxRetries int
	// Delay is the pause between two attempts
	Delay time.Duration
}

// Ensure RetryMechanismImpl implements RetryMechanism
var _ RetryMechanism = (*RetryMechanismImpl)(nil)

// Retry runs operation until it succeeds or MaxRetries attempts failed, and
// returns the last error.
func (r *RetryMechanismImpl) Retry(operation func() error) error {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		log.Debug("Attempt %d of %d failed: %s", i+1, maxRetries, err)
		if i < maxRetries-1 && r.Delay > 0 {
			time.Sleep(r.Delay)
		}
	}
	return err
}
