// Package retrymechanism retries operations that may fail transiently, such as
// opening the database connection.
package retrymechanism

type RetryMechanism interface {
	Retry(operation func() error) error
}
