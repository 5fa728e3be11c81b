package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrEmailJobNotFound is returned when a job id does not exist.
	ErrEmailJobNotFound = errors.New("email job not found")
	// ErrEmailJobNotRetryable is returned when a retry is requested for a job that is not failed.
	ErrEmailJobNotRetryable = errors.New("email job is not in failed state")
	// ErrDispatchTaskNotFound is returned when a task id does not exist.
	ErrDispatchTaskNotFound = errors.New("dispatch task not found")
	// ErrLeaseRequired is returned when a reservation or heartbeat is attempted without a positive lease.
	ErrLeaseRequired = errors.New("lease must be positive")
)
