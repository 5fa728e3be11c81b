package dispatch

import (
	"errors"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// LeaseSource identifies how a lease duration was resolved.
type LeaseSource string

const (
	LeaseSourceExplicit LeaseSource = "explicit"
	LeaseSourceDefault  LeaseSource = "default"
	// LeaseSourceClamped means the request was raised to the one second minimum.
	LeaseSourceClamped LeaseSource = "clamped"
)

// LeasePolicy normalises lease durations for reservations and heartbeats.
// The lease must outlive the transport timeout or a slow send would be handed out twice.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy returns a policy with the given default.
func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{defaultLease: defaultLease}, nil
}

// Default returns the configured default lease duration.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// LeaseDecision is the outcome of Resolve.
type LeaseDecision struct {
	Lease     time.Duration
	Source    LeaseSource
	Requested time.Duration
}

// Resolve truncates request to whole seconds; zero selects the default, anything below a second is clamped.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	d := LeaseDecision{Requested: request}
	switch {
	case request == 0:
		d.Lease, d.Source = p.Default().Truncate(time.Second), LeaseSourceDefault
	case request < time.Second:
		d.Lease, d.Source = time.Second, LeaseSourceClamped
	default:
		d.Lease, d.Source = request.Truncate(time.Second), LeaseSourceExplicit
	}
	if d.Lease < time.Second {
		d.Lease = time.Second
	}
	return d
}

// HeartbeatInterval returns how often a lease of the given length should be renewed.
func HeartbeatInterval(lease time.Duration) time.Duration {
	return max(lease/3, 100*time.Millisecond)
}
