package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeasePolicy(t *testing.T) {
	policy, err := NewLeasePolicy(2 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, policy.Default())

	policy, err = NewLeasePolicy(0)
	require.ErrorIs(t, err, ErrInvalidDefaultLease)
	assert.Nil(t, policy)
	assert.Zero(t, policy.Default())
}

func TestLeasePolicy_Resolve(t *testing.T) {
	policy, err := NewLeasePolicy(90 * time.Second)
	require.NoError(t, err)

	tests := []struct {
		name       string
		request    time.Duration
		wantLease  time.Duration
		wantSource LeaseSource
	}{
		{"explicit whole seconds", 45*time.Second + 300*time.Millisecond, 45 * time.Second, LeaseSourceExplicit},
		{"zero uses default", 0, 90 * time.Second, LeaseSourceDefault},
		{"sub-second clamps", 10 * time.Millisecond, time.Second, LeaseSourceClamped},
		{"negative clamps", -time.Second, time.Second, LeaseSourceClamped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.Resolve(tt.request)
			assert.Equal(t, tt.wantLease, d.Lease)
			assert.Equal(t, tt.wantSource, d.Source)
			assert.Equal(t, tt.request, d.Requested)
		})
	}
}

func TestHeartbeatInterval(t *testing.T) {
	assert.Equal(t, 40*time.Second, HeartbeatInterval(2*time.Minute))
	assert.Equal(t, 100*time.Millisecond, HeartbeatInterval(time.Millisecond))
}
