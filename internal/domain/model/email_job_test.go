package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailJobStatus_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    EmailJobStatus
		wantErr bool
	}{
		{in: "scheduled", want: EmailJobStatusScheduled},
		{in: " FAILED ", want: EmailJobStatusFailed},
		{in: "Sent", want: EmailJobStatusSent},
		{in: "", want: ""},
		{in: "queued", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s EmailJobStatus
			err := s.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestEmailJob_DecodesWithoutStatus(t *testing.T) {
	raw, err := json.Marshal([]EmailJob{{ID: 3}, {ID: 4, Status: EmailJobStatusSent}})
	require.NoError(t, err)

	var got []EmailJob
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Status)
	assert.Equal(t, EmailJobStatusSent, got[1].Status)
}
