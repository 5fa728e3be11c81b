package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mailq/internal/errors"
)

func TestParseStartTime(t *testing.T) {
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "empty", in: "  "},
		{name: "iso with millis", in: "2026-03-01T09:30:00.000Z", want: want},
		{name: "offset", in: "2026-03-01T11:30:00+02:00", want: want},
		{name: "datetime-local", in: "2026-03-01T09:30", want: want},
		{name: "unix millis", in: "1772357400000", want: want},
		{name: "garbage", in: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStartTime(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "startTime", apperrors.GetField(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t,
		[]string{"a@example.com", "b@example.com", "c@example.com"},
		splitRecipients(" a@example.com, b@example.com;\r\nc@example.com,,"),
	)
	assert.Empty(t, splitRecipients(""))
}

func TestRecipientList_UnmarshalJSON(t *testing.T) {
	var body submissionBody
	require.NoError(t, json.Unmarshal([]byte(`{"to":"a@example.com, b@example.com"}`), &body))
	assert.Equal(t, recipientList{"a@example.com", "b@example.com"}, body.To)

	require.NoError(t, json.Unmarshal([]byte(`{"to":["c@example.com"]}`), &body))
	assert.Equal(t, recipientList{"c@example.com"}, body.To)

	require.Error(t, json.Unmarshal([]byte(`{"to":42}`), &body))
}

func TestIsMultipart(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	assert.True(t, isMultipart(r))

	r.Header.Set("Content-Type", "application/json")
	assert.False(t, isMultipart(r))

	r.Header.Del("Content-Type")
	assert.False(t, isMultipart(r))
}
