package recipients

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    Kind
		want    []string
	}{
		{
			name:    "plain text with CRLF and blanks",
			content: "a@example.com\r\n\r\n  b@example.com  \nnot-an-address\n",
			kind:    KindPlainText,
			want:    []string{"a@example.com", "b@example.com"},
		},
		{
			name:    "plain text keeps duplicates",
			content: "a@example.com\na@example.com",
			kind:    KindPlainText,
			want:    []string{"a@example.com", "a@example.com"},
		},
		{
			name:    "csv without header uses first column",
			content: "a@example.com,Alice\nb@example.com,Bob\n",
			kind:    KindCSV,
			want:    []string{"a@example.com", "b@example.com"},
		},
		{
			name:    "csv header selects email column",
			content: "name,Email\nAlice, a@example.com\nBob,b@example.com\nCarol,\n",
			kind:    KindCSV,
			want:    []string{"a@example.com", "b@example.com"},
		},
		{
			name:    "csv header without email column is dropped",
			content: "address,name\na@example.com,Alice\n",
			kind:    KindCSV,
			want:    []string{"a@example.com"},
		},
		{
			name:    "csv with byte order mark and quotes",
			content: "\ufeffemail\n\"a@example.com\"\n",
			kind:    KindCSV,
			want:    []string{"a@example.com"},
		},
		{
			name:    "ragged rows",
			content: "a@example.com\nb@example.com,extra,cols\n",
			kind:    KindCSV,
			want:    []string{"a@example.com", "b@example.com"},
		},
		{
			name:    "empty",
			content: "",
			kind:    KindCSV,
			want:    []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract([]byte(tt.content), tt.kind))
		})
	}
}

func TestKindFromContentType(t *testing.T) {
	assert.Equal(t, KindPlainText, KindFromContentType("text/plain"))
	assert.Equal(t, KindPlainText, KindFromContentType("text/plain; charset=utf-8"))
	assert.Equal(t, KindCSV, KindFromContentType("text/csv"))
	assert.Equal(t, KindCSV, KindFromContentType("application/octet-stream"))
	assert.Equal(t, KindCSV, KindFromContentType(""))
}

func TestClean(t *testing.T) {
	assert.Equal(t, []string{"x@y.z"}, Clean([]string{" x@y.z ", "", "nope"}))
}
