// Package recipients turns an uploaded recipient list into email addresses.
package recipients

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"mime"
	"strings"
)

// Kind identifies the layout of an uploaded recipient list.
type Kind int

const (
	// KindCSV is a comma separated list, optionally with a header row.
	KindCSV Kind = iota
	// KindPlainText is one address per line.
	KindPlainText
)

func (k Kind) String() string {
	if k == KindPlainText {
		return "text"
	}
	return "csv"
}

// KindFromContentType maps an upload content type to a Kind.
// Only text/plain is read line by line; anything else is parsed as CSV.
func KindFromContentType(contentType string) Kind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if mediaType == "text/plain" {
		return KindPlainText
	}
	return KindCSV
}

// Extract returns the addresses found in content, in file order.
// Values are trimmed and anything without an "@" is dropped. Duplicates are kept.
func Extract(content []byte, kind Kind) []string {
	if kind == KindPlainText {
		return fromLines(content)
	}
	return fromCSV(content)
}

// Clean trims addresses and drops entries without an "@".
func Clean(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.Contains(v, "@") {
			out = append(out, v)
		}
	}
	return out
}

func fromLines(content []byte) []string {
	return Clean(strings.Split(string(content), "\n"))
}

var utf8BOM = []byte("\ufeff")

func fromCSV(content []byte) []string {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var (
		out    []string
		column = -1
	)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A malformed line ends parsing; what was read so far is kept.
			break
		}
		if column < 0 {
			if idx := emailColumn(record); idx >= 0 {
				column = idx
				continue
			}
			column = 0
		}
		if column < len(record) {
			out = append(out, record[column])
		}
	}
	return Clean(out)
}

// emailColumn returns the index of an "email" header cell, or -1 when the row is not a header.
func emailColumn(record []string) int {
	for i, cell := range record {
		if strings.EqualFold(strings.TrimSpace(cell), "email") {
			return i
		}
	}
	return -1
}
