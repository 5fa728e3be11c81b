package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/target/mailq/internal/domain/recipients"
	apperrors "github.com/target/mailq/internal/errors"
	"github.com/target/mailq/internal/service"
)

// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
const multipartMemory = 1 << 20

// startTimeLayouts are tried in order. The second matches a browser datetime-local input.
var startTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04"}

// submissionBody is the JSON form of a submission. "to" may be a single address,
// a comma or newline separated string, or an array.
type submissionBody struct {
	Subject     string        `json:"subject"`
	Body        string        `json:"body"`
	SenderEmail string        `json:"senderEmail"`
	To          recipientList `json:"to"`
	Delay       int           `json:"delay"`
	HourlyLimit int           `json:"hourlyLimit"`
	StartTime   string        `json:"startTime"`
}

type recipientList []string

func (l *recipientList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = splitRecipients(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("to must be a string or an array of strings")
	}
	*l = many
	return nil
}

// isMultipart reports whether r carries a form upload rather than JSON.
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && (mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded")
}

// readMultipartSubmission builds a SubmitRequest from form fields and the optional "file" part.
// Recipients from "to" come first, then the file's addresses in file order.
func readMultipartSubmission(r *http.Request) (service.SubmitRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return service.SubmitRequest{}, formError(err)
	}

	req := service.SubmitRequest{
		Subject:       r.FormValue("subject"),
		Body:          r.FormValue("body"),
		SenderAddress: r.FormValue("senderEmail"),
		Recipients:    splitRecipients(r.FormValue("to")),
	}

	var err error
	if req.DelaySeconds, err = formInt(r, "delay"); err != nil {
		return req, err
	}
	if req.HourlyLimit, err = formInt(r, "hourlyLimit"); err != nil {
		return req, err
	}
	if req.ScheduledAt, err = parseStartTime(r.FormValue("startTime")); err != nil {
		return req, err
	}

	fromFile, err := readRecipientFile(r)
	if err != nil {
		return req, err
	}
	req.Recipients = append(req.Recipients, fromFile...)
	return req, nil
}

func readRecipientFile(r *http.Request) ([]string, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, formError(err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, formError(err)
	}
	kind := recipients.KindFromContentType(header.Header.Get("Content-Type"))
	return recipients.Extract(content, kind), nil
}

// jsonSubmission converts a decoded JSON body into a SubmitRequest.
func jsonSubmission(body submissionBody) (service.SubmitRequest, error) {
	at, err := parseStartTime(body.StartTime)
	if err != nil {
		return service.SubmitRequest{}, err
	}
	return service.SubmitRequest{
		Subject:       body.Subject,
		Body:          body.Body,
		SenderAddress: body.SenderEmail,
		Recipients:    body.To,
		ScheduledAt:   at,
		DelaySeconds:  body.Delay,
		HourlyLimit:   body.HourlyLimit,
	}, nil
}

// parseStartTime returns the zero time for an empty value so the service reports it as missing.
func parseStartTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, apperrors.ValidationField("startTime", "startTime must be an ISO-8601 timestamp")
}

// formInt parses an optional integer field. Empty means zero.
func formInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationField(key, key+" must be a whole number")
	}
	return v, nil
}

func splitRecipients(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// limitedBody records a body size violation. Multipart parsing does not always
// return the *http.MaxBytesError it hit.
type limitedBody struct {
	io.ReadCloser
	exceeded *http.MaxBytesError
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if err != nil && errors.As(err, &tooLarge) {
		b.exceeded = tooLarge
	}
	return n, err
}

// formError keeps body size violations distinguishable from malformed forms.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid form body")
}
