// Package httpx provides the HTTP API for scheduling email submissions and inspecting their progress.
package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/mailq/internal/domain/model"
	apperrors "github.com/target/mailq/internal/errors"
	"github.com/target/mailq/internal/service"
)

const defaultMaxUploadBytes = 10 << 20

// EmailHandlers serves submission and query endpoints.
type EmailHandlers struct {
	Intake         *service.IntakeService
	Query          *service.QueryService
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// scheduleResponse is returned for an accepted submission.
type scheduleResponse struct {
	Message      string  `json:"message"`
	Count        int     `json:"count"`
	SubmissionID string  `json:"submissionId"`
	JobIDs       []int64 `json:"jobIds"`
}

// ScheduleEmails handles POST /api/schedule-emails with either a multipart form
// (optionally carrying a recipient file) or a JSON body.
func (h *EmailHandlers) ScheduleEmails(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, limit)}
	r.Body = body

	var (
		req service.SubmitRequest
		err error
	)
	if isMultipart(r) {
		req, err = readMultipartSubmission(r)
	} else {
		var payload submissionBody
		if !DecodeJSON(w, r, &payload) {
			return
		}
		req, err = jsonSubmission(payload)
	}
	if err != nil {
		// A truncated multipart body can surface as a header or boundary error.
		if body.exceeded != nil {
			err = body.exceeded
		}
		h.writeError(w, r, err)
		return
	}

	res, err := h.Intake.Submit(r.Context(), req)
	if err != nil {
		h.writeSubmitError(w, r, res, err)
		return
	}

	WriteJSON(w, http.StatusOK, scheduleResponse{
		Message:      fmt.Sprintf("%d emails scheduled", res.Count),
		Count:        res.Count,
		SubmissionID: res.SubmissionID,
		JobIDs:       res.JobIDs,
	})
}

// ListEmails handles GET /api/emails. Optional filters: status, submissionId.
func (h *EmailHandlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultListLimit, maxListLimit)
	opts := model.EmailJobListOptions{
		SubmissionID: optionalQuery(r, "submissionId"),
		Limit:        limit,
		Offset:       offset,
	}
	if raw := optionalQuery(r, "status"); raw != nil {
		var status model.EmailJobStatus
		if err := status.UnmarshalText([]byte(*raw)); err != nil {
			h.writeError(w, r, apperrors.ValidationField("status", "status must be one of: scheduled, sent, failed"))
			return
		}
		opts.Status = &status
	}

	jobs, err := h.Query.ListJobs(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*model.EmailJob{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// ListSentEmails handles GET /api/sent-emails, the outcome log. Optional filter: jobId.
func (h *EmailHandlers) ListSentEmails(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultListLimit, maxListLimit)
	opts := model.OutcomeListOptions{Limit: limit, Offset: offset}
	if r.URL.Query().Has("jobId") {
		id := int64(parseIntQuery(r, "jobId", 0))
		if id <= 0 {
			h.writeError(w, r, apperrors.ValidationField("jobId", "jobId must be a positive integer"))
			return
		}
		opts.JobID = &id
	}

	outcomes, err := h.Query.ListOutcomes(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if outcomes == nil {
		outcomes = []*model.Outcome{}
	}
	WriteJSON(w, http.StatusOK, outcomes)
}

// GetEmail handles GET /api/emails/{id}.
func (h *EmailHandlers) GetEmail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	detail, err := h.Query.GetJob(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

// RetryEmail handles POST /api/emails/{id}/retry for a failed job.
func (h *EmailHandlers) RetryEmail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDPath(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	job, err := h.Intake.RetryJob(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// DispatchStats handles GET /api/dispatch/stats.
func (h *EmailHandlers) DispatchStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Query.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (h *EmailHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "too_large", Err: err})
		return
	}
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger().ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	WriteAppError(w, err)
}

// writeSubmitError reports how many jobs were persisted before a submission failed.
func (h *EmailHandlers) writeSubmitError(
	w http.ResponseWriter,
	r *http.Request,
	res *service.SubmitResult,
	err error,
) {
	if res == nil || res.Count == 0 {
		h.writeError(w, r, err)
		return
	}
	h.logger().ErrorContext(r.Context(), "submission partially persisted",
		"submission_id", res.SubmissionID,
		"count", res.Count,
		"error", err,
	)
	body := appErrorResponse(err)
	body.Count = &res.Count
	WriteJSON(w, apperrors.HTTPStatus(err), body)
}

func (h *EmailHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
