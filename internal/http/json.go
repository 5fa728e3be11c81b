package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/target/mailq/internal/errors"
)

const internalErrorMessage = "Internal server error"

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	// Count reports jobs already persisted when a submission fails part way.
	Count *int `json:"count,omitempty"`
}

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "too_large", Err: err})
			return false
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, errorResponse{Error: p.ErrCode, Message: p.Err.Error()})
}

// WriteAppError maps err onto its API status. AppErrors keep their code, message and field;
// anything that resolves to a 500 is reported with a generic message.
func WriteAppError(w http.ResponseWriter, err error) {
	WriteJSON(w, apperrors.HTTPStatus(err), appErrorResponse(err))
}

func appErrorResponse(err error) errorResponse {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return errorResponse{Error: string(apperrors.ErrCodeInternal), Message: internalErrorMessage}
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return errorResponse{Error: string(apperrors.ErrCodeInternal), Message: err.Error()}
	}
	return errorResponse{Error: string(appErr.Code), Message: appErr.Message, Field: appErr.Field}
}
