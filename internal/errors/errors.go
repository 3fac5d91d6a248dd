// Package errors defines the failure taxonomy of a search run and the JSON
// error envelope used by the operator API.
//
// Run-side taxonomy: invalid captcha and site messages are recognized from
// registry alerts; anything else raised while driving the browser is treated
// as transient and retried until the operator cancels. Field extraction
// failures degrade the record instead of aborting the run.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
)

// ErrInvalidCaptcha reports that the registry rejected the submitted captcha
// token. The same variant is retried with a fresh token; this never counts
// toward abandonment.
var ErrInvalidCaptcha = errors.New("registry rejected captcha token")

// ErrCancelled reports that the operator stopped the run.
var ErrCancelled = errors.New("run cancelled by operator")

// SiteMessageError is a registry alert other than a captcha failure,
// typically a form validation message. The current variant is abandoned as
// a non-match, not retried.
type SiteMessageError struct {
	Text string
}

func (e *SiteMessageError) Error() string {
	return fmt.Sprintf("site message: %s", e.Text)
}

// FieldExtractionError reports that a conflict's detail fields could not be
// read. The record degrades to status error rather than being dropped.
type FieldExtractionError struct {
	Field string
	Err   error
}

func (e *FieldExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
}

func (e *FieldExtractionError) Unwrap() error { return e.Err }

// FileReadError is fatal for a run: the input list could not be read, so the
// browser session is never started.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read names file %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// IsTransient reports whether an error from a search attempt should be
// retried with a refresh-and-recaptcha cycle. Everything that is not part of
// the recognized taxonomy is transient by definition.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidCaptcha) || errors.Is(err, ErrCancelled) {
		return false
	}
	var site *SiteMessageError
	return !errors.As(err, &site)
}

// CaptchaAlertMarkers are the substrings of a registry alert that identify
// an invalid or expired captcha (security-code / wrong).
var CaptchaAlertMarkers = []string{"کد امنیتی", "اشتباه"}

// IsCaptchaAlert classifies an alert message.
func IsCaptchaAlert(text string) bool {
	for _, marker := range CaptchaAlertMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// --- operator API envelopes ---

// NewInvalidInputError builds a 400-class envelope.
func NewInvalidInputError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope("INVALID_INPUT", message)
}

// NewNotFoundError builds a 404-class envelope.
func NewNotFoundError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope("NOT_FOUND", message)
}

// NewMethodNotAllowedError builds a 405-class envelope.
func NewMethodNotAllowedError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope("METHOD_NOT_ALLOWED", message)
}

// NewConflictError builds a 409-class envelope, used when an operator action
// races the run state (e.g. submitting a captcha no one is waiting for).
func NewConflictError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope("CONFLICT", message)
}

// NewInternalError builds a 500-class envelope.
func NewInternalError(message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope("INTERNAL_ERROR", message)
}

// HTTPStatusFromCode resolves the HTTP status corresponding to an envelope
// code.
func HTTPStatusFromCode(code string) int {
	switch code {
	case "INVALID_INPUT", "VALIDATION_FAILED":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "METHOD_NOT_ALLOWED":
		return http.StatusMethodNotAllowed
	case "CONFLICT":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorDetail captures the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail in the standard envelope shape.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError normalizes the supplied error and writes a JSON response.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	envelope, ok := err.(*gferrors.ErrorEnvelope)
	if !ok || envelope == nil {
		envelope = gferrors.NewErrorEnvelope("INTERNAL_ERROR", err.Error())
	}
	if envelope.CorrelationID == "" {
		envelope = envelope.WithCorrelationID(uuid.New().String())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatusFromCode(envelope.Code))
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			RequestID: envelope.CorrelationID,
		},
	})
}
