package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed API call. The string value is what users see as the
// error type.
type Kind string

const (
	KindBadRequest      Kind = "Bad Request"
	KindUnauthorized    Kind = "Unauthorized"
	KindForbidden       Kind = "Forbidden"
	KindNotFound        Kind = "Not Found"
	KindValidationError Kind = "Validation Error"
	KindServerError     Kind = "Server Error"
	KindAPIError        Kind = "API Error"
	KindNetworkError    Kind = "Network Error"
	KindError           Kind = "Error"
)

// Sentinels for use with errors.Is. Matching is by Kind only.
var (
	ErrBadRequest   = &APIError{Kind: KindBadRequest}
	ErrUnauthorized = &APIError{Kind: KindUnauthorized}
	ErrForbidden    = &APIError{Kind: KindForbidden}
	ErrNotFound     = &APIError{Kind: KindNotFound}
	ErrValidation   = &APIError{Kind: KindValidationError}
	ErrServer       = &APIError{Kind: KindServerError}
	ErrAPI          = &APIError{Kind: KindAPIError}
	ErrNetwork      = &APIError{Kind: KindNetworkError}
	ErrRequest      = &APIError{Kind: KindError}
)

const defaultBodyMessage = "Server error"

// APIError is the normalized shape of every error returned by Client.
type APIError struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	// Err is the underlying transport or encoding error, if any.
	Err error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches any *APIError of the same Kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Classify converts any error into an *APIError. Errors that are already
// classified are returned as-is; anything else is a local fault of KindError.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Kind: KindError, Message: err.Error(), Err: err}
}

// Message returns the human-readable part of a classified error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).Message
}

func networkError(err error) *APIError {
	return &APIError{Kind: KindNetworkError, Message: "Unable to connect to server", Err: err}
}

func requestError(err error) *APIError {
	return &APIError{Kind: KindError, Message: err.Error(), Err: err}
}

// statusError builds the error for a non-2xx response. Some statuses carry a fixed
// message; the rest surface the server's "message" or "detail" field.
func statusError(status int, body []byte) *APIError {
	msg := bodyMessage(body)
	e := &APIError{Status: status, Message: msg}

	switch status {
	case http.StatusBadRequest:
		e.Kind = KindBadRequest
	case http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		e.Message = "Authentication required"
	case http.StatusForbidden:
		e.Kind = KindForbidden
		e.Message = "Access denied"
	case http.StatusNotFound:
		e.Kind = KindNotFound
		e.Message = "Resource not found"
	case http.StatusUnprocessableEntity:
		e.Kind = KindValidationError
	case http.StatusInternalServerError:
		e.Kind = KindServerError
		e.Message = "Internal server error"
	default:
		e.Kind = KindAPIError
	}
	return e
}

func bodyMessage(body []byte) string {
	var payload struct {
		Message any `json:"message"`
		Detail  any `json:"detail"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return defaultBodyMessage
	}
	if s := textOf(payload.Message); s != "" {
		return s
	}
	if s := textOf(payload.Detail); s != "" {
		return s
	}
	return defaultBodyMessage
}

// textOf returns strings as-is and re-encodes structured values (validation
// details are usually a list of objects).
func textOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
