package signal

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies errors for HTTP mapping and CLI output.
type Kind int

// Error kinds.
const (
	KindValidation Kind = iota + 1
	KindUsage
	KindConfiguration
	KindAuthorization
)

// Error is a classified sentinel carrying a catalog message key.
type Error struct {
	Kind Kind
	Key  string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// MessageKey returns the catalog key of the error.
func (e *Error) MessageKey() string { return e.Key }

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int { return kindStatus(e.Kind) }

// Sentinel errors.
var (
	ErrInvalidNumber    = &Error{Kind: KindValidation, Key: "numberinvalid", msg: "signal: invalid international phone number"}
	ErrRequireHTTPS     = &Error{Kind: KindValidation, Key: "requirehttps", msg: "signal: webhook must use https"}
	ErrUnknownSetting   = &Error{Kind: KindValidation, Key: "unknownsetting", msg: "signal: unknown setting"}
	ErrMissingMessage   = &Error{Kind: KindUsage, Key: "missingmessage", msg: "signal: message not set"}
	ErrMissingRecipient = &Error{Kind: KindUsage, Key: "missingrecipient", msg: "signal: recipient not set"}
	ErrNotConfigured    = &Error{Kind: KindConfiguration, Key: "notconfigured", msg: "signal: bot account not configured"}
	ErrAccountMismatch  = &Error{Kind: KindValidation, Key: "accountmismatch", msg: "signal: number is not the configured bot account"}
	ErrForbidden        = &Error{Kind: KindAuthorization, Key: "forbidden", msg: "signal: not allowed to act on another user"}
)

// APIError is a failed call to the Signal REST API.
type APIError struct {
	// Op is "METHOD /path".
	Op string
	// Code is the catalog key describing the failed operation.
	Code       string
	StatusCode int
	// Body is the remote error text, if any.
	Body string
	// Err is the transport error when no response was received.
	Err error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("signal: %s (%s): %v", e.Code, e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("signal: %s (%s): status %d: %s", e.Code, e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("signal: %s (%s): status %d", e.Code, e.Op, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// MessageKey returns the catalog key of the failed operation.
func (e *APIError) MessageKey() string { return e.Code }

// HTTPStatus implements the gateway's status mapping.
func (e *APIError) HTTPStatus() int { return http.StatusBadGateway }

func kindStatus(k Kind) int {
	switch k {
	case KindValidation, KindUsage:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsValidation reports whether err is rejected input.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsUsage reports whether err is a caller mistake (missing message or recipient).
func IsUsage(err error) bool { return isKind(err, KindUsage) }

// IsConfiguration reports whether err means the bot is not set up.
func IsConfiguration(err error) bool { return isKind(err, KindConfiguration) }

// IsAuthorization reports whether err is a permission failure.
func IsAuthorization(err error) bool { return isKind(err, KindAuthorization) }

// IsRemote reports whether err came from the Signal API.
func IsRemote(err error) bool {
	var e *APIError
	return errors.As(err, &e)
}

// MessageKey returns the catalog key for err, or "" for unclassified errors.
func MessageKey(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Key
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return ""
}

// Describe renders err for a user in lang. Remote failures append the
// remote body the way the admin pages show it.
func Describe(err error, lang string) string {
	key := MessageKey(err)
	if key == "" {
		return err.Error()
	}
	text := T(lang, key, nil)
	var api *APIError
	if errors.As(err, &api) && api.Body != "" {
		text += ": '" + api.Body + "'"
	}
	return text
}
