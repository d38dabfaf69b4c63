package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure categories the service can signal.
type ErrorKind string

const (
	// KindAuthentication means invalid or expired credentials.
	KindAuthentication ErrorKind = "authentication"

	// KindForbidden means the caller is not allowed to perform the action.
	KindForbidden ErrorKind = "forbidden"

	// KindRateLimit means request-rate throttling.
	KindRateLimit ErrorKind = "rate_limit"

	// KindExceedCallQuota means the quota for a specific action is exhausted.
	KindExceedCallQuota ErrorKind = "exceed_call_quota"

	// KindInvalidSignedInfo means the request signing/integrity check failed.
	KindInvalidSignedInfo ErrorKind = "invalid_signed_info"

	// KindUnknown is everything else, including transport failures.
	KindUnknown ErrorKind = "unknown"
)

// Sentinels for errors.Is. Every *Error unwraps to exactly one of them.
var (
	ErrAuthentication    = errors.New("authentication error")
	ErrForbidden         = errors.New("forbidden error")
	ErrRateLimit         = errors.New("rate limit error")
	ErrExceedCallQuota   = errors.New("exceed call quota error")
	ErrInvalidSignedInfo = errors.New("invalid signed info")
	ErrUnknown           = errors.New("unknown error")
)

// Service error codes carried in the "error_code" field of failure bodies.
// They are more specific than the HTTP status and win over it.
const (
	codeAccessTokenExpired = -2
	codeAccessTokenInvalid = -3
	codeIncorrectPassword  = -5
	codeQuotaLimitExceeded = -343
	codeInvalidSignedInfo  = -380
)

// Error is a failed call to the service.
type Error struct {
	Kind       ErrorKind
	StatusCode int

	// Code is the service error_code, zero when absent.
	Code    int
	Message string

	// Body is the raw response body, kept for diagnostics.
	Body []byte

	// Header is the response header set, nil for transport failures.
	Header http.Header

	// Err is the underlying transport or decoding failure, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.StatusCode != 0 {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("yay %s error (status %d): %s: %v", e.Kind, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("yay %s error (status %d): %s", e.Kind, e.StatusCode, msg)
}

// Unwrap exposes the kind sentinel and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindAuthentication:
		return ErrAuthentication
	case KindForbidden:
		return ErrForbidden
	case KindRateLimit:
		return ErrRateLimit
	case KindExceedCallQuota:
		return ErrExceedCallQuota
	case KindInvalidSignedInfo:
		return ErrInvalidSignedInfo
	default:
		return ErrUnknown
	}
}

// KindOf returns the kind of a client error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// failureBody is the shape of the service's error responses.
type failureBody struct {
	Result    string `json:"result"`
	Message   string `json:"message"`
	ErrorCode int    `json:"error_code"`
}

// Classify maps a completed response to nil (any 2xx) or exactly one *Error.
// It is total: anything unrecognized is KindUnknown. The body is only read,
// never modified.
func Classify(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var fb failureBody
	_ = json.Unmarshal(body, &fb)

	return &Error{
		Kind:       classifyKind(statusCode, fb.ErrorCode),
		StatusCode: statusCode,
		Code:       fb.ErrorCode,
		Message:    fb.Message,
		Body:       body,
	}
}

func classifyKind(statusCode, code int) ErrorKind {
	switch code {
	case codeAccessTokenExpired, codeAccessTokenInvalid, codeIncorrectPassword:
		return KindAuthentication
	case codeQuotaLimitExceeded:
		return KindExceedCallQuota
	case codeInvalidSignedInfo:
		return KindInvalidSignedInfo
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindUnknown
	}
}

// transportError wraps a failure that produced no response at all.
func transportError(msg string, err error) *Error {
	return &Error{
		Kind:    KindUnknown,
		Message: msg,
		Err:     err,
	}
}
