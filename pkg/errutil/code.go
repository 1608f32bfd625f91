package errutil

import "net/http"

type CoreStatus string

const (
	StatusBadRequest       CoreStatus = "BAD_REQUEST"
	StatusValidationFailed CoreStatus = "VALIDATION_FAILED"
	StatusUnauthorized     CoreStatus = "UNAUTHORIZED"
	StatusForbidden        CoreStatus = "FORBIDDEN"
	StatusNotFound         CoreStatus = "NOT_FOUND"
	StatusConflict         CoreStatus = "CONFLICT"
	StatusInternal         CoreStatus = "INTERNAL"
	StatusUnknown          CoreStatus = "UNKNOWN"

	// Ledger engine taxonomy. These carry their own codes so callers can
	// branch on the exact failure instead of parsing messages.
	StatusInvalidAmount     CoreStatus = "INVALID_AMOUNT"
	StatusInsufficientFunds CoreStatus = "INSUFFICIENT_FUNDS"
	StatusBelowMinimum      CoreStatus = "BELOW_MINIMUM"
	StatusUnknownPlan       CoreStatus = "UNKNOWN_PLAN"
	StatusInvalidState      CoreStatus = "INVALID_STATE"
)

// HTTPCode converts the CoreStatus to its closest HTTP status code so the
// transport layer can surface domain errors without knowing the taxonomy.
func (s CoreStatus) HTTPCode() int {
	switch s {
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict, StatusInvalidState:
		return http.StatusConflict
	case StatusBadRequest, StatusValidationFailed, StatusInvalidAmount, StatusBelowMinimum, StatusUnknownPlan:
		return http.StatusBadRequest
	case StatusInsufficientFunds:
		return http.StatusUnprocessableEntity
	case StatusInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func InvalidAmount(msg string, err error, options ...Option) error {
	return New(StatusInvalidAmount, msg, append(options, WithErr(err))...)
}

func InsufficientFunds(msg string, err error, options ...Option) error {
	return New(StatusInsufficientFunds, msg, append(options, WithErr(err))...)
}

func BelowMinimum(msg string, err error, options ...Option) error {
	return New(StatusBelowMinimum, msg, append(options, WithErr(err))...)
}

func UnknownPlan(msg string, err error, options ...Option) error {
	return New(StatusUnknownPlan, msg, append(options, WithErr(err))...)
}

func InvalidState(msg string, err error, options ...Option) error {
	return New(StatusInvalidState, msg, append(options, WithErr(err))...)
}

// StatusOf extracts the CoreStatus from any error produced by this package.
func StatusOf(err error) CoreStatus {
	var be BaseError
	if ok := asBase(err, &be); ok {
		return be.Code
	}
	return StatusUnknown
}
