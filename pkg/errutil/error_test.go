package errutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusRoundTripsThroughErrorsAs(t *testing.T) {
	err := fmt.Errorf("handler: %w", InsufficientFunds("insufficient balance", nil))

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, StatusInsufficientFunds, be.Status())
	require.Equal(t, StatusInsufficientFunds, StatusOf(err))
}

func TestStatusOfForeignError(t *testing.T) {
	require.Equal(t, StatusUnknown, StatusOf(errors.New("boom")))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("query failed", cause)

	require.ErrorIs(t, err, cause)
}

func TestHTTPCodeMapping(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusInvalidAmount:     http.StatusBadRequest,
		StatusBelowMinimum:      http.StatusBadRequest,
		StatusUnknownPlan:       http.StatusBadRequest,
		StatusInsufficientFunds: http.StatusUnprocessableEntity,
		StatusInvalidState:      http.StatusConflict,
		StatusNotFound:          http.StatusNotFound,
		StatusForbidden:         http.StatusForbidden,
		StatusUnknown:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, code.HTTPCode(), "code %s", code)
	}
}

func TestToHTTP(t *testing.T) {
	status, body := ToHTTP(UnknownPlan("unknown investment plan", nil))
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body)

	status, _ = ToHTTP(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, status)

	status, body = ToHTTP(nil)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, body)
}
