package errutil

import (
	"errors"
	"net/http"
)

func asBase(err error, target *BaseError) bool {
	return errors.As(err, target)
}

// ToHTTP normalises a domain error into an HTTP status plus a JSON body.
func ToHTTP(err error) (int, interface{}) {
	if err == nil {
		return http.StatusOK, nil
	}

	var base BaseError
	if errors.As(err, &base) {
		return base.Code.HTTPCode(), base.JSON()
	}

	return http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    StatusInternal,
			"message": err.Error(),
		},
	}
}
