// Package apierror maps domain errors to http responses.
package apierror

import (
	"net/http"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Status returns the http status code for err.
func Status(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindAmountOverflow:
		return http.StatusBadRequest
	case domain.KindAccountNotFound, domain.KindTransactionNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindBusy:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// Response returns status code and response body for err.
//
// Internal failures never leak their cause to the client.
func Response(err error) (int, web.Response) {
	status := Status(err)

	switch status {
	case http.StatusInternalServerError:
		return status, web.Error(errorspkg.ErrInternal)
	case http.StatusServiceUnavailable:
		return status, web.Error(domain.ErrAccountBusy)
	}

	return status, web.Error(err)
}
