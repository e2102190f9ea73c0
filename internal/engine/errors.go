package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// The engine reports every rule violation as one of these kinds. Only
// ErrStoreUnavailable is worth retrying; the rest are deterministic for the
// same inputs.
var (
	ErrNoCredential           = errors.New("patron has no valid membership credential")
	ErrLoanLimitReached       = errors.New("active loan limit reached")
	ErrHasOverdueLoan         = errors.New("patron has an overdue loan")
	ErrTitleNotFound          = errors.New("title not found")
	ErrTitleUnavailable       = errors.New("no copies available")
	ErrInvalidStateTransition = errors.New("invalid loan state transition")
	ErrStoreUnavailable       = errors.New("record store unavailable")
)

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// HTTPStatus maps an engine error to the status code the handlers respond
// with. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoCredential),
		errors.Is(err, ErrLoanLimitReached),
		errors.Is(err, ErrHasOverdueLoan):
		return http.StatusForbidden
	case errors.Is(err, ErrTitleNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTitleUnavailable),
		errors.Is(err, ErrInvalidStateTransition):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
