package api

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/lumenlater/lumen-later/domain/entities"
)

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, entities.ErrBillNotFound),
		errors.Is(err, entities.ErrMerchantNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrUnauthorized),
		errors.Is(err, entities.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrAlreadyInitialized),
		errors.Is(err, entities.ErrMerchantAlreadyEnrolled):
		return http.StatusConflict
	case errors.Is(err, entities.ErrInvalidAmount),
		errors.Is(err, entities.ErrInvalidAccount):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, entities.ErrBillNotPayable),
		errors.Is(err, entities.ErrBillNotPaid),
		errors.Is(err, entities.ErrBillExpired),
		errors.Is(err, entities.ErrLiquidationNotPossible),
		errors.Is(err, entities.ErrGracePeriodNotExpired),
		errors.Is(err, entities.ErrNotPoolShareHolder),
		errors.Is(err, entities.ErrInsufficientAvailableBalance),
		errors.Is(err, entities.ErrInsufficientShares),
		errors.Is(err, entities.ErrInsufficientCollateral),
		errors.Is(err, entities.ErrInsufficientCollateralForLiquidation),
		errors.Is(err, entities.ErrMerchantNotApproved),
		errors.Is(err, entities.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
