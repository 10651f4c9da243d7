// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kurier/internal/modules/bid"
	"kurier/internal/modules/cmr"
	"kurier/internal/modules/invoice"
	"kurier/internal/modules/order"
	"kurier/internal/modules/penalty"
	"kurier/internal/modules/pricing"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinel errors onto HTTP status codes.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrValidation),
		errors.Is(err, bid.ErrValidation),
		errors.Is(err, cmr.ErrValidation),
		errors.Is(err, cmr.ErrIncompleteStop),
		errors.Is(err, cmr.ErrNotSigned),
		errors.Is(err, penalty.ErrValidation),
		errors.Is(err, invoice.ErrValidation),
		errors.Is(err, pricing.ErrBadRequest),
		errors.Is(err, pricing.ErrUnknownVehicle):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, bid.ErrNotFound),
		errors.Is(err, cmr.ErrNotFound),
		errors.Is(err, penalty.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrUnauthorized),
		errors.Is(err, bid.ErrUnauthorized),
		errors.Is(err, cmr.ErrUnauthorized),
		errors.Is(err, penalty.ErrUnauthorized),
		errors.Is(err, invoice.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrStateConflict),
		errors.Is(err, order.ErrConflict),
		errors.Is(err, bid.ErrDuplicate),
		errors.Is(err, bid.ErrNotOpen),
		errors.Is(err, bid.ErrDecided),
		errors.Is(err, cmr.ErrWrongStage),
		errors.Is(err, cmr.ErrFrozen),
		errors.Is(err, penalty.ErrSettled),
		errors.Is(err, invoice.ErrSent):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
