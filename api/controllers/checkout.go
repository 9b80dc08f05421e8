package controllers

import (
	"net/http"

	"github.com/dollmart/dollmart-backend/api/responses"
	"github.com/dollmart/dollmart-backend/api/validators"
	ordersvc "github.com/dollmart/dollmart-backend/internal/orders"
	"github.com/dollmart/dollmart-backend/pkg/logger"
)

type checkoutRequest struct {
	Confirm *bool `json:"confirm" validate:"required"`
}

// Checkout turns the caller's cart into a placed order. The caller states
// their decision explicitly: confirm=false cancels with no side effects.
// A confirmed checkout is atomic, a stock shortfall rolls everything back
// and reports the offending product.
func Checkout(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		placement, err := svc.Place(r.Context(), userID, *payload.Confirm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if placement.Cancelled {
			responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, orderFromModel(placement.Order))
	}
}
