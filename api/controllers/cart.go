package controllers

import (
	"net/http"

	"github.com/dollmart/dollmart-backend/api/middleware"
	"github.com/dollmart/dollmart-backend/api/responses"
	"github.com/dollmart/dollmart-backend/api/validators"
	cartsvc "github.com/dollmart/dollmart-backend/internal/cart"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	"github.com/dollmart/dollmart-backend/pkg/logger"
)

type cartMutationRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CartView renders the cart priced for the caller's discount class, each
// line with its subtotal plus a running total. Loyalty is settled at
// checkout, never quoted here.
func CartView(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		class, err := enums.ParseDiscountClass(middleware.DiscountClassFromContext(r.Context()))
		if err != nil {
			class = enums.DiscountClassIndividual
		}

		priced, err := svc.ViewPriced(r.Context(), userID, class)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartFromPriced(priced))
	}
}

func CartAdd(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartMutationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := parseUUIDField(payload.ProductID, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.Add(r.Context(), userID, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartLineFromModel(line))
	}
}

type cartRemovalRequest struct {
	Amount int `json:"amount" validate:"omitempty,gt=0"`
}

// CartRemoveLine drops a product from the cart. Without a body the whole
// line goes; a body with an amount only reduces the reserved quantity, and
// the line still disappears once the reduction covers it.
func CartRemoveLine(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartRemovalRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if payload.Amount > 0 {
			if err := svc.Reduce(r.Context(), userID, productID, payload.Amount); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]string{"status": "reduced"})
			return
		}

		if err := svc.Remove(r.Context(), userID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func CartClear(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
