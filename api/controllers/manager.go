package controllers

import (
	"net/http"

	"github.com/dollmart/dollmart-backend/api/responses"
	"github.com/dollmart/dollmart-backend/api/validators"
	deliverysvc "github.com/dollmart/dollmart-backend/internal/delivery"
	ordersvc "github.com/dollmart/dollmart-backend/internal/orders"
	"github.com/dollmart/dollmart-backend/internal/users"
	"github.com/dollmart/dollmart-backend/pkg/logger"
)

// ManagerPendingOrders lists placed orders awaiting delivery, oldest first.
func ManagerPendingOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ordersFromModels(orders, orderSummaryForManager))
	}
}

// ManagerOrders lists the whole order book, newest first. Delivery codes
// stay hidden here like everywhere on the manager surface.
func ManagerOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ordersFromModels(orders, orderSummaryForManager))
	}
}

type customerResponse struct {
	users.Profile
	OrderCount int64 `json:"order_count"`
}

// ManagerCustomers lists every customer account with how many orders each
// has placed.
func ManagerCustomers(repo *users.Repository, orders *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customers, err := repo.ListCustomers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		counts, err := orders.CountsByUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]customerResponse, 0, len(customers))
		for i := range customers {
			resp = append(resp, customerResponse{
				Profile:    users.ProfileFromModel(&customers[i]),
				OrderCount: counts[customers[i].ID],
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

type confirmDeliveryRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// ManagerConfirmDelivery settles a pending order when the submitted code
// matches the one issued at checkout.
func ManagerConfirmDelivery(svc *deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Confirm(r.Context(), orderID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderSummaryForManager(order))
	}
}
