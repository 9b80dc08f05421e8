package controllers

import (
	"net/http"
	"strings"

	"github.com/dollmart/dollmart-backend/api/responses"
	"github.com/dollmart/dollmart-backend/api/validators"
	"github.com/dollmart/dollmart-backend/internal/availability"
	"github.com/dollmart/dollmart-backend/internal/catalog"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/logger"
)

// ProductsList serves the catalog. A ?query= term (or the short ?q= form)
// narrows by name or category, and every row carries the quantity still
// free to reserve.
func ProductsList(svc *catalog.Service, calc *availability.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			query = strings.TrimSpace(r.URL.Query().Get("q"))
		}

		var (
			products []models.Product
			err      error
		)
		if query == "" {
			products, err = svc.List(r.Context())
		} else {
			products, err = svc.Search(r.Context(), query)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := calc.AvailableByProduct(r.Context(), products)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]productResponse, 0, len(products))
		for i := range products {
			resp = append(resp, productFromModel(&products[i], available[products[i].ID]))
		}
		responses.WriteSuccess(w, resp)
	}
}

func ProductDetail(svc *catalog.Service, calc *availability.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := calc.Available(r.Context(), product)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, productFromModel(product, available))
	}
}

type createProductRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category,omitempty"`
	Price    string `json:"price" validate:"required"`
	OnHand   int    `json:"on_hand" validate:"gt=0"`
}

type updateProductRequest struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
	Price    *string `json:"price,omitempty"`
	OnHand   *int    `json:"on_hand,omitempty" validate:"omitempty,min=0"`
}

func ManagerCreateProduct(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parsePrice(payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), catalog.CreateProductInput{
			Name:     payload.Name,
			Category: payload.Category,
			Price:    price,
			OnHand:   payload.OnHand,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, productFromModel(product, product.OnHand))
	}
}

func ManagerUpdateProduct(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Name:     payload.Name,
			Category: payload.Category,
			OnHand:   payload.OnHand,
		}
		if payload.Price != nil {
			price, err := parsePrice(*payload.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Price = &price
		}

		product, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, productFromModel(product, product.OnHand))
	}
}

func ManagerDeleteProduct(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
