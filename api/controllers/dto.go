package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/dollmart/dollmart-backend/internal/cart"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
)

type productResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
	CreatedAt time.Time       `json:"created_at"`
}

func productFromModel(p *models.Product, available int) productResponse {
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Available: available,
		CreatedAt: p.CreatedAt,
	}
}

type cartLineResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

func cartLineFromModel(line *models.CartLine) cartLineResponse {
	resp := cartLineResponse{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
	}
	if line.Product != nil {
		resp.ProductName = line.Product.Name
		resp.UnitPrice = line.Product.Price
	}
	return resp
}

type pricedCartLineResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Lines []pricedCartLineResponse `json:"lines"`
	Total decimal.Decimal          `json:"total"`
}

// cartFromPriced maps the priced cart view: every line carries the unit
// price the shopper's discount class pays, not the list price.
func cartFromPriced(priced *cartsvc.PricedCart) cartResponse {
	resp := cartResponse{
		Lines: make([]pricedCartLineResponse, 0, len(priced.Lines)),
		Total: priced.Total,
	}
	for _, line := range priced.Lines {
		item := pricedCartLineResponse{
			ProductID: line.Line.ProductID,
			Quantity:  line.Line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		}
		if line.Line.Product != nil {
			item.ProductName = line.Line.Product.Name
		}
		resp.Lines = append(resp.Lines, item)
	}
	return resp
}

type orderLineResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	Status         string              `json:"status"`
	Total          decimal.Decimal     `json:"total"`
	LoyaltyApplied bool                `json:"loyalty_applied"`
	DeliveryCode   string              `json:"delivery_code,omitempty"`
	Lines          []orderLineResponse `json:"lines"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// orderFromModel maps an order for its owner. The delivery code is part of
// the receipt, the customer hands it over on delivery.
func orderFromModel(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:             order.ID,
		Status:         order.Status.String(),
		Total:          order.Total,
		LoyaltyApplied: order.LoyaltyApplied,
		DeliveryCode:   order.DeliveryCode,
		DeliveredAt:    order.DeliveredAt,
		CreatedAt:      order.CreatedAt,
	}
	resp.Lines = make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal,
		})
	}
	return resp
}

// orderSummaryForManager omits the delivery code, managers verify the code
// the customer presents instead of reading it off the order.
func orderSummaryForManager(order *models.Order) orderResponse {
	resp := orderFromModel(order)
	resp.DeliveryCode = ""
	return resp
}

func ordersFromModels(orders []models.Order, mapper func(*models.Order) orderResponse) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, mapper(&orders[i]))
	}
	return resp
}
