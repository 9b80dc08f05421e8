package pricing

import (
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// moneyScale matches the numeric(12,3) columns orders are stored in.
const moneyScale = 3

var (
	retailMultiplier  = decimal.RequireFromString("0.9")
	loyaltyMultiplier = decimal.RequireFromString("0.9")
)

// Engine computes checkout totals. Retail customers get a flat unit price
// discount; every third completed checkout earns an extra loyalty discount on
// the whole total. The two stack multiplicatively.
type Engine struct{}

// NewEngine constructs a pricing engine.
func NewEngine() *Engine {
	return &Engine{}
}

// QuoteLine is one cart line to be priced.
type QuoteLine struct {
	Product  models.Product
	Quantity int
}

// QuotedLine is a priced line with the unit price the buyer pays.
type QuotedLine struct {
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// Quote is a fully priced checkout.
type Quote struct {
	Lines          []QuotedLine
	Total          decimal.Decimal
	LoyaltyApplied bool
}

// UnitPrice returns the per-unit price for the given discount class.
func (e *Engine) UnitPrice(listPrice decimal.Decimal, class enums.DiscountClass) decimal.Decimal {
	if class == enums.DiscountClassRetail {
		return listPrice.Mul(retailMultiplier).Round(moneyScale)
	}
	return listPrice.Round(moneyScale)
}

// LoyaltyEligible reports whether the checkout about to complete earns the
// loyalty discount. The check runs against the visit count before it is
// incremented, so the discount lands on every third checkout.
func (e *Engine) LoyaltyEligible(visitCount int) bool {
	return (visitCount+1)%3 == 0
}

// Quote prices the given lines for a customer.
func (e *Engine) Quote(lines []QuoteLine, class enums.DiscountClass, visitCount int) Quote {
	quoted := make([]QuotedLine, 0, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		unit := e.UnitPrice(line.Product.Price, class)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(moneyScale)
		quoted = append(quoted, QuotedLine{
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			UnitPrice:   unit,
			Quantity:    line.Quantity,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}

	loyalty := e.LoyaltyEligible(visitCount)
	if loyalty {
		total = total.Mul(loyaltyMultiplier)
	}

	return Quote{
		Lines:          quoted,
		Total:          total.Round(moneyScale),
		LoyaltyApplied: loyalty,
	}
}
