// README: Customer invoices over completed orders.
package invoice

import (
	"time"

	"kurier/internal/types"
)

type PaymentStatus string

const (
	PaymentOpen PaymentStatus = "open"
	PaymentPaid PaymentStatus = "paid"
)

type Invoice struct {
	ID              types.ID
	CustomerID      types.ID
	OrderIDs        []types.ID
	Subtotal        types.Money
	WaitingTimeFees types.Money
	Total           types.Money
	EmailSent       bool
	PaymentStatus   PaymentStatus
	CreatedAt       time.Time
}

// Line is one order's contribution to the invoice.
type Line struct {
	OrderID        types.ID
	BasePrice      types.Money
	PriceIncrease  types.Money
	WaitingTimeFee types.Money
}

// Presentation holds the toggles applied on top of the frozen order prices.
// They shape the rendered document only and never touch stored orders.
type Presentation struct {
	DiscountPercent int
	SkontoPercent   int
	VATPercent      int
}

// Totals is the presentational arithmetic result for one invoice.
type Totals struct {
	Subtotal        types.Money
	WaitingTimeFees types.Money
	Discount        types.Money
	Skonto          types.Money
	Net             types.Money
	VAT             types.Money
	Total           types.Money
}
