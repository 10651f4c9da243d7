// README: Presentational invoice arithmetic over frozen order prices.
package invoice

import (
	"errors"

	"kurier/internal/types"
)

var ErrBadPresentation = errors.New("presentation percentages out of range")

// Build computes the invoice totals from the order lines. Discount applies to
// the gross amount, Skonto to what remains after the discount, and VAT to the
// net. All rounding is half-up per step, matching the payout arithmetic.
func Build(lines []Line, pres Presentation) (Totals, error) {
	if pres.DiscountPercent < 0 || pres.DiscountPercent > 100 ||
		pres.SkontoPercent < 0 || pres.SkontoPercent > 100 ||
		pres.VATPercent < 0 || pres.VATPercent > 100 {
		return Totals{}, ErrBadPresentation
	}

	subtotal := types.EUR(0)
	fees := types.EUR(0)
	for _, l := range lines {
		subtotal = subtotal.Add(l.BasePrice).Add(l.PriceIncrease)
		fees = fees.Add(l.WaitingTimeFee)
	}

	gross := subtotal.Add(fees)
	discount := gross.Percent(int64(pres.DiscountPercent))
	afterDiscount := gross.Sub(discount)
	skonto := afterDiscount.Percent(int64(pres.SkontoPercent))
	net := afterDiscount.Sub(skonto)
	vat := net.Percent(int64(pres.VATPercent))

	return Totals{
		Subtotal:        subtotal,
		WaitingTimeFees: fees,
		Discount:        discount,
		Skonto:          skonto,
		Net:             net,
		VAT:             vat,
		Total:           net.Add(vat),
	}, nil
}
