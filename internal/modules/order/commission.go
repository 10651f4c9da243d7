// README: Contractor payout and platform commission resolution.
package order

import "kurier/internal/types"

// ContractorSharePercent is the contractor's share of every payable
// component except customer price increases.
const ContractorSharePercent = 85

type Payout struct {
	ContractorPrice types.Money
	Commission      types.Money
}

// ResolvePayout applies the 85/15 split to the base fare and the approved
// waiting fee. A price increase added by the customer to incentivize faster
// pickup is a pass-through: the contractor receives 100% of it and it never
// raises the commission.
//
//	contractor = 0.85*customer + increase + 0.85*approvedWaitingFee
func ResolvePayout(customerPrice, priceIncrease, approvedWaitingFee types.Money) Payout {
	baseShare := customerPrice.Percent(ContractorSharePercent)
	feeShare := approvedWaitingFee.Percent(ContractorSharePercent)

	contractor := baseShare.Add(priceIncrease).Add(feeShare)
	commission := customerPrice.Add(approvedWaitingFee).Sub(baseShare).Sub(feeShare)

	return Payout{ContractorPrice: contractor, Commission: commission}
}
