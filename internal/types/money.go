// README: Common money value object used across modules.
package types

import "fmt"

// Money is an amount in the currency's minor unit (euro cents).
type Money struct {
	Amount   int64
	Currency string
}

func EUR(cents int64) Money {
	return Money{Amount: cents, Currency: "EUR"}
}

// Percent returns pct% of m, rounded half up. Amounts are assumed non-negative.
func (m Money) Percent(pct int64) Money {
	return Money{Amount: (m.Amount*pct + 50) / 100, Currency: m.Currency}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}
