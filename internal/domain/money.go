package domain

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept for every monetary value.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney truncates to MoneyScale places. Fractional cents are dropped, never rounded up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(MoneyScale)
}

// PercentOf returns percent% of base, truncated.
func PercentOf(base, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(percent).Div(hundred))
}

// SourceRef identifies the business object that triggered a mutation.
type SourceRef struct {
	Type string `json:"source_type" validate:"required"`
	ID   string `json:"source_id" validate:"required"`
}

func (s SourceRef) String() string {
	return s.Type + ":" + s.ID
}
