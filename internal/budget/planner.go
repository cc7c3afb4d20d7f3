// Package budget computes study-abroad cost plans. All money math uses
// decimals; float arithmetic is never applied to currency amounts.
package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// Award is a scholarship or grant counted toward funding.
type Award struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Plan is one academic year's cost and funding picture, all amounts in
// the destination currency.
type Plan struct {
	Tuition      decimal.Decimal `json:"tuition"`
	Living       decimal.Decimal `json:"living"`
	Insurance    decimal.Decimal `json:"insurance"`
	Travel       decimal.Decimal `json:"travel"`
	Fees         decimal.Decimal `json:"fees"`
	Savings      decimal.Decimal `json:"savings"`
	Scholarships []Award         `json:"scholarships,omitempty"`
}

// TotalCost sums every cost line.
func (p Plan) TotalCost() decimal.Decimal {
	return p.Tuition.Add(p.Living).Add(p.Insurance).Add(p.Travel).Add(p.Fees)
}

// TotalFunding sums savings and all scholarship awards.
func (p Plan) TotalFunding() decimal.Decimal {
	total := p.Savings
	for _, a := range p.Scholarships {
		total = total.Add(a.Amount)
	}
	return total
}

// Gap is the unfunded remainder, floored at zero. Overfunding is not a
// negative gap.
func (p Plan) Gap() decimal.Decimal {
	gap := p.TotalCost().Sub(p.TotalFunding())
	if gap.IsNegative() {
		return decimal.Zero
	}
	return gap
}

// CoveragePercent is funding as a percentage of cost, capped at 100.
// A plan with zero cost is reported as fully covered.
func (p Plan) CoveragePercent() decimal.Decimal {
	cost := p.TotalCost()
	if cost.IsZero() {
		return decimal.NewFromInt(100)
	}
	pct := p.TotalFunding().Div(cost).Mul(decimal.NewFromInt(100)).Round(1)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct
}

// MonthlySavingTarget spreads the gap over the whole months remaining
// until deadline, rounded up to the cent. A deadline in the past or
// less than a month away means the full gap is due now.
func (p Plan) MonthlySavingTarget(deadline, now time.Time) decimal.Decimal {
	gap := p.Gap()
	if gap.IsZero() {
		return decimal.Zero
	}
	months := monthsUntil(deadline, now)
	if months <= 1 {
		return gap
	}
	return gap.Div(decimal.NewFromInt(int64(months))).RoundCeil(2)
}

func monthsUntil(deadline, now time.Time) int {
	if !deadline.After(now) {
		return 0
	}
	months := 0
	for t := now.AddDate(0, 1, 0); !t.After(deadline); t = t.AddDate(0, 1, 0) {
		months++
	}
	return months
}
