// Package commission derives the earnings split of a single sale line.
//
// All money arithmetic of the ledger lives here so the float and the
// fixed-point renditions can be swapped without touching callers.
package commission

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ModeFloat   = "float"
	ModeDecimal = "decimal"
)

// ProductLine is the input of one product sale line.
type ProductLine struct {
	InboundPrice         float64
	OutboundPrice        float64
	CommissionPercentage float64
	Quantity             int
	HasContractor        bool
}

type ProductSplit struct {
	TotalValue         float64
	NetProfit          float64
	ContractorEarnings float64
}

// ServiceLine is the input of one service sale line. LocationFeePercentage
// is ignored unless HasContractor is set.
type ServiceLine struct {
	BasePrice             float64
	LocationFeePercentage float64
	HasContractor         bool
}

type ServiceSplit struct {
	TotalValue         float64
	BusinessEarnings   float64
	ContractorEarnings float64
}

type Calculator interface {
	Product(line ProductLine) ProductSplit
	Service(line ServiceLine) ServiceSplit
}

// New returns the calculator for mode. An empty mode selects Float.
func New(mode string) (Calculator, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeFloat:
		return Float{}, nil
	case ModeDecimal:
		return Decimal{Places: 2}, nil
	default:
		return nil, fmt.Errorf("unknown commission mode %q", mode)
	}
}

// Float keeps plain float64 arithmetic with no rounding. Its service split
// sums back to the price only within binary rounding error.
type Float struct{}

func (Float) Product(line ProductLine) ProductSplit {
	qty := float64(line.Quantity)
	split := ProductSplit{
		TotalValue: line.OutboundPrice * qty,
		NetProfit:  (line.OutboundPrice - line.InboundPrice) * qty,
	}
	// Commission is paid out of revenue, not profit.
	if line.HasContractor && line.CommissionPercentage > 0 {
		split.ContractorEarnings = line.OutboundPrice * qty * (line.CommissionPercentage / 100)
	}
	return split
}

func (Float) Service(line ServiceLine) ServiceSplit {
	total := line.BasePrice
	if !line.HasContractor {
		return ServiceSplit{TotalValue: total, BusinessEarnings: total}
	}
	fee := total * (line.LocationFeePercentage / 100)
	return ServiceSplit{
		TotalValue:         total,
		BusinessEarnings:   fee,
		ContractorEarnings: total - fee,
	}
}

// Decimal computes in base-10 fixed point and rounds every output to Places
// digits. The service split always sums to the rounded total.
type Decimal struct {
	Places int32
}

var hundred = decimal.NewFromInt(100)

func (d Decimal) Product(line ProductLine) ProductSplit {
	qty := decimal.NewFromInt(int64(line.Quantity))
	outbound := decimal.NewFromFloat(line.OutboundPrice)
	inbound := decimal.NewFromFloat(line.InboundPrice)

	total := outbound.Mul(qty)
	split := ProductSplit{
		TotalValue: d.round(total),
		NetProfit:  d.round(outbound.Sub(inbound).Mul(qty)),
	}
	if line.HasContractor && line.CommissionPercentage > 0 {
		rate := decimal.NewFromFloat(line.CommissionPercentage).Div(hundred)
		split.ContractorEarnings = d.round(total.Mul(rate))
	}
	return split
}

func (d Decimal) Service(line ServiceLine) ServiceSplit {
	total := decimal.NewFromFloat(line.BasePrice).Round(d.Places)
	if !line.HasContractor {
		return ServiceSplit{TotalValue: d.round(total), BusinessEarnings: d.round(total)}
	}
	rate := decimal.NewFromFloat(line.LocationFeePercentage).Div(hundred)
	fee := total.Mul(rate).Round(d.Places)
	return ServiceSplit{
		TotalValue:         d.round(total),
		BusinessEarnings:   d.round(fee),
		ContractorEarnings: d.round(total.Sub(fee)),
	}
}

func (d Decimal) round(v decimal.Decimal) float64 {
	f, _ := v.Round(d.Places).Float64()
	return f
}
