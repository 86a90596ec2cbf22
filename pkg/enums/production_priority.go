package enums

import "github.com/shopspring/decimal"

// ProductionPriority is the payment-gated classification that decides whether
// an order may enter physical production. It is always derived from the
// deposit/total ratio, never stored.
type ProductionPriority string

const (
	PriorityWaitingForDeposit ProductionPriority = "waiting_for_deposit"
	PriorityReadyProduction   ProductionPriority = "ready_production"
	PriorityFullyPaid         ProductionPriority = "fully_paid"
)

var (
	readyThreshold = decimal.NewFromInt(50)
	paidThreshold  = decimal.NewFromInt(100)
)

// String implements fmt.Stringer.
func (p ProductionPriority) String() string {
	return string(p)
}

// PriorityFromPercentage classifies the exact percentage-paid ratio.
func PriorityFromPercentage(percentage decimal.Decimal) ProductionPriority {
	switch {
	case percentage.GreaterThanOrEqual(paidThreshold):
		return PriorityFullyPaid
	case percentage.GreaterThanOrEqual(readyThreshold):
		return PriorityReadyProduction
	default:
		return PriorityWaitingForDeposit
	}
}
