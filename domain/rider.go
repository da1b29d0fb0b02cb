package domain

import (
	"database/sql/driver"
	"sort"

	"github.com/shopspring/decimal"
)

type PayoutType string

const (
	PayoutPerDelivery PayoutType = "per_delivery"
	PayoutPerKm       PayoutType = "per_km"
	PayoutHybrid      PayoutType = "hybrid"
)

func (p PayoutType) Valid() bool {
	switch p {
	case PayoutPerDelivery, PayoutPerKm, PayoutHybrid:
		return true
	}
	return false
}

func ParsePayoutType(s string) (PayoutType, error) { return parseEnum[PayoutType]("payout type", s) }

func (p *PayoutType) UnmarshalJSON(b []byte) error { return unmarshalEnum("payout type", b, p) }
func (p *PayoutType) Scan(src any) error           { return scanEnum("payout type", src, p) }
func (p PayoutType) Value() (driver.Value, error)  { return string(p), nil }

type Rider struct {
	ID                int64           `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Phone             string          `db:"phone" json:"phone"`
	PayoutType        PayoutType      `db:"payout_type" json:"payout_type"`
	PerDeliveryRate   decimal.Decimal `db:"per_delivery_rate" json:"per_delivery_rate"`
	PerKmRate         decimal.Decimal `db:"per_km_rate" json:"per_km_rate"`
	BaseRate          decimal.Decimal `db:"base_rate" json:"base_rate"`
	Active            bool            `db:"active" json:"active"`
	PendingDeliveries int64           `db:"pending_deliveries" json:"pending_deliveries"`
}

// EstimatePayout is a decision aid for dispatchers, not a pay calculation.
func (r Rider) EstimatePayout(distanceKm decimal.Decimal) decimal.Decimal {
	switch r.PayoutType {
	case PayoutPerDelivery:
		return Money(r.PerDeliveryRate)
	case PayoutHybrid:
		return Money(r.PerDeliveryRate.Add(distanceKm.Mul(r.PerKmRate)))
	case PayoutPerKm:
		return Money(r.BaseRate.Add(distanceKm.Mul(r.PerKmRate)))
	}
	// Rows written before payout types were enforced fall back to per-km.
	return Money(r.BaseRate.Add(distanceKm.Mul(r.PerKmRate)))
}

type Workload string

const (
	WorkloadLow    Workload = "low"
	WorkloadMedium Workload = "medium"
	WorkloadHigh   Workload = "high"
)

func WorkloadFor(pending int64) Workload {
	switch {
	case pending > 3:
		return WorkloadHigh
	case pending > 1:
		return WorkloadMedium
	default:
		return WorkloadLow
	}
}

func (w Workload) rank() int {
	switch w {
	case WorkloadLow:
		return 0
	case WorkloadMedium:
		return 1
	case WorkloadHigh:
		return 2
	}
	return 3
}

// Less orders workloads from lightest to heaviest.
func (w Workload) Less(other Workload) bool { return w.rank() < other.rank() }

// RiderOption is a roster entry as shown to the dispatcher.
type RiderOption struct {
	Rider
	Workload        Workload         `json:"workload"`
	EstimatedPayout *decimal.Decimal `json:"estimated_payout,omitempty"`
}

// RankRiders classifies riders and orders them lightest workload first, then
// cheapest estimate, then by name. distanceKm may be nil when no area is known.
func RankRiders(riders []Rider, distanceKm *decimal.Decimal) []RiderOption {
	out := make([]RiderOption, 0, len(riders))
	for _, r := range riders {
		opt := RiderOption{Rider: r, Workload: WorkloadFor(r.PendingDeliveries)}
		if distanceKm != nil {
			est := r.EstimatePayout(*distanceKm)
			opt.EstimatedPayout = &est
		}
		out = append(out, opt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Workload != b.Workload {
			return a.Workload.Less(b.Workload)
		}
		if a.EstimatedPayout != nil && b.EstimatedPayout != nil && !a.EstimatedPayout.Equal(*b.EstimatedPayout) {
			return a.EstimatedPayout.LessThan(*b.EstimatedPayout)
		}
		return a.Name < b.Name
	})
	return out
}
