package domain

import "github.com/shopspring/decimal"

type DeliveryArea struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	DistanceKm decimal.Decimal `db:"distance_km" json:"distance_km"`
	Active     bool            `db:"active" json:"active"`
}

// DeliveryCharge is the surcharge quoted for an area and subtotal.
type DeliveryCharge struct {
	AreaID         int64           `json:"area_id"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	IsFree         bool            `json:"is_free"`
	RuleType       string          `json:"rule_type"`
}
