package repository

import (
	"context"

	"dinepos/m/domain"
)

// A rider's workload counts assigned orders that have not left the pipeline.
const riderSelect = `SELECT r.id, r.name, r.phone, r.payout_type, r.per_delivery_rate, r.per_km_rate, r.base_rate, r.active,
	(SELECT COUNT(*) FROM orders o WHERE o.rider_id = r.id
		AND o.status IN ('pending', 'confirmed', 'cooking', 'ready', 'dispatched')) AS pending_deliveries
	FROM riders r`

type Riders struct {
	db DB
}

func NewRiders(db DB) *Riders { return &Riders{db: db} }

func (r *Riders) Insert(ctx context.Context, rd *domain.Rider) error {
	id, err := insert(ctx, r.db, `INSERT INTO riders (name, phone, payout_type, per_delivery_rate, per_km_rate, base_rate, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rd.Name, rd.Phone, rd.PayoutType, rd.PerDeliveryRate, rd.PerKmRate, rd.BaseRate, rd.Active)
	if err != nil {
		return err
	}
	rd.ID = id
	return nil
}

func (r *Riders) Get(ctx context.Context, id int64) (domain.Rider, error) {
	var rd domain.Rider
	err := get(ctx, r.db, &rd, riderSelect+` WHERE r.id = ?`, id)
	return rd, err
}

func (r *Riders) List(ctx context.Context, activeOnly bool) ([]domain.Rider, error) {
	out := []domain.Rider{}
	if activeOnly {
		err := list(ctx, r.db, &out, riderSelect+` WHERE r.active = ? ORDER BY r.name`, true)
		return out, err
	}
	err := list(ctx, r.db, &out, riderSelect+` ORDER BY r.name`)
	return out, err
}
