package repository

import (
	"context"

	"dinepos/m/domain"
)

type Areas struct {
	db DB
}

func NewAreas(db DB) *Areas { return &Areas{db: db} }

func (r *Areas) Insert(ctx context.Context, a *domain.DeliveryArea) error {
	id, err := insert(ctx, r.db, `INSERT INTO delivery_areas (name, distance_km, active) VALUES (?, ?, ?)`,
		a.Name, a.DistanceKm, a.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	a.ID = id
	return nil
}

func (r *Areas) Get(ctx context.Context, id int64) (domain.DeliveryArea, error) {
	var a domain.DeliveryArea
	err := get(ctx, r.db, &a, `SELECT id, name, distance_km, active FROM delivery_areas WHERE id = ?`, id)
	return a, err
}

func (r *Areas) List(ctx context.Context, activeOnly bool) ([]domain.DeliveryArea, error) {
	out := []domain.DeliveryArea{}
	if activeOnly {
		err := list(ctx, r.db, &out, `SELECT id, name, distance_km, active FROM delivery_areas WHERE active = ? ORDER BY name`, true)
		return out, err
	}
	err := list(ctx, r.db, &out, `SELECT id, name, distance_km, active FROM delivery_areas ORDER BY name`)
	return out, err
}
