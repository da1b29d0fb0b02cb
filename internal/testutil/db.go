// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"dinepos/m/domain"
	"dinepos/m/internal/database"
	"dinepos/m/internal/migrations"
)

// OpenDB returns a migrated in-memory SQLite database closed at test end.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// CreateUser inserts a staff user with password "secret".
func CreateUser(t *testing.T, db *sqlx.DB, email string, role domain.Role) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	var id int64
	err = db.Get(&id, `INSERT INTO users (username, email, password, role, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		email, email, string(hash), role, time.Now().UTC())
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return domain.User{ID: id, Username: email, Email: email, Role: role}
}

// CreateProduct inserts an active product with the given price.
func CreateProduct(t *testing.T, db *sqlx.DB, name, price string) domain.Product {
	t.Helper()
	p := domain.Product{Name: name, SellingPrice: decimal.RequireFromString(price), Active: true}
	err := db.GetContext(context.Background(), &p.ID,
		`INSERT INTO products (name, selling_price, image_url, active) VALUES (?, ?, '', ?) RETURNING id`,
		p.Name, p.SellingPrice, true)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// CreateArea inserts an active delivery area.
func CreateArea(t *testing.T, db *sqlx.DB, name, km string) domain.DeliveryArea {
	t.Helper()
	a := domain.DeliveryArea{Name: name, DistanceKm: decimal.RequireFromString(km), Active: true}
	if err := db.Get(&a.ID, `INSERT INTO delivery_areas (name, distance_km, active) VALUES (?, ?, ?) RETURNING id`,
		a.Name, a.DistanceKm, true); err != nil {
		t.Fatalf("create area: %v", err)
	}
	return a
}

// CreateRider inserts an active rider.
func CreateRider(t *testing.T, db *sqlx.DB, r domain.Rider) domain.Rider {
	t.Helper()
	r.Active = true
	if err := db.Get(&r.ID, `INSERT INTO riders (name, phone, payout_type, per_delivery_rate, per_km_rate, base_rate, active)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		r.Name, r.Phone, r.PayoutType, r.PerDeliveryRate, r.PerKmRate, r.BaseRate, true); err != nil {
		t.Fatalf("create rider: %v", err)
	}
	return r
}

// Clock is a settable time source for services under test.
type Clock struct {
	T time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{T: t} }

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
