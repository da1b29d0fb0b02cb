package migrations

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the POS backend.
func Run(db *sqlx.DB) error {
	dialect := sqliteTypes
	if db.DriverName() == "pgx" {
		dialect = postgresTypes
	}

	for i, stmt := range schema {
		if _, err := db.Exec(dialect.Replace(stmt)); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

var (
	sqliteTypes = strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{money}}", "REAL",
		"{{ts}}", "DATETIME",
	)
	postgresTypes = strings.NewReplacer(
		"{{pk}}", "BIGSERIAL PRIMARY KEY",
		"{{money}}", "NUMERIC(12,2)",
		"{{ts}}", "TIMESTAMPTZ",
	)
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id {{pk}},
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS categories (
            id {{pk}},
            name TEXT NOT NULL UNIQUE
        );`,
	`CREATE TABLE IF NOT EXISTS products (
            id {{pk}},
            name TEXT NOT NULL UNIQUE,
            category_id INTEGER REFERENCES categories(id),
            selling_price {{money}} NOT NULL,
            image_url TEXT NOT NULL DEFAULT '',
            active BOOLEAN NOT NULL DEFAULT TRUE
        );`,
	`CREATE TABLE IF NOT EXISTS sessions (
            id {{pk}},
            cashier_id INTEGER NOT NULL REFERENCES users(id),
            opening_cash {{money}} NOT NULL,
            closing_cash {{money}},
            expected_cash {{money}},
            discrepancy {{money}},
            opening_notes TEXT NOT NULL DEFAULT '',
            closing_notes TEXT NOT NULL DEFAULT '',
            opened_at {{ts}} NOT NULL,
            closed_at {{ts}},
            status TEXT NOT NULL
        );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sessions_one_open_per_cashier ON sessions(cashier_id) WHERE status = 'open';`,
	`CREATE TABLE IF NOT EXISTS riders (
            id {{pk}},
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            payout_type TEXT NOT NULL,
            per_delivery_rate {{money}} NOT NULL DEFAULT 0,
            per_km_rate {{money}} NOT NULL DEFAULT 0,
            base_rate {{money}} NOT NULL DEFAULT 0,
            active BOOLEAN NOT NULL DEFAULT TRUE
        );`,
	`CREATE TABLE IF NOT EXISTS delivery_areas (
            id {{pk}},
            name TEXT NOT NULL UNIQUE,
            distance_km {{money}} NOT NULL,
            active BOOLEAN NOT NULL DEFAULT TRUE
        );`,
	`CREATE TABLE IF NOT EXISTS orders (
            id {{pk}},
            order_number TEXT NOT NULL UNIQUE,
            session_id INTEGER REFERENCES sessions(id),
            cashier_id INTEGER REFERENCES users(id),
            order_type TEXT NOT NULL,
            status TEXT NOT NULL,
            payment_type TEXT NOT NULL,
            payment_status TEXT NOT NULL,
            subtotal {{money}} NOT NULL,
            discount {{money}} NOT NULL DEFAULT 0,
            delivery_charge {{money}} NOT NULL DEFAULT 0,
            grand_total {{money}} NOT NULL,
            cash_received {{money}} NOT NULL DEFAULT 0,
            change_due {{money}} NOT NULL DEFAULT 0,
            special_instructions TEXT NOT NULL DEFAULT '',
            tracking_token TEXT NOT NULL UNIQUE,
            rider_id INTEGER REFERENCES riders(id),
            area_id INTEGER REFERENCES delivery_areas(id),
            customer_name TEXT NOT NULL DEFAULT '',
            customer_phone TEXT NOT NULL DEFAULT '',
            delivery_address TEXT NOT NULL DEFAULT '',
            created_at {{ts}} NOT NULL,
            confirmed_at {{ts}},
            cooking_started_at {{ts}},
            ready_at {{ts}},
            dispatched_at {{ts}},
            delivered_at {{ts}},
            completed_at {{ts}},
            cancelled_at {{ts}},
            assigned_at {{ts}}
        );`,
	`CREATE INDEX IF NOT EXISTS orders_status_idx ON orders(status);`,
	`CREATE INDEX IF NOT EXISTS orders_session_idx ON orders(session_id);`,
	`CREATE TABLE IF NOT EXISTS order_items (
            id {{pk}},
            order_id INTEGER NOT NULL REFERENCES orders(id),
            product_id INTEGER NOT NULL REFERENCES products(id),
            product_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            unit_price {{money}} NOT NULL,
            line_total {{money}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS order_status_log (
            id {{pk}},
            order_id INTEGER NOT NULL REFERENCES orders(id),
            from_status TEXT NOT NULL,
            to_status TEXT NOT NULL,
            changed_by INTEGER REFERENCES users(id),
            changed_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS expenses (
            id {{pk}},
            session_id INTEGER NOT NULL REFERENCES sessions(id),
            amount {{money}} NOT NULL,
            category TEXT NOT NULL,
            rider_id INTEGER REFERENCES riders(id),
            description TEXT NOT NULL DEFAULT '',
            created_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS order_sequences (
            day TEXT PRIMARY KEY,
            seq INTEGER NOT NULL
        );`,
}
