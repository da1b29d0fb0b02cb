package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Product is a sellable menu item. SellingPrice is the current price; orders
// keep their own copy taken at checkout.
type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	CategoryID   *int64          `db:"category_id" json:"category_id"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	ImageURL     string          `db:"image_url" json:"image_url"`
	Active       bool            `db:"active" json:"active"`
}
