package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"dinepos/m/domain"
)

type Catalog struct {
	db DB
}

func NewCatalog(db DB) *Catalog { return &Catalog{db: db} }

func (r *Catalog) Categories(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := list(ctx, r.db, &out, `SELECT id, name FROM categories ORDER BY name`)
	return out, err
}

// EnsureCategory returns the id of the named category, creating it if needed.
func (r *Catalog) EnsureCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	var id int64
	err := get(ctx, r.db, &id, `SELECT id FROM categories WHERE name = ?`, name)
	if err == nil {
		return id, nil
	}
	if err != domain.ErrNotFound {
		return 0, err
	}
	return insert(ctx, r.db, `INSERT INTO categories (name) VALUES (?)`, name)
}

type ProductFilter struct {
	CategoryID *int64
	ActiveOnly bool
	Search     string
}

func (r *Catalog) Products(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	var (
		clauses []string
		args    []any
	)
	if f.CategoryID != nil {
		clauses = append(clauses, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.ActiveOnly {
		clauses = append(clauses, "active = ?")
		args = append(args, true)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clauses = append(clauses, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	query := `SELECT id, name, category_id, selling_price, image_url, active FROM products`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name"

	out := []domain.Product{}
	err := list(ctx, r.db, &out, query, args...)
	return out, err
}

// ProductsByID loads the given products keyed by id. Missing ids are simply
// absent from the map.
func (r *Catalog) ProductsByID(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, category_id, selling_price, image_url, active FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []domain.Product
	if err := list(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Catalog) CreateProduct(ctx context.Context, p *domain.Product) error {
	id, err := insert(ctx, r.db,
		`INSERT INTO products (name, category_id, selling_price, image_url, active) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.CategoryID, domain.Money(p.SellingPrice), p.ImageURL, p.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	p.ID = id
	return nil
}

// UpsertProduct is used by the menu loader: it updates price, category and
// image of an existing product by name or inserts a new one.
func (r *Catalog) UpsertProduct(ctx context.Context, p *domain.Product) error {
	var id int64
	err := get(ctx, r.db, &id, `SELECT id FROM products WHERE name = ?`, p.Name)
	switch err {
	case nil:
		p.ID = id
		_, err = exec(ctx, r.db,
			`UPDATE products SET category_id = ?, selling_price = ?, image_url = ?, active = ? WHERE id = ?`,
			p.CategoryID, domain.Money(p.SellingPrice), p.ImageURL, p.Active, id)
		return err
	case domain.ErrNotFound:
		return r.CreateProduct(ctx, p)
	default:
		return err
	}
}
