package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/repository"
)

// LoadMenuFile loads the menu CSV at path. A missing file is not an error:
// the catalog is then managed through the API only.
func LoadMenuFile(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("path", path).Msg("no menu file, skipping catalog seed")
			return 0, nil
		}
		return 0, fmt.Errorf("open menu %s: %w", path, err)
	}
	defer file.Close()
	return LoadMenu(ctx, db, file)
}

// LoadMenu ingests rows of category,name,price[,image_url[,active]] into the
// catalog, creating categories on the fly and updating products that already
// exist by name. Rows that cannot be parsed are skipped.
func LoadMenu(ctx context.Context, db *sqlx.DB, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("read menu header: %w", err)
	}

	rows := 0
	err := repository.InTx(ctx, db, func(tx *sqlx.Tx) error {
		catalog := repository.NewCatalog(tx)
		categories := map[string]int64{}
		line := 1
		for {
			record, err := reader.Read()
			line++
			if err == io.EOF {
				return nil
			}
			if err != nil {
				log.Warn().Err(err).Int("line", line).Msg("unable to read menu row")
				continue
			}
			p, category, err := parseMenuRow(record)
			if err != nil {
				log.Warn().Err(err).Int("line", line).Msg("skipping menu row")
				continue
			}
			if category != "" {
				id, ok := categories[category]
				if !ok {
					if id, err = catalog.EnsureCategory(ctx, category); err != nil {
						return fmt.Errorf("category %s: %w", category, err)
					}
					categories[category] = id
				}
				p.CategoryID = &id
			}
			if err := catalog.UpsertProduct(ctx, &p); err != nil {
				return fmt.Errorf("product %s: %w", p.Name, err)
			}
			rows++
		}
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int("rows", rows).Msg("seeded menu catalog")
	return rows, nil
}

func parseMenuRow(record []string) (domain.Product, string, error) {
	if len(record) < 3 {
		return domain.Product{}, "", fmt.Errorf("expected at least 3 columns, got %d", len(record))
	}
	category := strings.TrimSpace(record[0])
	name := strings.TrimSpace(record[1])
	if name == "" {
		return domain.Product{}, "", errors.New("empty product name")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil || price.IsNegative() {
		return domain.Product{}, "", fmt.Errorf("invalid price %q", record[2])
	}
	p := domain.Product{Name: name, SellingPrice: domain.Money(price), Active: true}
	if len(record) > 3 {
		p.ImageURL = strings.TrimSpace(record[3])
	}
	if len(record) > 4 {
		switch strings.ToLower(strings.TrimSpace(record[4])) {
		case "0", "false", "no", "inactive":
			p.Active = false
		}
	}
	return p, category, nil
}
