package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"dinepos/m/domain"
	"dinepos/m/internal/repository"
	"dinepos/m/internal/testutil"
)

const menu = `category,name,price,image_url,active
Burgers,Classic Burger,12.50,/img/classic.png,1
Burgers,Cheese Burger,14,,
Drinks,Cola,2.5,,0
Drinks,,3,,
Drinks,Broken,abc,,
`

func TestLoadMenu(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	n, err := LoadMenu(ctx, db, strings.NewReader(menu))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("loaded %d rows, want 3", n)
	}

	catalog := repository.NewCatalog(db)
	cats, err := catalog.Categories(ctx)
	if err != nil || len(cats) != 2 {
		t.Fatalf("categories = %+v, %v", cats, err)
	}
	active, err := catalog.Products(ctx, repository.ProductFilter{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active products = %d, want 2", len(active))
	}

	// Reloading updates prices instead of duplicating rows.
	if _, err := LoadMenu(ctx, db, strings.NewReader("category,name,price\nBurgers,Classic Burger,13\n")); err != nil {
		t.Fatal(err)
	}
	all, _ := catalog.Products(ctx, repository.ProductFilter{Search: "classic"})
	if len(all) != 1 || !all[0].SellingPrice.Equal(decimal.NewFromInt(13)) {
		t.Fatalf("classic burger = %+v", all)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := EnsureAdmin(ctx, db, "Boss@Example.com", "pw"); err != nil {
			t.Fatal(err)
		}
	}
	u, err := repository.NewUsers(db).ByEmail(ctx, "boss@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != domain.RoleManager {
		t.Fatalf("role = %s", u.Role)
	}
}
