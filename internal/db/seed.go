package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
)

// aiProductOffset separates the AI-generated catalog from the regular one.
const aiProductOffset = 1000

type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type seedCategory struct {
	id, label string
}

type seedProduct struct {
	id         int64
	name       string
	price      string
	tags       []string
	rating     float64
	background string
}

var seedCategories = []seedCategory{
	{"xmas", "Xmas"},
	{"candy", "Candy"},
	{"monster", "Monster"},
	{"camping", "Camping"},
	{"sporty", "Sporty"},
}

var seedProducts = []seedProduct{
	{100, "Xmas Globin", "3.12", []string{"xmas", "candy", "queen", catalog.FeaturedTag}, 4.5, "#49B649"},
	{101, "City Hunter", "2.15", []string{"monster", "hunter", "sporty"}, 4.5, "#AF2A3A"},
	{102, "Cosy Student", "1.63", []string{"king", "student", "blue", "sporty"}, 4.5, "#E1BF47"},
	{103, "Baby Boy", "9.30", []string{"sporty", "blue"}, 4.5, "#4962B6"},
	{104, "Active Summer", "4.80", []string{"sporty", "summer", catalog.FeaturedTag}, 4.5, "#B69349"},
	{105, "Mystery Landlord", "2.58", []string{"monster", "landlord", catalog.FeaturedTag}, 4.5, "#954AB1"},
	{106, "Sporty Friend", "1.20", []string{"sporty", "friend", "blue"}, 4.5, "#1E82A3"},
	{107, "Halloween Cuties", "12.60", []string{"queen", catalog.FeaturedTag, "halloween", "monster"}, 4.5, "#BE0B88"},
	{108, "Let's go camping", "7.75", []string{"camping", "sporty", catalog.FeaturedTag}, 4.5, "#A5B649"},
	{109, "Study hard", "10.10", []string{"student", "sporty", "boy", "blue"}, 4.5, "#49ABB6"},
	{110, "Awesome Pumpkin", "3.60", []string{"halloween", "monster", catalog.FeaturedTag}, 4.5, "#B64957"},
	{111, "Warm cave", "5.30", []string{"monster", "cave", catalog.FeaturedTag}, 4.5, "#B66649"},
	{113, "Snow man", "5.30", []string{"snow", "xmas", "cold"}, 4.5, "#810CC5"},
	{114, "Santa's surprise", "6.30", []string{"santa", "xmas", "gift", "boy"}, 4.5, "#EDBF6B"},
	{115, "Jingle all the slide", "4.30", []string{"xmas", "santa", "sleigh", "snow", "sporty"}, 4.5, "#9F0000"},
	{116, "Santa Claus is coming", "5.80", []string{"santa", "xmas", "cute"}, 4.5, "#A95FA1"},
	{117, "Peter Pan", "2.58", []string{"camping", "xmas", catalog.FeaturedTag, "boy"}, 4.5, "#C8BD1D"},
	{118, "Santa claus", "3.20", []string{"xmas", "santa", catalog.FeaturedTag}, 4.5, "#2E71DE"},
	{119, "Sound of love", "12.60", []string{"baby", "angel", "love", "xmas", "music"}, 4.5, "#179193"},
	{120, "Baby Angel", "7.50", []string{"xmas", "baby", "angel"}, 4.5, "#1340BA"},
	{121, "King", "10.10", []string{"king", "xmas", catalog.FeaturedTag}, 4.5, "#B65749"},
	{122, "Little Red Riding Hood", "3.60", []string{"Girl", "student", "camping", "xmas"}, 4.5, "#1C914A"},
	{123, "Friends Forever", "5.30", []string{"friend", "xmas", "sporty"}, 5, "#D3A117"},
}

// seedStock spreads the catalog over every stock status so each code path
// has data to work with.
func seedStock(productID int64) (int, catalog.StockStatus) {
	switch {
	case productID%17 == 0:
		return 0, catalog.OutOfStock
	case productID%13 == 0:
		return 10 + int(productID%10), catalog.LowStock
	case productID%23 == 0:
		return 0, catalog.PreOrder
	default:
		return 50 + int(productID%150), catalog.InStock
	}
}

// Seed inserts the demo catalog. Existing rows are left untouched.
func Seed(ctx context.Context, db TxStarter, logger *zap.Logger) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range seedCategories {
		if _, err := tx.Exec(ctx, `
			INSERT INTO categories (id, label) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, c.id, c.label); err != nil {
			return fmt.Errorf("seed category %s: %w", c.id, err)
		}
	}

	inserted := 0
	for _, p := range seedProducts {
		for _, isAI := range []bool{false, true} {
			id, name := p.id, p.name
			if isAI {
				id += aiProductOffset
				name += " by AI"
			}
			qty, status := seedStock(id)
			tag, err := tx.Exec(ctx, `
				INSERT INTO products (id, name, price, tags, rating, background, is_ai, stock_quantity, stock_status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO NOTHING
			`, id, name, p.price, p.tags, p.rating, p.background, isAI, qty, string(status))
			if err != nil {
				return fmt.Errorf("seed product %d: %w", id, err)
			}
			inserted += int(tag.RowsAffected())
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	logger.Info("catalog seeded", zap.Int("products_inserted", inserted))
	return nil
}
