// Command seed-db loads the product catalog, a starter coupon set, and an
// admin API key into the database.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/solmercado/orders-api/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Discounted  bool            `json:"discounted"`
	DiscountPct decimal.Decimal `json:"discountPct"`
	Category    string          `json:"category"`
	Image       struct {
		Thumbnail string `json:"thumbnail"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

type couponJSON struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	ExpiresAt          time.Time       `json:"expiresAt"`
	Active             bool            `json:"active"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		couponsFile  string
		adminName    string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&couponsFile, "coupons-file", "db/seed/coupons.json", "path to coupons JSON file")
	flag.StringVar(&adminName, "admin-name", "admin", "display name for the seeded admin")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, couponsFile, adminName, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, couponsFile, adminName, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool, couponsFile); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAdminKey(ctx, pool, adminName, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed admin key")
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products file")
	}

	for _, p := range products {
		_, err := pool.Exec(ctx, `INSERT INTO products (id, name, price, discounted, discount_pct, category, image_thumbnail, image_desktop)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, price = EXCLUDED.price,
				discounted = EXCLUDED.discounted, discount_pct = EXCLUDED.discount_pct,
				category = EXCLUDED.category,
				image_thumbnail = EXCLUDED.image_thumbnail, image_desktop = EXCLUDED.image_desktop`,
			p.ID, p.Name, p.Price, p.Discounted, p.DiscountPct, p.Category, p.Image.Thumbnail, p.Image.Desktop,
		)
		if err != nil {
			return errors.Wrapf(err, "insert product %s", p.ID)
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no coupons file, skipping", slog.String("path", path))
			return nil
		}
		return errors.Wrap(err, "read coupons file")
	}
	var coupons []couponJSON
	if err := json.Unmarshal(data, &coupons); err != nil {
		return errors.Wrap(err, "parse coupons file")
	}

	for _, c := range coupons {
		_, err := pool.Exec(ctx, `INSERT INTO coupons (code, discount_percentage, expires_at, active)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO UPDATE SET
				discount_percentage = EXCLUDED.discount_percentage,
				expires_at = EXCLUDED.expires_at, active = EXCLUDED.active`,
			c.Code, c.DiscountPercentage, c.ExpiresAt, c.Active,
		)
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.Code)
		}
	}

	slog.Info("coupons seeded", slog.Int("count", len(coupons)))
	return nil
}

func seedAdminKey(ctx context.Context, pool *pgxpool.Pool, name, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `INSERT INTO admin_keys (id, key_hash, name, role, active)
		VALUES ($1, $2, $3, 'admin', TRUE)
		ON CONFLICT (key_hash) DO UPDATE SET name = EXCLUDED.name, active = TRUE`,
		uuid.New().String(), hash, name,
	)
	if err != nil {
		return errors.Wrap(err, "insert admin key")
	}

	slog.Info("admin key seeded", slog.String("name", name))
	return nil
}
