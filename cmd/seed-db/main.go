package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"reflect"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/outlet-rewards/internal/domain/product"
	"github.com/xenking/outlet-rewards/internal/domain/voucher"
	"github.com/xenking/outlet-rewards/internal/storage/postgres"
	"github.com/xenking/outlet-rewards/internal/voucherdoc"
)

type seedFile struct {
	Outlets []seedOutlet `json:"outlets" validate:"dive"`
	// Vouchers use the voucherdoc format.
	Vouchers []json.RawMessage `json:"vouchers"`
	Wallets  []seedWallet      `json:"wallets" validate:"dive"`
}

type seedOutlet struct {
	ID       string        `json:"id" validate:"required"`
	Name     string        `json:"name" validate:"required"`
	Products []seedProduct `json:"products" validate:"unique=ID,dive"`
}

type seedProduct struct {
	ID            string          `json:"id" validate:"required"`
	Name          string          `json:"name" validate:"required"`
	Price         decimal.Decimal `json:"price" validate:"nonnegative"`
	CategoryID    string          `json:"categoryId"`
	SubcategoryID string          `json:"subcategoryId"`
}

type seedWallet struct {
	UserID  string          `json:"userId" validate:"required"`
	Balance decimal.Decimal `json:"balance" validate:"nonnegative"`
}

// newValidator knows decimals, which the built-in numeric tags do not.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("nonnegative", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/seed.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	seed, err := readSeed(seedPath)
	if err != nil {
		return err
	}
	defs, err := parseVouchers(seed.Vouchers)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, postgres.NewProductRepository(pool), seed); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedVouchers(ctx, postgres.NewVoucherRepository(pool), defs); err != nil {
		return errors.Wrap(err, "seed vouchers")
	}
	if err := seedWallets(ctx, postgres.NewWalletLedger(pool), seed); err != nil {
		return errors.Wrap(err, "seed wallets")
	}

	return nil
}

func readSeed(path string) (*seedFile, error) {
	slog.Info("reading seed file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}
	if err := newValidator().Struct(&seed); err != nil {
		return nil, errors.Wrap(err, "validate seed")
	}
	return &seed, nil
}

// parseVouchers decodes and validates every voucher before anything is
// written, so a bad file leaves the database untouched.
func parseVouchers(raw []json.RawMessage) ([]voucher.Definition, error) {
	defs := make([]voucher.Definition, 0, len(raw))
	for i, doc := range raw {
		def, err := voucherdoc.DecodeBytes(doc)
		if err != nil {
			return nil, errors.Wrapf(err, "voucher #%d", i)
		}
		if err := voucher.ValidateForAuthoring(def.Rule); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func seedCatalog(ctx context.Context, repo *postgres.ProductRepository, seed *seedFile) error {
	for _, o := range seed.Outlets {
		if err := repo.UpsertOutlet(ctx, o.ID, o.Name); err != nil {
			return errors.Wrapf(err, "upsert outlet %s", o.ID)
		}
		for _, p := range o.Products {
			if err := repo.Upsert(ctx, product.Product{
				ID:            p.ID,
				OutletID:      o.ID,
				Name:          p.Name,
				Price:         p.Price,
				CategoryID:    p.CategoryID,
				SubcategoryID: p.SubcategoryID,
			}); err != nil {
				return errors.Wrapf(err, "upsert product %s/%s", o.ID, p.ID)
			}
		}

		slog.Info("upserted outlet", slog.String("id", o.ID), slog.Int("products", len(o.Products)))
	}
	return nil
}

func seedVouchers(ctx context.Context, w voucher.Writer, defs []voucher.Definition) error {
	for _, def := range defs {
		if err := w.Upsert(ctx, def); err != nil {
			return errors.Wrapf(err, "upsert voucher %s", def.Rule.Code)
		}

		slog.Info("upserted voucher", slog.String("code", def.Rule.Code), slog.String("kind", string(def.Rule.Discount.Kind())))
	}
	return nil
}

func seedWallets(ctx context.Context, ledger *postgres.WalletLedger, seed *seedFile) error {
	for _, w := range seed.Wallets {
		if err := ledger.SetBalance(ctx, w.UserID, w.Balance); err != nil {
			return errors.Wrapf(err, "set balance of %s", w.UserID)
		}

		slog.Info("set wallet balance", slog.String("user_id", w.UserID), slog.String("balance", w.Balance.StringFixed(2)))
	}
	return nil
}
