package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fieldpay/fieldpay/internal/account"
	"github.com/fieldpay/fieldpay/internal/audit"
	"github.com/fieldpay/fieldpay/internal/authz"
	"github.com/fieldpay/fieldpay/internal/collection"
	"github.com/fieldpay/fieldpay/internal/config"
	"github.com/fieldpay/fieldpay/internal/engine"
	"github.com/fieldpay/fieldpay/internal/errs"
	"github.com/fieldpay/fieldpay/internal/expense"
	"github.com/fieldpay/fieldpay/internal/funding"
	"github.com/fieldpay/fieldpay/internal/ledger"
	"github.com/fieldpay/fieldpay/internal/middleware"
	"github.com/fieldpay/fieldpay/internal/money"
	"github.com/fieldpay/fieldpay/internal/notification"
	"github.com/fieldpay/fieldpay/internal/report"
	"github.com/fieldpay/fieldpay/internal/transfer"
	"github.com/fieldpay/fieldpay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.Dev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLog(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var (
		wallets     wallet.Store
		accounts    account.Store
		entries     ledger.Store
		expenses    expense.Store
		transfers   transfer.Store
		collections collection.Store
	)
	if d.DB != nil {
		wallets = wallet.NewPostgresStore(d.DB)
		accounts = account.NewPostgresStore(d.DB)
		entries = ledger.NewPostgresStore(d.DB)
		expenses = expense.NewPostgresStore(d.DB)
		transfers = transfer.NewPostgresStore(d.DB)
		collections = collection.NewPostgresStore(d.DB)
	} else {
		wallets = wallet.NewMemoryStore()
		accounts = account.NewMemoryStore()
		entries = ledger.NewMemoryStore()
		expenses = expense.NewMemoryStore()
		transfers = transfer.NewMemoryStore()
		collections = collection.NewMemoryStore()
	}

	ctx := context.Background()
	if d.Cfg.Dev() {
		if err := seedDisbursementAccount(ctx, accounts, d.Cfg.SeedDisbursementAccount, d.Logger); err != nil {
			return err
		}
	}

	// Core engine and cross-cutting services
	eng := engine.New(wallets, accounts, entries)
	auditor := audit.NewLoggerRecorder(d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)

	fundingSvc := funding.NewService(eng, wallets, auditor, notifier)
	// Approving your own expense stays forbidden until a role engine is
	// wired in front of the API.
	expenseSvc, err := expense.NewService(ctx, expenses, eng, accounts, authz.DenyAll{}, auditor, notifier)
	if err != nil {
		return err
	}
	transferSvc := transfer.NewService(transfers, eng, auditor, notifier)
	collectionSvc := collection.NewService(collections, accounts, eng, auditor, notifier)
	reportEngine := report.NewEngine(wallets, entries, nil)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAccountRoutes(api, account.NewHandler(accounts))
	RegisterFundingRoutes(api, funding.NewHandler(fundingSvc))
	RegisterExpenseRoutes(api, expense.NewHandler(expenseSvc))
	RegisterTransferRoutes(api, transfer.NewHandler(transferSvc))
	RegisterCollectionRoutes(api, collection.NewHandler(collectionSvc))
	RegisterReportRoutes(api, report.NewHandler(reportEngine))

	return nil
}

// seedDisbursementAccount guarantees dev environments have a disbursement
// source so expense approval works out of the box.
func seedDisbursementAccount(ctx context.Context, accounts account.Store, modeName string, logger *slog.Logger) error {
	if _, err := accounts.First(ctx); err == nil {
		return nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	now := time.Now().UTC()
	acct, err := accounts.Create(ctx, account.Account{
		ID:               uuid.NewString(),
		ModeName:         modeName,
		Instrument:       money.Cash,
		ShowInCollection: true,
		ShowInExpense:    true,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return fmt.Errorf("seed disbursement account: %w", err)
	}
	logger.Info("seeded disbursement account", "account_id", acct.ID, "mode_name", acct.ModeName)
	return nil
}
