// Package main is the API server entry point: it loads configuration, opens
// the datastores, applies migrations, and serves the billing module.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/careerforge/backend/core"
	billingmodule "github.com/careerforge/backend/modules/billing"
	"github.com/careerforge/backend/pkg/auth"
	"github.com/careerforge/backend/pkg/billing"
	"github.com/careerforge/backend/pkg/config"
	"github.com/careerforge/backend/pkg/gate"
	"github.com/careerforge/backend/pkg/httpserver"
	"github.com/careerforge/backend/pkg/logger"
	"github.com/careerforge/backend/pkg/pg"
	"github.com/careerforge/backend/pkg/plan"
	"github.com/careerforge/backend/pkg/reconcile"
	"github.com/careerforge/backend/pkg/redis"
	"github.com/careerforge/backend/pkg/subscription"
	"github.com/careerforge/backend/pkg/usage"
	"github.com/careerforge/backend/pkg/wallet"
)

type appConfig struct {
	Logger  logger.Config
	PG      pg.Config
	Redis   redis.Config
	HTTP    httpserver.Config
	Auth    auth.Config
	Stripe  billing.StripeConfig
	Billing billingmodule.Config
	Usage   usage.Config
	Plans   planConfig
}

// planConfig maps provider price IDs to tiers. The quota catalog itself is
// static; only the price identifiers differ between environments.
type planConfig struct {
	BasicPriceID string `env:"STRIPE_PRICE_BASIC,required"`
	ProPriceID   string `env:"STRIPE_PRICE_PRO,required"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(cfg.Logger, os.Stdout)
	logger.SetAsDefault(log)

	ctx := context.Background()

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		log.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		log.Error("applying migrations", "error", err)
		os.Exit(1)
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	authSvc, err := auth.NewService(cfg.Auth)
	if err != nil {
		log.Error("initializing auth", "error", err)
		os.Exit(1)
	}

	provider, err := billing.NewStripeProvider(cfg.Stripe)
	if err != nil {
		log.Error("initializing payment provider", "error", err)
		os.Exit(1)
	}

	catalog, err := plan.NewCatalog(plan.DefaultLimits(), map[string]plan.Tier{
		cfg.Plans.BasicPriceID: plan.TierBasic,
		cfg.Plans.ProPriceID:   plan.TierPro,
	})
	if err != nil {
		log.Error("building plan catalog", "error", err)
		os.Exit(1)
	}

	subs := subscription.NewPostgresStore(pool)
	ledger, err := usage.New(cfg.Usage, pool)
	if err != nil {
		log.Error("building usage ledger", "error", err)
		os.Exit(1)
	}
	wallets := wallet.NewPostgresLinkedWallets(pool)
	events := reconcile.NewCachedEventLog(reconcile.NewPostgresEventLog(pool), rdb, 48*time.Hour)

	reconciler := reconcile.NewReconciler(provider, subs, events, wallets, catalog, log)
	featureGate := gate.NewFeatureGate(subs, ledger, catalog, log)

	module := billingmodule.NewService(cfg.Billing, reconciler, featureGate, auth.Middleware(authSvc))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/health", healthHandler(pg.Healthcheck(pool), redis.Healthcheck(rdb)))
	r.Mount("/", module.Handle())

	srv := httpserver.New(cfg.HTTP, log)
	if err := srv.Run(ctx, r); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func healthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				core.JSONError(w, r, core.ErrServiceUnavailable)
				return
			}
		}
		core.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
