package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"chefscan_backend/internal/controller"
	"chefscan_backend/internal/middleware"
	"chefscan_backend/internal/model"
	"chefscan_backend/pkg/archive"
	"chefscan_backend/pkg/config"
	"chefscan_backend/pkg/cron"
	"chefscan_backend/pkg/database"
	"chefscan_backend/pkg/email"
	"chefscan_backend/pkg/entitlement"
	"chefscan_backend/pkg/logging"
	"chefscan_backend/pkg/metrics"
	"chefscan_backend/pkg/payment"
	"chefscan_backend/pkg/payment/mercadopago"
	"chefscan_backend/pkg/payment/reconciler"
	"chefscan_backend/pkg/payment/stripe"
	"chefscan_backend/pkg/payment/wompi"
	"chefscan_backend/pkg/quota"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := logging.New("error", false)
		errLog.Fatal().Err(err).Msg("configuration error")
	}

	log := logging.New(cfg.Server.LogLevel, cfg.Server.LogPretty)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Migrate(db, &model.Profile{}, &model.PaymentEvent{}); err != nil {
		log.Warn().Err(err).Msg("migration warning")
	}

	store := entitlement.NewStore(db)
	ledger := entitlement.NewLedger(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	appMetrics := metrics.New(registry)

	// Scan counters live in Redis when configured so every instance sees
	// the same daily count; otherwise a per-process fallback.
	var quotaStore quota.Store
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		quotaStore = quota.NewRedisStore(redis.NewClient(redisOpts))
	} else {
		log.Warn().Msg("REDIS_URL not set, scan quotas are per-instance only")
		quotaStore = quota.NewMemoryStore()
	}
	quotaChecker := quota.New(quotaStore)

	mpProvider, err := mercadopago.New(mercadopago.Config{
		AccessToken:   cfg.MercadoPago.AccessToken,
		PriceCOPCents: cfg.Billing.PriceCOPCents,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mercadopago init failed")
	}

	providers := map[string]payment.Provider{
		stripe.Name: stripe.New(stripe.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			PriceID:       cfg.Stripe.PriceID,
		}),
		mercadopago.Name: mpProvider,
		wompi.Name: wompi.New(wompi.Config{
			PublicKey:       cfg.Wompi.PublicKey,
			PrivateKey:      cfg.Wompi.PrivateKey,
			IntegritySecret: cfg.Wompi.IntegritySecret,
			EventsSecret:    cfg.Wompi.EventsSecret,
			APIURL:          cfg.Wompi.APIURL,
			PriceCOPCents:   cfg.Billing.PriceCOPCents,
		}),
	}

	recOpts := []reconciler.Option{reconciler.WithMetrics(appMetrics)}

	var mailer *email.Service
	if cfg.Email.ResendAPIKey != "" {
		mailer, err = email.NewService(cfg.Email.ResendAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("email service init failed")
		}
		recOpts = append(recOpts, reconciler.WithMailer(mailer))
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, billing emails disabled")
	}

	if cfg.Archive.Bucket != "" {
		archiver, err := archive.New(context.Background(), archive.Config{
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("webhook archive init failed")
		}
		recOpts = append(recOpts, reconciler.WithArchiver(archiver))
	}

	rec := reconciler.New(store, ledger, log, recOpts...)

	sweepOpts := []cron.Option{}
	if mailer != nil {
		sweepOpts = append(sweepOpts, cron.WithMailer(mailer))
	}
	sweeper := cron.NewExpirySweeper(db, log, sweepOpts...)
	if _, err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("could not start expiry sweep")
	}

	checkoutController := controller.NewCheckoutController(providers, store, appMetrics, cfg.App.BaseURL, log)
	webhookController := controller.NewWebhookController(providers, rec, log)
	profileController := controller.NewProfileController(store, log)
	scanController := controller.NewScanController()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New())

	setupRoutes(app, cfg, checkoutController, webhookController, profileController, scanController, store, quotaChecker, appMetrics, registry)

	port := cfg.Server.Port
	log.Info().Str("port", port).Msg("server starting")
	if err := app.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupRoutes(
	app *fiber.App,
	cfg *config.Config,
	checkoutController *controller.CheckoutController,
	webhookController *controller.WebhookController,
	profileController *controller.ProfileController,
	scanController *controller.ScanController,
	store *entitlement.Store,
	quotaChecker *quota.Checker,
	appMetrics *metrics.Metrics,
	registry *prometheus.Registry,
) {
	api := app.Group("/api")

	// Provider webhooks. The endpoint fixes provider identity; payloads
	// never choose their own handler.
	api.Post("/webhook/stripe", webhookController.Handle("stripe"))
	api.Post("/webhook/mercadopago", webhookController.Handle("mercadopago"))
	api.Post("/webhook/wompi", webhookController.Handle("wompi"))

	// Checkout.
	subscriptions := api.Group("/subscriptions")
	subscriptions.Post("/checkout/:provider",
		middleware.AuthMiddleware(cfg.Auth.JWTSecret),
		checkoutController.CreateCheckout,
	)
	subscriptions.Get("/payment-success", checkoutController.HandlePaymentSuccess)
	subscriptions.Get("/payment-cancelled", checkoutController.HandlePaymentCancelled)

	// Profile / entitlement view.
	me := api.Group("/me", middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	me.Get("/", profileController.GetMe)
	me.Put("/", profileController.UpdateMe)

	// Scan authorization ahead of the external vision model.
	api.Post("/scans/authorize",
		middleware.AuthMiddleware(cfg.Auth.JWTSecret),
		middleware.CheckScanQuota(store, quotaChecker, appMetrics),
		scanController.AuthorizeScan,
	)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
