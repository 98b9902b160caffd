package router

import (
	"net/http"

	activitysvc "dealsplit-backend/internal/application/activities"
	authsvc "dealsplit-backend/internal/application/auth"
	dealsvc "dealsplit-backend/internal/application/deals"
	emailsvc "dealsplit-backend/internal/application/emails"
	splitsvc "dealsplit-backend/internal/application/splits"
	"dealsplit-backend/internal/config"
	"dealsplit-backend/internal/constants"
	"dealsplit-backend/internal/infrastructure/database"
	activityhandler "dealsplit-backend/internal/interfaces/handlers/activities"
	authhandler "dealsplit-backend/internal/interfaces/handlers/auth"
	dealhandler "dealsplit-backend/internal/interfaces/handlers/deals"
	healthhandler "dealsplit-backend/internal/interfaces/handlers/health"
	payhandler "dealsplit-backend/internal/interfaces/handlers/payments"
	splithandler "dealsplit-backend/internal/interfaces/handlers/splits"
	"dealsplit-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const stripeHealthURL = "https://api.stripe.com/healthcheck"

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp wires config, storage, middleware and routes. db is nil when no
// database URL is configured; only auth and health routes are mounted then.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	var splits *splitsvc.Service
	var sales *activitysvc.Service
	if db != nil {
		var notifier emailsvc.Sender
		if cfg.SendinblueAPIKey != "" {
			notifier = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
		} else {
			log.Warn().Msg("SENDINBLUE_API_KEY not set, split notifications disabled")
		}
		splits = &splitsvc.Service{
			DB:         db,
			Ledger:     &splitsvc.LedgerSync{SaleType: cfg.SaleActivityType},
			Notifier:   notifier,
			AppBaseURL: cfg.AppBaseURL,
		}
		sales = &activitysvc.Service{DB: db, SaleType: cfg.SaleActivityType}
	}

	// Mounted before the session so the raw body reaches signature verification.
	stripeWebhook := &payhandler.WebhookHandler{DB: db, WebhookSecret: cfg.StripeWebhookSecret, Sales: sales}
	if splits != nil {
		stripeWebhook.Ledger = splits
	}
	app.Post("/api/v1/stripe/webhook", stripeWebhook.HandleWebhook)

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
		CookieDomain:      cfg.CookieDomain,
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	externals := map[string]string{"stripe": stripeHealthURL}
	if cfg.IsProduction() && cfg.AppBaseURL != "" {
		externals["frontend"] = cfg.AppBaseURL
	}
	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
		Externals:      externals,
	}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)
	authGroup.Delete("/sessions", middleware.RequireAuth(), ah.LogoutAll)

	if db == nil {
		log.Warn().Msg("database URL not set, deal and split routes disabled")
		return app, db, rdb, nil
	}

	deals := &dealsvc.Service{DB: db}

	dh := &dealhandler.Handlers{Service: deals}
	sh := &splithandler.Handlers{Service: splits, Deals: deals, DB: db}
	dg := app.Group("/api/v1/deals", middleware.RequireAuth())
	dg.Get("/", middleware.AuthorizePermission(constants.ViewDeals), dh.List)
	dg.Post("/", middleware.AuthorizePermission(constants.ManageDeals), dh.Create)
	dg.Get("/:deal_id", middleware.AuthorizePermission(constants.ViewDeals), dh.Get)
	dg.Get("/:deal_id/split-totals", middleware.AuthorizePermission(constants.ViewDeals), sh.Totals)
	dg.Post("/:deal_id/resync-ledger", middleware.AuthorizePermission(constants.ResyncLedger), sh.ResyncLedger)

	sg := app.Group("/api/v1/splits", middleware.RequireAuth())
	sg.Get("/", middleware.AuthorizePermission(constants.ViewDeals), sh.List)
	sg.Post("/", middleware.AuthorizePermission(constants.ManageSplits), sh.Create)
	sg.Patch("/:split_id", middleware.AuthorizePermission(constants.ManageSplits), sh.Update)
	sg.Delete("/:split_id", middleware.AuthorizePermission(constants.ManageSplits), sh.Delete)

	acth := &activityhandler.Handlers{Service: sales}
	ag := app.Group("/api/v1/activities", middleware.RequireAuth())
	ag.Get("/", middleware.AuthorizePermission(constants.ViewDeals), acth.List)

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
