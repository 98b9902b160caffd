package main

import (
	"context"
	"net/http"

	"dealsplit-backend/internal/config"
	"dealsplit-backend/internal/infrastructure/database"
	"dealsplit-backend/internal/infrastructure/logging"
	"dealsplit-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var fiberApp *fiber.App
var appCfg *config.Config
var startupDB *gorm.DB
var startupRdb *redis.Client

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	logging.Setup(cfg.LogLevel, cfg.IsProduction())
	appCfg = cfg
	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}
	fiberApp = app
	startupDB = db
	startupRdb = rdb
}

func Handler(w http.ResponseWriter, r *http.Request) {
	adaptor.FiberApp(fiberApp)(w, r)
}

func main() {
	if startupDB != nil {
		sqlDB, err := startupDB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres: get DB")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("Postgres connection failed")
		}
		log.Info().Msg("Postgres connected")
		if viper.GetBool("AUTO_MIGRATE") {
			if err := database.AutoMigrate(startupDB); err != nil {
				log.Fatal().Err(err).Msg("auto migrate failed")
			}
			log.Info().Msg("migrations applied")
		}
	}
	if startupRdb != nil {
		if err := startupRdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		log.Info().Msg("Redis connected")
	}
	log.Info().
		Str("port", appCfg.Port).
		Str("health", "http://localhost:"+appCfg.Port+"/health/json").
		Msg("server starting")

	if err := fiberApp.Listen(":" + appCfg.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
