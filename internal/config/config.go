package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	CookieDomain        string // COOKIE_DOMAIN, e.g. ".example.com"; production only
	HealthAdminKey      string
	StripeWebhookSecret string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for split notification emails (Brevo)
	MailFrom            string
	AppBaseURL          string // used to build deal links in emails
	SaleActivityType    string // activity type that anchors a deal's owner record
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SALE_ACTIVITY_TYPE", "sale")

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = viper.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		CookieDomain:        viper.GetString("COOKIE_DOMAIN"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		StripeWebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		AppBaseURL:          appBaseURL(viper.GetString("APP_BASE_URL")),
		SaleActivityType:    strings.TrimSpace(viper.GetString("SALE_ACTIVITY_TYPE")),
	}, nil
}

// IsProduction reports whether the app runs with production cookies and logging.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func appBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "http://localhost:5173"
	}
	return strings.TrimRight(s, "/")
}
