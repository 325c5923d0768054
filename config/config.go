package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	ReportingCurrency string `env:"REPORTING_CURRENCY" envDefault:"INR"`
	Postgres          Postgres
	Redis             Redis
	API               API
	Rates             Rates
	Cache             Cache
	Ingest            Ingest
	Jobs              Jobs
	GoogleDrive       GoogleDrive
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	YahooApi YahooApi
}

type YahooApi struct {
	Url string `env:"YAHOO_API_URL" envDefault:"https://query2.finance.yahoo.com"`
}

type Rates struct {
	ForeignCurrency string        `env:"RATES_FOREIGN_CURRENCY" envDefault:"USD"`
	CacheTTL        time.Duration `env:"RATES_CACHE_TTL" envDefault:"5m"`
	FallbackRate    float64       `env:"RATES_FALLBACK_RATE" envDefault:"83.0"`
}

type Cache struct {
	OverviewExpiration time.Duration `env:"CACHE_OVERVIEW_EXPIRATION" envDefault:"10m"`
}

type Ingest struct {
	InboxDir string `env:"INGEST_INBOX_DIR" envDefault:"inbox"`
}

type Jobs struct {
	InboxScanInterval   time.Duration `env:"INBOX_SCAN_JOB_INTERVAL" envDefault:"30s"`
	ReportExportCrontab string        `env:"REPORT_EXPORT_CRONTAB" envDefault:"0 7 1 * *"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:"credentials.json"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"2160h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
