package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// App holds the runtime configuration loaded from an optional YAML file and environment variables.
type App struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTPPort string `yaml:"http_port" env:"HTTP_PORT" env-default:"8081"`

	DBDriver    string `yaml:"db_driver" env:"DB_DRIVER" env-default:"sqlite3"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL" env-default:"./register.db"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`

	JWTIssuer     string        `yaml:"jwt_issuer" env:"JWT_ISSUER" env-default:"tutor-register"`
	JWTSigningKey string        `yaml:"jwt_signing_key" env:"JWT_SIGNING_KEY" env-default:"dev-signing-secret-change"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"ACCESS_TTL" env-default:"12h"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"REFRESH_TTL" env-default:"720h"`
	EnrollKey     string        `yaml:"enroll_key" env:"ENROLL_KEY"`
	AdminKey      string        `yaml:"admin_key" env:"ADMIN_KEY"`

	QueueBackend    string        `yaml:"queue_backend" env:"QUEUE_BACKEND" env-default:"memory"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min" env:"RATE_LIMIT_PER_MIN" env-default:"240"`
	ScanDebounce    time.Duration `yaml:"scan_debounce" env:"SCAN_DEBOUNCE" env-default:"0s"`

	SheetPath   string `yaml:"sheet_path" env:"SHEET_PATH" env-default:"attendance_clean.csv"`
	SeedCSV     string `yaml:"seed_csv" env:"SEED_CSV"`
	FrontendDir string `yaml:"frontend_dir" env:"FRONTEND_DIR" env-default:"web"`

	ReportWebhookURL string        `yaml:"report_webhook_url" env:"REPORT_WEBHOOK_URL"`
	AutoSendAt       string        `yaml:"auto_send_at" env:"AUTO_SEND_AT"`
	AutoSendCheck    time.Duration `yaml:"auto_send_check" env:"AUTO_SEND_CHECK" env-default:"1m"`
}

// Load reads CONFIG_PATH when set and always applies environment overrides.
func Load() (App, error) {
	var cfg App
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return App{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return App{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for binaries: any error is fatal.
func MustLoad() App {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// AutoSendTime parses AutoSendAt ("HH:MM") on the given day. ok is false when auto-send is disabled.
func (a App) AutoSendTime(day time.Time) (at time.Time, ok bool, err error) {
	if a.AutoSendAt == "" {
		return time.Time{}, false, nil
	}
	hm, err := time.Parse("15:04", a.AutoSendAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid AUTO_SEND_AT %q: %w", a.AutoSendAt, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, day.Location()), true, nil
}
