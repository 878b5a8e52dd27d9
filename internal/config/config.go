// internal/config/config.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tcoin-wallet/pkg/db"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"text"`

	DB db.Config `envconfig:"DB"`

	// Ledger
	BalanceFloor int64 `envconfig:"LEDGER_BALANCE_FLOOR" default:"0"`

	// Voucher codec keys, "id:passphrase" pairs separated by commas.
	VoucherKeysRaw   string       `envconfig:"VOUCHER_KEYS" required:"true"`
	VoucherKeys      []VoucherKey `ignored:"true"`
	VoucherActiveKey uint8        `envconfig:"VOUCHER_ACTIVE_KEY" default:"1"`
	VoucherKeySalt   string       `envconfig:"VOUCHER_KEY_SALT" required:"true"`

	// Redemption guard
	RedisAddr           string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword       string        `envconfig:"REDIS_PASSWORD" default:""`
	RedeemMaxFailures   int64         `envconfig:"REDEEM_MAX_FAILURES" default:"10"`
	RedeemFailureWindow time.Duration `envconfig:"REDEEM_FAILURE_WINDOW" default:"1h"`

	// HTTP rate limiting, per client IP
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	// Spec in robfig/cron format; empty disables the job.
	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"@every 1h"`
}

// VoucherKey is one configured codec key before derivation.
type VoucherKey struct {
	ID         uint8
	Passphrase string
}

// LoadConfig loads configuration from environment variables, reading an optional .env first.
// It returns an AppConfig instance or an error if any required variable is missing or invalid.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	keys, err := parseVoucherKeys(cfg.VoucherKeysRaw)
	if err != nil {
		return nil, fmt.Errorf("VOUCHER_KEYS: %w", err)
	}
	cfg.VoucherKeys = keys

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot check on its own.
func (c *AppConfig) Validate() error {
	if c.DB.RetryAttempts < 1 {
		return fmt.Errorf("DB_RETRY_ATTEMPTS must be >= 1")
	}
	if c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must not exceed DB_MAX_OPEN_CONNS")
	}
	if len(c.VoucherKeys) == 0 {
		return fmt.Errorf("VOUCHER_KEYS must name at least one key")
	}
	active := false
	for _, k := range c.VoucherKeys {
		if k.ID == c.VoucherActiveKey {
			active = true
		}
	}
	if !active {
		return fmt.Errorf("VOUCHER_ACTIVE_KEY %d is not among VOUCHER_KEYS", c.VoucherActiveKey)
	}
	if c.RedeemMaxFailures < 1 {
		return fmt.Errorf("REDEEM_MAX_FAILURES must be >= 1")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func parseVoucherKeys(s string) ([]VoucherKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := make(map[uint8]bool)
	parts := strings.Split(s, ",")
	out := make([]VoucherKey, 0, len(parts))
	for _, p := range parts {
		id, pass, ok := strings.Cut(strings.TrimSpace(p), ":")
		if !ok || pass == "" {
			return nil, fmt.Errorf("bad key entry %q, want id:passphrase", p)
		}
		v, err := strconv.ParseUint(id, 10, 8)
		if err != nil || v > 7 {
			return nil, fmt.Errorf("bad key id %q, want 0-7", id)
		}
		if seen[uint8(v)] {
			return nil, fmt.Errorf("duplicate key id %d", v)
		}
		seen[uint8(v)] = true
		out = append(out, VoucherKey{ID: uint8(v), Passphrase: pass})
	}
	return out, nil
}
