package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	CookieFile            string `env:"COOKIE_FILE,default=cookie.txt"`
	EmailsFile            string `env:"EMAILS_FILE,default=emails.txt"`
	BaseURL               string `env:"HME_BASE_URL,default=https://p68-maildomainws.icloud.com/v1/hme"`
	ClientBuildNumber     string `env:"HME_CLIENT_BUILD_NUMBER,default=2413Project28"`
	ClientMasteringNumber string `env:"HME_CLIENT_MASTERING_NUMBER,default=2413B20"`
	ClientID              string `env:"HME_CLIENT_ID"`
	DSID                  string `env:"HME_DSID"`
	Account               string `env:"HME_ACCOUNT,default=default"`
	Label                 string `env:"HME_LABEL,default=hme-generator"`
	Note                  string `env:"HME_NOTE,default=Generated through hme-generator"`
	MaxConcurrentTasks    int    `env:"MAX_CONCURRENT_TASKS,default=10"`
	RateLimitBatchSize    int    `env:"RATE_LIMIT_BATCH_SIZE,default=5"`
	RateLimitWaitSeconds  int    `env:"RATE_LIMIT_WAIT_SECONDS,default=2700"`
	CooldownRefreshMillis int    `env:"COOLDOWN_REFRESH_MILLIS,default=1000"`
	HTTPTimeoutSeconds    int    `env:"HTTP_TIMEOUT_SECONDS,default=10"`
	LogLevel              string `env:"LOG_LEVEL,default=warn"`
	LogFile               string `env:"LOG_FILE"`
	RedisURL              string `env:"REDIS_URL"`
	DatabaseDSN           string `env:"DATABASE_DSN"`
	RabbitMQURL           string `env:"RABBITMQ_URL"`
	MetricsAddr           string `env:"METRICS_ADDR"`
}

// Load reads the optional dotenv files (missing files are skipped) and then
// unmarshals the process environment. Variables already set in the
// environment win over dotenv values.
func Load(dotenvFiles ...string) (*Config, error) {
	for _, path := range dotenvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_TASKS must be positive (got %d)", c.MaxConcurrentTasks)
	}
	if c.RateLimitBatchSize <= 0 {
		return fmt.Errorf("RATE_LIMIT_BATCH_SIZE must be positive (got %d)", c.RateLimitBatchSize)
	}
	if c.RateLimitWaitSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WAIT_SECONDS must be positive (got %d)", c.RateLimitWaitSeconds)
	}
	if strings.TrimSpace(c.EmailsFile) == "" {
		return fmt.Errorf("EMAILS_FILE is required")
	}
	return nil
}

func (c *Config) RateLimitWait() time.Duration {
	return time.Duration(c.RateLimitWaitSeconds) * time.Second
}

func (c *Config) CooldownRefresh() time.Duration {
	if c.CooldownRefreshMillis <= 0 {
		return time.Second
	}
	return time.Duration(c.CooldownRefreshMillis) * time.Millisecond
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}
