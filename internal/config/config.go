package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	App      AppConfig
	Telegram TelegramConfig
	Server   ServerConfig
	Cache    CacheConfig
	Ledger   LedgerConfig
	Catalog  CatalogConfig
	Spin     SpinConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"roulette-bot"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// TelegramConfig holds bot transport settings.
type TelegramConfig struct {
	Token         string `envconfig:"TELEGRAM_BOT_TOKEN"`
	Mode          string `envconfig:"TELEGRAM_MODE" default:"polling"` // polling or webhook
	WebhookURL    string `envconfig:"TELEGRAM_WEBHOOK_URL" default:""`
	WebhookSecret string `envconfig:"TELEGRAM_WEBHOOK_SECRET" default:""`
	PollTimeout   int    `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"60"` // seconds
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AdminKey        string        `envconfig:"ADMIN_KEY" default:""`
}

// CacheConfig holds inventory listing cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory, redis or none
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"roulette:inventory"`
}

// LedgerConfig holds inventory ledger settings.
type LedgerConfig struct {
	Type         string        `envconfig:"LEDGER_DB_TYPE" default:"sqlite"` // sqlite, postgres or mysql
	Path         string        `envconfig:"LEDGER_DB_PATH" default:"./data/inventory.db"`
	WriteTimeout time.Duration `envconfig:"LEDGER_WRITE_TIMEOUT" default:"30s"`
	BusyTimeout  time.Duration `envconfig:"LEDGER_BUSY_TIMEOUT" default:"30s"`
	// Periodic aggregate/log audit, 0 disables
	AuditInterval time.Duration `envconfig:"LEDGER_AUDIT_INTERVAL" default:"0"`
	AuditRepair   bool          `envconfig:"LEDGER_AUDIT_REPAIR" default:"false"`
	// Server databases
	Host     string `envconfig:"LEDGER_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"LEDGER_DB_PORT" default:"0"` // 0 selects 5432 for postgres, 3306 for mysql
	Name     string `envconfig:"LEDGER_DB_NAME" default:"roulette"`
	User     string `envconfig:"LEDGER_DB_USER" default:"postgres"`
	Password string `envconfig:"LEDGER_DB_PASS" default:""`
	SSLMode  string `envconfig:"LEDGER_DB_SSLMODE" default:"disable"`
}

// CatalogConfig points at the reward table and item pictures.
type CatalogConfig struct {
	Path     string `envconfig:"CATALOG_PATH" default:"./data/items.xlsx"`
	ImageDir string `envconfig:"CATALOG_IMAGE_DIR" default:"./item"`
}

// SpinConfig holds roulette behaviour settings.
type SpinConfig struct {
	ChallengeInterval int           `envconfig:"SPIN_CHALLENGE_INTERVAL" default:"50"`
	CountChallenged   bool          `envconfig:"SPIN_COUNT_CHALLENGED" default:"false"`
	RevealDelay       time.Duration `envconfig:"SPIN_REVEAL_DELAY" default:"7s"`
	AnimationSeconds  int           `envconfig:"SPIN_ANIMATION_SECONDS" default:"7"`
	SupportContact    string        `envconfig:"SUPPORT_CONTACT" default:"@HATE_death_ME"`
	JournalPath       string        `envconfig:"JOURNAL_PATH" default:"./data/spin.xlsx"`
	JournalQueue      int           `envconfig:"JOURNAL_QUEUE" default:"1024"`
}

const (
	defaultPostgresPort = 5432
	defaultMySQLPort    = 3306
)

func (l *LedgerConfig) port(fallback int) int {
	if l.Port > 0 {
		return l.Port
	}
	return fallback
}

// PostgresDSN returns the PostgreSQL connection string.
func (l *LedgerConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		l.User, l.Password, l.Host, l.port(defaultPostgresPort), l.Name, l.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (l *LedgerConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		l.User, l.Password, l.Host, l.port(defaultMySQLPort), l.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsWebhook returns true if updates arrive through the HTTP webhook.
func (t *TelegramConfig) IsWebhook() bool {
	return t.Mode == "webhook"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Spin.ChallengeInterval <= 0 {
		return fmt.Errorf("SPIN_CHALLENGE_INTERVAL must be positive, got %d", c.Spin.ChallengeInterval)
	}
	if c.Spin.AnimationSeconds <= 0 {
		return fmt.Errorf("SPIN_ANIMATION_SECONDS must be positive, got %d", c.Spin.AnimationSeconds)
	}
	return nil
}

// ValidateTelegram checks the transport settings needed to serve.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	switch c.Telegram.Mode {
	case "polling":
	case "webhook":
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("TELEGRAM_WEBHOOK_URL is required in webhook mode")
		}
		if c.Telegram.WebhookSecret == "" {
			return fmt.Errorf("TELEGRAM_WEBHOOK_SECRET is required in webhook mode")
		}
	default:
		return fmt.Errorf("unknown TELEGRAM_MODE %q", c.Telegram.Mode)
	}
	return nil
}

// Load reads configuration from environment variables for serving the bot.
func Load() (*Config, error) {
	cfg, err := LoadForTools()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateTelegram(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadForTools reads configuration for maintenance commands that never talk
// to Telegram.
func LoadForTools() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
