package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	AI            AIConfig            `mapstructure:"ai"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Remote        RemoteConfig        `mapstructure:"remote"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Sessions      SessionConfig       `mapstructure:"sessions"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AIConfig configures the Gemini client and the extraction worker pool.
type AIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	APIVersion        string        `mapstructure:"api_version"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	MaxWorkers        int           `mapstructure:"max_workers"`
	JobQueueSize      int           `mapstructure:"job_queue_size"`
}

// StorageConfig selects the persistence port behind the local cache store.
type StorageConfig struct {
	Mode      string        `mapstructure:"mode"`   // local | remote
	Driver    string        `mapstructure:"driver"` // memory | gorm | redis
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type RemoteConfig struct {
	Driver          string        `mapstructure:"driver"` // firestore | gorm
	ProjectID       string        `mapstructure:"project_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type IdentityConfig struct {
	GoogleClientID     string   `mapstructure:"google_client_id"`
	GoogleClientSecret string   `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string   `mapstructure:"google_redirect_url"`
	FirebaseEnabled    bool     `mapstructure:"firebase_enabled"`
	AdminEmails        []string `mapstructure:"admin_emails"`
}

type SessionConfig struct {
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	ReapSpec  string        `mapstructure:"reap_spec"`
	MaxActive int           `mapstructure:"max_active"`
}

type RateLimitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Rate    string `mapstructure:"rate"` // ulule formatted rate, e.g. "60-M"
}

type AssistantConfig struct {
	TaxTablesPath string `mapstructure:"tax_tables_path"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills zero values with the settings the service expects to run with.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 20 << 20
	}
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "pgx"
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = 15 * time.Minute
	}
	if c.Security.RefreshTokenDuration == 0 {
		c.Security.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://generativelanguage.googleapis.com/"
	}
	if c.AI.APIVersion == "" {
		c.AI.APIVersion = "v1beta"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 90 * time.Second
	}
	if c.Storage.Mode == "" {
		c.Storage.Mode = "local"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "gorm"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "payslip_"
	}
	if c.Remote.Driver == "" {
		c.Remote.Driver = "gorm"
	}
	if c.Remote.WriteTimeout == 0 {
		c.Remote.WriteTimeout = 10 * time.Second
	}
	if c.Sessions.IdleTTL == 0 {
		c.Sessions.IdleTTL = 2 * time.Hour
	}
	if c.Sessions.ReapSpec == "" {
		c.Sessions.ReapSpec = "0 */5 * * * *"
	}
	if c.RateLimit.Rate == "" {
		c.RateLimit.Rate = "120-M"
	}
}

// ----------------- ENV -----------------

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("PORT", 8080),
			BaseURL:        getEnv("BASE_URL", ""),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
			ReadTimeout:    getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:    getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "pgx"),
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
			BCryptCost:         getEnvAsInt("BCRYPT_COST", 12),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		AI: AIConfig{
			APIKey:            getEnv("GEMINI_API_KEY", ""),
			Model:             getEnv("GEMINI_MODEL", ""),
			RequestsPerMinute: getEnvAsInt("GEMINI_RPM", 60),
			Burst:             getEnvAsInt("GEMINI_BURST", 5),
			MaxWorkers:        getEnvAsInt("EXTRACTION_WORKERS", 4),
			JobQueueSize:      getEnvAsInt("EXTRACTION_QUEUE", 32),
		},
		Storage: StorageConfig{
			Mode:      getEnv("STORAGE_MODE", "local"),
			Driver:    getEnv("STORAGE_DRIVER", "gorm"),
			KeyPrefix: getEnv("STORAGE_KEY_PREFIX", "payslip_"),
		},
		Remote: RemoteConfig{
			Driver:          getEnv("REMOTE_DRIVER", "gorm"),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Identity: IdentityConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
			FirebaseEnabled:    getEnv("FIREBASE_ENABLED", "false") == "true",
			AdminEmails:        splitList(getEnv("ADMIN_EMAILS", "")),
		},
		Sessions: SessionConfig{
			IdleTTL:  getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
			ReapSpec: getEnv("SESSION_REAP_SPEC", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			Rate:    getEnv("RATE_LIMIT", "120-M"),
		},
		Assistant: AssistantConfig{
			TaxTablesPath: getEnv("TAX_TABLES_PATH", ""),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.AI.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("ai config: %v", err))
	}

	if err := c.Storage.Validate(c.Redis); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if c.Storage.Mode == "remote" {
		if err := c.Remote.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("remote config: %v", err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins lists the configured CORS origins. Empty means any.
func (c *ServerConfig) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access_token_secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh_token_secret must be at least 32 characters")
	}
	if c.AccessTokenDuration > time.Hour {
		return errors.New("access_token_duration must not exceed 1h")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *AIConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	return nil
}

func (c *StorageConfig) Validate(redis RedisConfig) error {
	switch c.Mode {
	case "local", "remote":
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.Driver {
	case "memory", "gorm":
	case "redis":
		if redis.Addr == "" {
			return errors.New("redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

func (c *RemoteConfig) Validate() error {
	switch c.Driver {
	case "gorm":
	case "firestore":
		if c.ProjectID == "" && c.CredentialsFile == "" {
			return errors.New("project_id or credentials_file is required for firestore")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

// IsAdminEmail reports whether email is listed as an administrator.
func (c *IdentityConfig) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}
