package conf

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// DefaultChallengeStatement is the statement offered to wallets when none is
// configured.
const DefaultChallengeStatement = "Clicking Sign or Approve only means you have proved this wallet is owned by you. This request will not trigger any blockchain transaction or cost any gas fee."

// Nonce store backends.
const (
	NonceStoreNone     = "none"
	NonceStoreMemory   = "memory"
	NonceStoreRedis    = "redis"
	NonceStorePostgres = "postgres"
)

// DBConfiguration holds all the database related configuration.
type DBConfiguration struct {
	Driver string `json:"driver" default:"postgres"`
	URL    string `json:"url" envconfig:"DATABASE_URL"`
	// MaxPoolSize defaults to 0 (unlimited).
	MaxPoolSize       int           `json:"max_pool_size" split_words:"true"`
	MaxIdlePoolSize   int           `json:"max_idle_pool_size" split_words:"true"`
	ConnMaxLifetime   time.Duration `json:"conn_max_lifetime,omitempty" split_words:"true"`
	ConnMaxIdleTime   time.Duration `json:"conn_max_idle_time,omitempty" split_words:"true"`
	HealthCheckPeriod time.Duration `json:"health_check_period" split_words:"true"`
	CleanupEnabled    bool          `json:"cleanup_enabled" split_words:"true" default:"false"`
}

func (c *DBConfiguration) Validate() error {
	if c.URL == "" {
		return nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("conf: db url is invalid: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("conf: db url must use the postgres scheme, got %q", u.Scheme)
	}
	return nil
}

// RedisConfiguration configures the redis nonce store.
type RedisConfiguration struct {
	URL         string        `json:"url"`
	PoolSize    int           `json:"pool_size" split_words:"true"`
	DialTimeout time.Duration `json:"dial_timeout" split_words:"true" default:"5s"`
	KeyPrefix   string        `json:"key_prefix" split_words:"true" default:"siws:nonce:"`
}

func (c *RedisConfiguration) Validate() error {
	if c.URL == "" {
		return nil
	}
	if _, err := c.Options(); err != nil {
		return fmt.Errorf("conf: redis url is invalid: %w", err)
	}
	return nil
}

// Options turns the configuration into go-redis client options.
func (c *RedisConfiguration) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, err
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	return opts, nil
}

type APIConfiguration struct {
	Host               string
	Port               string `envconfig:"PORT" default:"8081"`
	Endpoint           string
	RequestIDHeader    string        `envconfig:"REQUEST_ID_HEADER"`
	ExternalURL        string        `json:"external_url" envconfig:"API_EXTERNAL_URL"`
	MaxRequestDuration time.Duration `json:"max_request_duration" split_words:"true" default:"10s"`
}

func (a *APIConfiguration) Validate() error {
	if a.ExternalURL == "" {
		return nil
	}

	_, err := url.ParseRequestURI(a.ExternalURL)
	if err != nil {
		return err
	}

	return nil
}

// ChallengeConfiguration describes the challenge handed out by GET /siws and
// the checks applied to messages posted back.
type ChallengeConfiguration struct {
	Statement string   `json:"statement"`
	Version   string   `json:"version" default:"1"`
	ChainID   string   `json:"chain_id" split_words:"true" default:"mainnet"`
	Resources []string `json:"resources" default:"https://solana-phantom.ratersapp.com,https://phantom.app/"`

	// Domain, when set, must equal the domain of every verified message.
	Domain string `json:"domain"`

	// RequireCanonical rejects messages that do not follow the sign-in
	// grammar, even when the signature over them is valid.
	RequireCanonical bool `json:"require_canonical" split_words:"true" default:"true"`

	NonceTTL time.Duration `json:"nonce_ttl" envconfig:"NONCE_TTL" default:"10m"`

	// MaximumValidityDuration bounds how old Issued At may be. Zero disables
	// the check.
	MaximumValidityDuration time.Duration `json:"maximum_validity_duration" split_words:"true"`
}

func (c *ChallengeConfiguration) Validate() error {
	if c.Version == "" {
		return errors.New("conf: SIWS_CHALLENGE_VERSION must not be empty")
	}
	if c.NonceTTL <= 0 {
		return errors.New("conf: SIWS_CHALLENGE_NONCE_TTL must be positive")
	}
	if c.MaximumValidityDuration < 0 {
		return errors.New("conf: SIWS_CHALLENGE_MAXIMUM_VALIDITY_DURATION must not be negative")
	}
	return nil
}

// NonceConfiguration selects where issued nonces are remembered.
type NonceConfiguration struct {
	Store string `json:"store" default:"none"`
}

func (c *NonceConfiguration) Validate() error {
	switch c.Store {
	case NonceStoreNone, NonceStoreMemory, NonceStoreRedis, NonceStorePostgres:
		return nil
	default:
		return fmt.Errorf("conf: unknown nonce store %q", c.Store)
	}
}

// Enabled reports whether nonces are tracked at all.
func (c *NonceConfiguration) Enabled() bool {
	return c.Store != "" && c.Store != NonceStoreNone
}

type CORSConfiguration struct {
	AllowedHeaders []string `json:"allowed_headers" split_words:"true"`
}

func (c *CORSConfiguration) AllAllowedHeaders(defaults []string) []string {
	set := make(map[string]bool)
	for _, header := range defaults {
		set[header] = true
	}

	var result []string
	result = append(result, defaults...)

	for _, header := range c.AllowedHeaders {
		if !set[header] {
			result = append(result, header)
		}

		set[header] = true
	}

	return result
}

// GlobalConfiguration holds all the configuration that applies to all instances.
type GlobalConfiguration struct {
	API      APIConfiguration
	DB       DBConfiguration
	Redis    RedisConfiguration
	Logging  LoggingConfig  `envconfig:"LOG"`
	Profiler ProfilerConfig `envconfig:"PROFILER"`
	Tracing  TracingConfig
	Metrics  MetricsConfig

	Challenge ChallengeConfiguration `json:"challenge"`
	Nonce     NonceConfiguration     `json:"nonce"`
	CORS      CORSConfiguration      `json:"cors"`

	RateLimitHeader    string `split_words:"true"`
	RateLimitChallenge Rate   `split_words:"true" default:"300/5m"`
	RateLimitVerify    Rate   `split_words:"true" default:"150/5m"`

	// RateLimitNonceIssue caps challenges issued by this process across all
	// clients. Unset means no cap.
	RateLimitNonceIssue Rate `split_words:"true"`
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// handle if .env file does not exist, this is OK
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

// LoadFile only loads the environment file, without processing it.
func LoadFile(filename string) error {
	return loadEnvironment(filename)
}

// LoadDirectory loads every *.env file in dir, in lexical order, so that
// later files override earlier ones.
func LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".env" {
			continue
		}
		filenames = append(filenames, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(filenames)

	if len(filenames) == 0 {
		return nil
	}
	return godotenv.Overload(filenames...)
}

func LoadGlobal(filename string) (*GlobalConfiguration, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, err
	}

	return LoadGlobalFromEnv()
}

// LoadGlobalFromEnv builds the configuration from the process environment
// alone.
func LoadGlobalFromEnv() (*GlobalConfiguration, error) {
	config := new(GlobalConfiguration)
	if err := envconfig.Process("siws", config); err != nil {
		return nil, err
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyDefaults sets defaults for a GlobalConfiguration
func (config *GlobalConfiguration) ApplyDefaults() error {
	if config.Challenge.Statement == "" {
		config.Challenge.Statement = DefaultChallengeStatement
	}

	if config.Nonce.Store == "" {
		config.Nonce.Store = NonceStoreNone
	}

	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = "siws"
	}

	if config.RateLimitChallenge.Events == 0 && config.RateLimitChallenge.OverTime == 0 {
		config.RateLimitChallenge = Rate{Events: 300, OverTime: 5 * time.Minute}
	}

	if config.RateLimitVerify.Events == 0 && config.RateLimitVerify.OverTime == 0 {
		config.RateLimitVerify = Rate{Events: 150, OverTime: 5 * time.Minute}
	}

	return nil
}

// Validate validates all of configuration.
func (c *GlobalConfiguration) Validate() error {
	validatables := []interface {
		Validate() error
	}{
		&c.API,
		&c.DB,
		&c.Redis,
		&c.Logging,
		&c.Tracing,
		&c.Metrics,
		&c.Profiler,
		&c.Challenge,
		&c.Nonce,
	}

	for _, validatable := range validatables {
		if err := validatable.Validate(); err != nil {
			return err
		}
	}

	switch c.Nonce.Store {
	case NonceStorePostgres:
		if c.DB.URL == "" {
			return errors.New("conf: SIWS_DB_DATABASE_URL is required for the postgres nonce store")
		}
	case NonceStoreRedis:
		if c.Redis.URL == "" {
			return errors.New("conf: SIWS_REDIS_URL is required for the redis nonce store")
		}
	}

	return nil
}
