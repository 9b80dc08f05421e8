package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Checkout      CheckoutConfig
	Bootstrap     BootstrapConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	// The sqlite flag forces the embedded driver; the DSN is then a plain
	// file path (or :memory:) rather than a postgres URL.
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DOLLMART_APP_ENV" required:"true"`
	Port         string `envconfig:"DOLLMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DOLLMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DOLLMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DOLLMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DOLLMART_DB_DSN"`
	Driver string `envconfig:"DOLLMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DOLLMART_DB_HOST"`
	LegacyPort     int    `envconfig:"DOLLMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DOLLMART_DB_USER"`
	LegacyPassword string `envconfig:"DOLLMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"DOLLMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"DOLLMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DOLLMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DOLLMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DOLLMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DOLLMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DOLLMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DOLLMART_REDIS_ADDR"`
	Password     string        `envconfig:"DOLLMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"DOLLMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DOLLMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DOLLMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DOLLMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DOLLMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DOLLMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DOLLMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DOLLMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DOLLMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DOLLMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DOLLMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DOLLMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DOLLMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DOLLMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"DOLLMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"DOLLMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"DOLLMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"DOLLMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"DOLLMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"DOLLMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	TrustProxy         bool          `envconfig:"DOLLMART_AUTH_RATE_LIMIT_TRUST_PROXY" default:"false"`
}

// CheckoutConfig tunes the money paths. The idempotency TTL covers checkout
// and delivery confirmation replays.
type CheckoutConfig struct {
	IdempotencyTTL time.Duration `envconfig:"DOLLMART_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type BootstrapConfig struct {
	ManagerEmail    string `envconfig:"DOLLMART_MANAGER_EMAIL"`
	ManagerPassword string `envconfig:"DOLLMART_MANAGER_PASSWORD"`
	ManagerName     string `envconfig:"DOLLMART_MANAGER_NAME" default:"Store Manager"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DOLLMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DOLLMART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == DBDriverSQLite {
		return fmt.Errorf("%s is required when the sqlite driver is selected", EnvDBDSN)
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
