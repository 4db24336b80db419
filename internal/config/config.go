package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values come from env (optionally pre-loaded from a dotenv file).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Incoming  IncomingConfig
	LDAP      LDAPConfig
	Directory DirectoryConfig
	Lists     ListConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string

	MaxConns int
}

// RedisConfig is optional. Without a host, live events fan out in-process only.
type RedisConfig struct {
	Host    string
	Port    int
	Channel string
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// IncomingConfig holds the static Basic credentials the PBX uses to post
// incoming calls.
type IncomingConfig struct {
	Username string
	Password string
}

// LDAPConfig is optional. Without a URL, directory sync is disabled.
type LDAPConfig struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
	PoolSize     int
}

type DirectoryConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type ListConfig struct {
	PageSize   int
	LiveBuffer int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = requiredInt(parseErrs, "APP_PORT")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = requiredInt(parseErrs, "DB_PORT")
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.MaxConns, parseErrs = optionalInt(parseErrs, "DB_MAX_CONNS")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT")
	c.Redis.Channel = strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL, parseErrs = optionalDuration(parseErrs, "JWT_ACCESS_TTL")

	c.Incoming.Username = os.Getenv("INCOMING_CALL_USERNAME")
	c.Incoming.Password = os.Getenv("INCOMING_CALL_PASSWORD")

	c.LDAP.URL = strings.TrimSpace(os.Getenv("LDAP_URL"))
	c.LDAP.BindDN = strings.TrimSpace(os.Getenv("LDAP_BIND_DN"))
	c.LDAP.BindPassword = os.Getenv("LDAP_BIND_PASSWORD")
	c.LDAP.BaseDN = strings.TrimSpace(os.Getenv("LDAP_BASE_DN"))
	c.LDAP.PoolSize, parseErrs = optionalInt(parseErrs, "LDAP_POOL_SIZE")

	c.Directory.Workers, parseErrs = optionalInt(parseErrs, "DIRECTORY_SYNC_WORKERS")
	c.Directory.QueueSize, parseErrs = optionalInt(parseErrs, "DIRECTORY_SYNC_QUEUE")
	c.Directory.Timeout, parseErrs = optionalDuration(parseErrs, "DIRECTORY_SYNC_TIMEOUT")

	c.Lists.PageSize, parseErrs = optionalInt(parseErrs, "PAGE_SIZE")
	c.Lists.LiveBuffer, parseErrs = optionalInt(parseErrs, "LIVE_BUFFER")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if !validPort(c.App.Port) {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if !validPort(c.DB.Port) {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.DB.MaxConns <= 0 {
		c.DB.MaxConns = 10
	}

	if c.Redis.Host != "" {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if !validPort(c.Redis.Port) {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "phonebook:phone_calls"
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Incoming.Username == "" || c.Incoming.Password == "" {
		errs = append(errs, errors.New("INCOMING_CALL_USERNAME and INCOMING_CALL_PASSWORD are required"))
	}

	if c.LDAPEnabled() {
		if c.LDAP.BaseDN == "" {
			errs = append(errs, errors.New("LDAP_BASE_DN is required when LDAP_URL is set"))
		}
		if c.LDAP.BindDN == "" {
			errs = append(errs, errors.New("LDAP_BIND_DN is required when LDAP_URL is set"))
		}
	}
	if c.LDAP.PoolSize <= 0 {
		c.LDAP.PoolSize = 4
	}

	if c.Directory.Workers <= 0 {
		c.Directory.Workers = 2
	}
	if c.Directory.QueueSize <= 0 {
		c.Directory.QueueSize = 256
	}
	if c.Directory.Timeout <= 0 {
		c.Directory.Timeout = 10 * time.Second
	}

	if c.Lists.PageSize <= 0 {
		c.Lists.PageSize = 10
	}
	if c.Lists.PageSize > 100 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be at most 100, got %d", c.Lists.PageSize))
	}
	if c.Lists.LiveBuffer <= 0 {
		c.Lists.LiveBuffer = 16
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) LDAPEnabled() bool {
	return c.LDAP.URL != ""
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func requiredInt(errs []error, key string) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, append(errs, fmt.Errorf("%s is required", key))
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalInt(errs []error, key string) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalDuration(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
