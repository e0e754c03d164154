// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads codenest settings from defaults, a YAML file, an
// optional .env file, CODENEST_* environment variables and command-line
// flags, in that order of increasing precedence.
package config

import (
	"crypto/rand"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/codenest/codenest/internal/xdg"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CODENEST_"

// Run modes.
const (
	ModeDebug   = "debug"
	ModeRelease = "release"
	ModeTest    = "test"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// minSecretLength mirrors auth.MinSecretLength.
const minSecretLength = 32

// Config is the fully resolved service configuration.
type Config struct {
	Mode    string        `koanf:"mode"`
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	DB      DBConfig      `koanf:"db"`
	Session SessionConfig `koanf:"session"`
	Cookie  CookieConfig  `koanf:"cookie"`
	CORS    CORSConfig    `koanf:"cors"`
	Argon2  Argon2Config  `koanf:"argon2"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DBConfig selects and locates the account store.
type DBConfig struct {
	Driver string `koanf:"driver"`
	URL    string `koanf:"url"`
	Path   string `koanf:"path"`
}

// SessionConfig configures session token signing.
type SessionConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
	Issuer string        `koanf:"issuer"`
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name     string `koanf:"name"`
	Secure   bool   `koanf:"secure"`
	SameSite string `koanf:"samesite"`
	Domain   string `koanf:"domain"`
}

// CORSConfig lists the browser origins allowed to call the API with
// credentials.
type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

// Argon2Config tunes the password hasher. Zero values select defaults.
type Argon2Config struct {
	Memory  uint32 `koanf:"memory"`
	Time    uint32 `koanf:"time"`
	Threads uint8  `koanf:"threads"`
}

// Defaults returns the built-in configuration values keyed by path.
func Defaults() map[string]any {
	return map[string]any{
		"mode":            ModeDebug,
		"http.addr":       ":4000",
		"metrics.addr":    "127.0.0.1:9100",
		"log.format":      "json",
		"log.level":       "info",
		"db.driver":       DriverSQLite,
		"db.url":          "",
		"db.path":         xdg.DefaultDatabasePath(),
		"session.secret":  "",
		"session.ttl":     "24h",
		"session.issuer":  "codenest",
		"cookie.name":     "token",
		"cookie.secure":   false,
		"cookie.samesite": "strict",
		"cookie.domain":   "",
		"cors.origins":    []string{"http://localhost:3000"},
		"argon2.memory":   0,
		"argon2.time":     0,
		"argon2.threads":  0,
	}
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. A missing file is an error.
	ConfigFile string
	// EnvFile is an optional dotenv file. A missing file is ignored.
	EnvFile string
	// Flags, when set, overrides any value whose flag was changed.
	Flags *pflag.FlagSet
}

// RegisterFlags adds the command-line overrides Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("mode", d["mode"].(string), "run mode (debug, release or test)")
	fs.String("http.addr", d["http.addr"].(string), "API listen address")
	fs.String("metrics.addr", d["metrics.addr"].(string), "metrics/health listen address (empty = disabled)")
	fs.String("log.format", d["log.format"].(string), "log format (json or text)")
	fs.String("log.level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("db.driver", d["db.driver"].(string), "account store (postgres, sqlite or memory)")
	fs.String("db.url", d["db.url"].(string), "PostgreSQL connection URL")
	fs.String("db.path", d["db.path"].(string), "SQLite database file")
}

// Load resolves the configuration. It does not validate it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "defaults").Wrap(err)
	}

	if opts.ConfigFile != "" {
		if err := k.Load(file.Provider(opts.ConfigFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("layer", "file").
				With("path", opts.ConfigFile).
				Wrap(err)
		}
	}

	if opts.EnvFile != "" {
		values, err := godotenv.Read(opts.EnvFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("layer", "dotenv").
				With("path", opts.EnvFile).
				Wrap(err)
		default:
			if err := k.Load(confmap.Provider(dotenvValues(values), "."), nil); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "dotenv").Wrap(err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.Provider(opts.Flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// envKeyValue maps CODENEST_SESSION_SECRET to session.secret. Origins are
// comma separated.
func envKeyValue(key, value string) (string, any) {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", ".")
	if k == "cors.origins" {
		return k, splitList(value)
	}
	return k, value
}

func dotenvValues(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		k, v := envKeyValue(key, value)
		out[k] = v
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration. In debug and test modes a missing
// session secret is replaced with a random per-process secret, which is
// logged as a warning on logger; release mode refuses to start without one.
func (c *Config) Validate(logger *slog.Logger) error {
	switch c.Mode {
	case ModeDebug, ModeRelease, ModeTest:
	default:
		return invalid("mode", "mode must be debug, release or test, got %q", c.Mode)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}

	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.URL == "" {
			return invalid("db.url", "db.url is required for the postgres driver")
		}
	case DriverSQLite:
		if c.DB.Path == "" {
			return invalid("db.path", "db.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return invalid("db.driver", "db driver must be postgres, sqlite or memory, got %q", c.DB.Driver)
	}

	if c.Session.TTL <= 0 {
		return invalid("session.ttl", "session ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Cookie.Name == "" {
		return invalid("cookie.name", "cookie name is required")
	}
	if _, err := ParseSameSite(c.Cookie.SameSite); err != nil {
		return err
	}
	if strings.EqualFold(c.Cookie.SameSite, "none") && !c.Cookie.Secure {
		return invalid("cookie.secure", "SameSite=None cookies must be secure")
	}
	if len(c.CORS.Origins) == 0 {
		return invalid("cors.origins", "at least one CORS origin is required")
	}

	if c.Mode == ModeRelease {
		if len(c.Session.Secret) < minSecretLength {
			return invalid("session.secret", "session secret must be at least %d bytes in release mode", minSecretLength)
		}
		if !c.Cookie.Secure {
			return invalid("cookie.secure", "cookie.secure must be true in release mode")
		}
		return nil
	}

	switch {
	case c.Session.Secret == "":
		secret, err := randomSecret()
		if err != nil {
			return oops.Code("CONFIG_INVALID").With("field", "session.secret").Wrap(err)
		}
		c.Session.Secret = secret
		if logger != nil {
			logger.Warn("no session secret configured, using a random one; sessions will not survive a restart",
				"mode", c.Mode)
		}
	case len(c.Session.Secret) < minSecretLength:
		return invalid("session.secret", "session secret must be at least %d bytes", minSecretLength)
	}
	return nil
}

// ParseSameSite maps a cookie.samesite value onto http.SameSite.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return http.SameSiteDefaultMode, invalid("cookie.samesite", "cookie samesite must be strict, lax or none, got %q", s)
	}
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
}

func randomSecret() (string, error) {
	buf := make([]byte, minSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// DotEnvPath returns the dotenv file Load should read: CODENEST_ENV_FILE if
// set, else ".env".
func DotEnvPath() string {
	if p := os.Getenv(EnvPrefix + "ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}
