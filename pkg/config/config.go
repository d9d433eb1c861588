// Package config loads svgit settings from a TOML file and the environment.
//
// Precedence, lowest first: built-in defaults, the config file, then
// environment variables. Unknown keys in the file are rejected so typos
// surface at startup instead of silently falling back to defaults.
//
//	[server]
//	addr = ":8080"
//
//	[tools.budgets.vtracer]
//	timeout = "90s"
//	kill_after = "80s"
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	apperr "github.com/nicholaspatten/svgit/pkg/errors"
	"github.com/nicholaspatten/svgit/pkg/toolexec"
	"github.com/nicholaspatten/svgit/pkg/upload"
)

// Cache and history backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Duration is a time.Duration that decodes from strings such as "45s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Upload  UploadConfig  `toml:"upload"`
	Tools   ToolsConfig   `toml:"tools"`
	Cache   CacheConfig   `toml:"cache"`
	History HistoryConfig `toml:"history"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	AllowOrigin     string   `toml:"allow_origin"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// UploadConfig bounds uploads and names the scratch directory.
type UploadConfig struct {
	MaxBytes   int64  `toml:"max_bytes"`
	ScratchDir string `toml:"scratch_dir"`
}

// ToolsConfig locates the external executables and bounds their runs.
type ToolsConfig struct {
	Magick  string        `toml:"magick"`
	Potrace string        `toml:"potrace"`
	VTracer string        `toml:"vtracer"`
	Grace   Duration      `toml:"grace"`
	Budgets BudgetsConfig `toml:"budgets"`
}

// BudgetsConfig holds one budget per tool step.
type BudgetsConfig struct {
	Monochrome BudgetConfig `toml:"monochrome"`
	Normalize  BudgetConfig `toml:"normalize"`
	Identify   BudgetConfig `toml:"identify"`
	Potrace    BudgetConfig `toml:"potrace"`
	VTracer    BudgetConfig `toml:"vtracer"`
}

// BudgetConfig is the file form of toolexec.Budget.
type BudgetConfig struct {
	Timeout   Duration `toml:"timeout"`
	KillAfter Duration `toml:"kill_after"`
}

// Budget converts b to a toolexec.Budget.
func (b BudgetConfig) Budget() toolexec.Budget {
	return toolexec.Budget{Timeout: b.Timeout.Duration, KillAfter: b.KillAfter.Duration}
}

// CacheConfig selects the conversion cache backend.
type CacheConfig struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	TTL     Duration    `toml:"ttl"`
	Prefix  string      `toml:"prefix"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig locates the Redis server.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// HistoryConfig selects the conversion history backend.
type HistoryConfig struct {
	Backend    string `toml:"backend"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// LogConfig sets the log level and output format.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func budget(timeout, killAfter time.Duration) BudgetConfig {
	return BudgetConfig{Timeout: Duration{timeout}, KillAfter: Duration{killAfter}}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowOrigin:     "*",
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{3 * time.Minute},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Upload: UploadConfig{MaxBytes: upload.DefaultMaxBytes},
		Tools: ToolsConfig{
			Magick:  "magick",
			Potrace: "potrace",
			VTracer: "vtracer",
			Grace:   Duration{toolexec.DefaultGrace},
			Budgets: BudgetsConfig{
				Monochrome: budget(45*time.Second, 40*time.Second),
				Normalize:  budget(30*time.Second, 25*time.Second),
				Identify:   budget(10*time.Second, 8*time.Second),
				Potrace:    budget(30*time.Second, 25*time.Second),
				VTracer:    budget(60*time.Second, 55*time.Second),
			},
		},
		Cache: CacheConfig{
			Backend: BackendNone,
			TTL:     Duration{24 * time.Hour},
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		History: HistoryConfig{Backend: BackendNone},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return apperr.New(apperr.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with get.
func (c *Config) ApplyEnv(get func(string) string) error {
	if v := get("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	setString(&c.Server.Addr, get("SVGIT_ADDR"))
	setString(&c.Server.AllowOrigin, get("SVGIT_ALLOW_ORIGIN"))
	setString(&c.Upload.ScratchDir, get("SVGIT_SCRATCH_DIR"))
	setString(&c.Tools.Magick, get("SVGIT_MAGICK"))
	setString(&c.Tools.Potrace, get("SVGIT_POTRACE"))
	setString(&c.Tools.VTracer, get("SVGIT_VTRACER"))
	setString(&c.Cache.Backend, get("SVGIT_CACHE"))
	setString(&c.Cache.Dir, get("SVGIT_CACHE_DIR"))
	setString(&c.Cache.Redis.Addr, get("SVGIT_REDIS_ADDR"))
	setString(&c.Cache.Redis.Password, get("SVGIT_REDIS_PASSWORD"))
	setString(&c.Log.Level, get("SVGIT_LOG_LEVEL"))
	setString(&c.Log.Format, get("SVGIT_LOG_FORMAT"))
	if v := get("SVGIT_MONGO_URI"); v != "" {
		c.History.MongoURI = v
		if c.History.Backend == BackendNone {
			c.History.Backend = BackendMongo
		}
	}
	if v := get("SVGIT_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return apperr.New(apperr.ErrCodeInvalidInput, "SVGIT_MAX_UPLOAD_BYTES: %q is not an integer", v)
		}
		c.Upload.MaxBytes = n
	}
	if v := get("SVGIT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperr.New(apperr.ErrCodeInvalidInput, "SVGIT_CACHE_TTL: %v", err)
		}
		c.Cache.TTL = Duration{d}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return apperr.New(apperr.ErrCodeInvalidInput, "server.addr is empty")
	}
	if c.Upload.MaxBytes <= 0 {
		return apperr.New(apperr.ErrCodeInvalidInput, "upload.max_bytes must be positive")
	}
	budgets := []struct {
		name string
		b    BudgetConfig
	}{
		{"monochrome", c.Tools.Budgets.Monochrome},
		{"normalize", c.Tools.Budgets.Normalize},
		{"identify", c.Tools.Budgets.Identify},
		{"potrace", c.Tools.Budgets.Potrace},
		{"vtracer", c.Tools.Budgets.VTracer},
	}
	for _, nb := range budgets {
		if err := validateBudget(nb.name, nb.b); err != nil {
			return err
		}
	}
	if err := apperr.ValidateEnum("cache.backend", c.Cache.Backend, BackendNone, BackendFile, BackendRedis); err != nil {
		return err
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return apperr.New(apperr.ErrCodeInvalidInput, "cache.redis.addr is required for the redis backend")
	}
	if err := apperr.ValidateEnum("history.backend", c.History.Backend, BackendNone, BackendMongo); err != nil {
		return err
	}
	if c.History.Backend == BackendMongo && c.History.MongoURI == "" {
		return apperr.New(apperr.ErrCodeInvalidInput, "history.mongo_uri is required for the mongo backend")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return apperr.Wrap(apperr.ErrCodeInvalidInput, err, "log.level")
	}
	return apperr.ValidateEnum("log.format", c.Log.Format, "text", "json", "logfmt")
}

func validateBudget(name string, b BudgetConfig) error {
	if b.Timeout.Duration <= 0 {
		return apperr.New(apperr.ErrCodeInvalidInput, "tools.budgets.%s.timeout must be positive", name)
	}
	if b.KillAfter.Duration < 0 || b.KillAfter.Duration > b.Timeout.Duration {
		return apperr.New(apperr.ErrCodeInvalidInput,
			"tools.budgets.%s.kill_after must be between 0 and timeout (%s)", name, b.Timeout.Duration)
	}
	return nil
}

// Formatter returns the charm log formatter for c.Log.Format.
func (c *Config) Formatter() log.Formatter {
	switch c.Log.Format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	}
	return log.TextFormatter
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// String renders c as TOML with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Cache.Redis.Password != "" {
		masked.Cache.Redis.Password = "********"
	}
	if masked.History.MongoURI != "" {
		masked.History.MongoURI = maskURI(masked.History.MongoURI)
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(masked); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}

// maskURI hides the userinfo of a connection string.
func maskURI(uri string) string {
	scheme := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if scheme < 0 || at < scheme {
		return uri
	}
	return uri[:scheme+3] + "****" + uri[at:]
}
