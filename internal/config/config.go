// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/bubo/internal/core"
)

// Config is the top-level configuration. Maps to the `bubo:` root key in
// YAML; env vars use the BUBO_ prefix via the key replacer (e.g.
// BUBO_LOG_LEVEL).
type Config struct {
	Upstream  UpstreamConfig  `mapstructure:"upstream" yaml:"upstream"`
	Blocklist BlocklistConfig `mapstructure:"blocklist" yaml:"blocklist"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// UpstreamConfig selects the resolver allowed queries are forwarded to.
type UpstreamConfig struct {
	// Resolver is a preset name or a dotted-quad IPv4 address.
	Resolver string `mapstructure:"resolver" yaml:"resolver"`
	// Timeout bounds one upstream exchange.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	addr netip.Addr // resolved by ValidateAndApplyDefaults
}

// BlocklistConfig configures the decision engine's domain sets.
type BlocklistConfig struct {
	// ExtraFile optionally extends the built-in default set; hosts-file
	// and plain domain list formats are accepted.
	ExtraFile string `mapstructure:"extra_file" yaml:"extra_file,omitempty"`
	// UserBlocked and UserUnblocked seed the user override sets. The
	// preference collaborator replaces them at runtime via the engine's
	// update entry points.
	UserBlocked   []string `mapstructure:"user_blocked" yaml:"user_blocked,omitempty"`
	UserUnblocked []string `mapstructure:"user_unblocked" yaml:"user_unblocked,omitempty"`
	// ObservedLimit caps the recency store fed to display surfaces.
	ObservedLimit int `mapstructure:"observed_limit" yaml:"observed_limit"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format string           `mapstructure:"format" yaml:"format"` // json / text
	File   FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures rotating file log output.
type FileOutputConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb,omitempty"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days,omitempty"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups,omitempty"`
	Compress   bool   `mapstructure:"compress" yaml:"compress,omitempty"`
}

// Presets maps well-known resolver names to their IPv4 addresses.
var Presets = map[string]string{
	"google":     "8.8.8.8",
	"cloudflare": "1.1.1.1",
	"quad9":      "9.9.9.9",
	"opendns":    "208.67.222.222",
}

// configRoot is the top-level wrapper matching the YAML structure `bubo: ...`.
type configRoot struct {
	Bubo Config `mapstructure:"bubo"`
}

// Load loads configuration from file, applying env overrides, defaults
// and validation.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Env overrides: the `bubo.` key prefix maps to `BUBO_` via the
	// key replacer (e.g. key "bubo.log.level" → env "BUBO_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	decodeDurations := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&root, decodeDurations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Bubo

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values. All keys use the "bubo." prefix to
// match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bubo.upstream.resolver", "8.8.8.8")
	v.SetDefault("bubo.upstream.timeout", "5s")

	v.SetDefault("bubo.blocklist.observed_limit", 100)

	v.SetDefault("bubo.metrics.enabled", false)
	v.SetDefault("bubo.metrics.listen", ":9091")
	v.SetDefault("bubo.metrics.path", "/metrics")

	v.SetDefault("bubo.log.level", "info")
	v.SetDefault("bubo.log.format", "text")
	v.SetDefault("bubo.log.file.enabled", false)
	v.SetDefault("bubo.log.file.path", "/var/log/bubo/bubo.log")
	v.SetDefault("bubo.log.file.max_size_mb", 100)
	v.SetDefault("bubo.log.file.max_age_days", 30)
	v.SetDefault("bubo.log.file.max_backups", 5)
	v.SetDefault("bubo.log.file.compress", true)
}

// ValidateAndApplyDefaults validates configuration and resolves the
// upstream address. Invalid user-supplied addresses are rejected here,
// at the configuration boundary; they never reach the pipeline.
func (cfg *Config) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level %q (must be debug/info/warn/error)",
			core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format %q (must be json/text)",
			core.ErrConfigInvalid, cfg.Log.Format)
	}

	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = 5 * time.Second
	}
	if cfg.Blocklist.ObservedLimit <= 0 {
		cfg.Blocklist.ObservedLimit = 100
	}

	resolver := cfg.Upstream.Resolver
	if preset, ok := Presets[strings.ToLower(resolver)]; ok {
		resolver = preset
	}
	addr, err := ParseIPv4(resolver)
	if err != nil {
		return err
	}
	cfg.Upstream.addr = addr
	return nil
}

// UpstreamAddrPort returns the validated resolver endpoint on port 53.
// Only meaningful after ValidateAndApplyDefaults has run.
func (cfg *Config) UpstreamAddrPort() netip.AddrPort {
	return netip.AddrPortFrom(cfg.Upstream.addr, core.DNSPort)
}

var dottedQuadRE = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)

// ParseIPv4 validates a user-supplied dotted-quad address: exactly four
// decimal octets, each 0-255. Stricter than netip.ParseAddr on purpose;
// shorthand and IPv6 forms are rejected.
func ParseIPv4(s string) (netip.Addr, error) {
	m := dottedQuadRE.FindStringSubmatch(s)
	if m == nil {
		return netip.Addr{}, fmt.Errorf("%w: %q is not a dotted-quad IPv4 address",
			core.ErrConfigInvalid, s)
	}
	var quad [4]byte
	for i, part := range m[1:] {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return netip.Addr{}, fmt.Errorf("%w: octet %q out of range in %q",
				core.ErrConfigInvalid, part, s)
		}
		quad[i] = byte(n)
	}
	return netip.AddrFrom4(quad), nil
}
