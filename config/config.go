package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/packway"
	packwayhttp "github.com/sagarc03/packway/http"
	"github.com/sagarc03/packway/keybackend"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for packway.
type Config struct {
	Server  ServerConfig           `mapstructure:"server"`
	Repos   ReposConfig            `mapstructure:"repos"`
	Git     GitConfig              `mapstructure:"git"`
	Access  AccessConfig           `mapstructure:"access"`
	Auth    AuthConfig             `mapstructure:"auth"`
	CORS    packwayhttp.CORSConfig `mapstructure:"cors"`
	Audit   AuditConfig            `mapstructure:"audit"`
	Metrics MetricsConfig          `mapstructure:"metrics"`
	Log     LogConfig              `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
// A zero ReadTimeout or WriteTimeout means no limit; pack exchanges for large
// repositories routinely run for minutes.
type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"min=0"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// ReposConfig locates the repositories being served.
type ReposConfig struct {
	Root string `mapstructure:"root" validate:"required"`
	// ProjectRoot is the older name for Root, honoured when Root is unset.
	ProjectRoot string `mapstructure:"project_root"`
}

// GitConfig selects how git is invoked.
type GitConfig struct {
	BinPath string `mapstructure:"bin_path" validate:"required"`
	Adapter string `mapstructure:"adapter" validate:"required,oneof=gitexec legacy"`
}

// AccessConfig holds the server-wide service overrides. Unset values defer to
// each repository's http.uploadpack and http.receivepack settings.
type AccessConfig struct {
	AllowPull *bool `mapstructure:"allow_pull"`
	AllowPush *bool `mapstructure:"allow_push"`
	// UploadPack and ReceivePack are older names for AllowPull and AllowPush.
	UploadPack  *bool `mapstructure:"upload_pack"`
	ReceivePack *bool `mapstructure:"receive_pack"`
}

// Policy returns the AccessPolicy described by the configuration.
func (a AccessConfig) Policy() packway.AccessPolicy {
	policy := packway.AccessPolicy{AllowPull: a.AllowPull, AllowPush: a.AllowPush}
	if policy.AllowPull == nil {
		policy.AllowPull = a.UploadPack
	}
	if policy.AllowPush == nil {
		policy.AllowPush = a.ReceivePack
	}
	return policy
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Read        string                       `mapstructure:"read" validate:"required,oneof=public private"`
	Write       string                       `mapstructure:"write" validate:"required,oneof=public private"`
	Credentials keybackend.CredentialsConfig `mapstructure:"credentials"`
}

// AuditConfig configures the exchange log.
type AuditConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Type    string         `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	DSN     string         `mapstructure:"dsn" validate:"required"`
	Tables  packway.Tables `mapstructure:"tables"`
}

// MetricsConfig configures the Prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":       "server.port",
	"root":       "repos.root",
	"git":        "git.bin_path",
	"adapter":    "git.adapter",
	"allow-pull": "access.allow_pull",
	"allow-push": "access.allow_push",
	"audit-type": "audit.type",
	"audit-dsn":  "audit.dsn",
	"metrics":    "metrics.addr",
	"log-level":  "log.level",
}

// envOnlyKeys have no default, so viper only learns about them from the
// environment when bound explicitly.
var envOnlyKeys = []string{
	"repos.root",
	"repos.project_root",
	"access.allow_pull",
	"access.allow_push",
	"access.upload_pack",
	"access.receive_pack",
	"auth.credentials.file",
	"metrics.addr",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.read_timeout", 0)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("git.bin_path", "git")
	v.SetDefault("git.adapter", "gitexec")

	v.SetDefault("auth.read", "public")
	v.SetDefault("auth.write", "public")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.type", "sqlite")
	v.SetDefault("audit.dsn", "packway.db")
	v.SetDefault("audit.tables.exchanges", "packway_exchanges")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("PACKWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Repos.Root == "" {
		cfg.Repos.Root = cfg.Repos.ProjectRoot
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Audit.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
