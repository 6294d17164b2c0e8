// Package config loads runtime configuration from YAML and assembles a
// ready-to-use obs.Registry from it. Values may reference environment
// variables with ${VAR}; a .env file next to the process is picked up when
// present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/inwatch/obs"
	"github.com/inwatch/obs/batch"
	"github.com/inwatch/obs/casing"
	"github.com/inwatch/obs/sinks/promsink"
	"github.com/inwatch/obs/sinks/redisink"
)

// Sink types accepted in SinkConfig.Type.
const (
	SinkConsole    = "console"
	SinkRedis      = "redis"
	SinkPrometheus = "prometheus"
)

var (
	// ErrUnknownSink is returned by Build for an unrecognized sink type.
	ErrUnknownSink = errors.New("config: unknown sink type")
	// ErrRedisAddressRequired is returned when a redis sink has no address.
	ErrRedisAddressRequired = errors.New("config: redis sink address is required")
)

// Config is the on-disk runtime configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// LoggingConfig controls the runtime logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`
}

// SinkConfig is one sink stanza. Options are decoded per sink type.
type SinkConfig struct {
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options"`
}

// RedisOptions configures a redis sink stanza.
type RedisOptions struct {
	Address       string        `mapstructure:"address"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	Key           string        `mapstructure:"key"`
	KeyStyle      string        `mapstructure:"key_style"`
	MaxSize       int           `mapstructure:"max_size"`
	MaxWait       time.Duration `mapstructure:"max_wait"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// Load reads a YAML configuration from path. A .env file in the working
// directory is loaded first when present, and ${VAR} references in the
// document are expanded from the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config read: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse: %w", err)
	}

	return cfg, nil
}

// BuildOption adjusts Build behavior.
type BuildOption func(*buildSettings)

type buildSettings struct {
	promRegisterer prometheus.Registerer
	registryOpts   []obs.RegistryOption
}

// WithPromRegisterer sets where prometheus sinks register their metrics.
// Defaults to prometheus.DefaultRegisterer.
func WithPromRegisterer(reg prometheus.Registerer) BuildOption {
	return func(s *buildSettings) {
		s.promRegisterer = reg
	}
}

// WithRegistryOptions forwards options to the constructed registry.
func WithRegistryOptions(opts ...obs.RegistryOption) BuildOption {
	return func(s *buildSettings) {
		s.registryOpts = append(s.registryOpts, opts...)
	}
}

// Build assembles a registry with the configured sinks. The returned close
// function drains and releases network sinks; call it on shutdown.
func Build(cfg Config, opts ...BuildOption) (*obs.Registry, func() error, error) {
	settings := buildSettings{promRegisterer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&settings)
	}

	logger := newLogger(cfg.Logging)
	registryOpts := append([]obs.RegistryOption{obs.WithLogger(logger)}, settings.registryOpts...)
	registry := obs.NewRegistry(registryOpts...)

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for _, closer := range closers {
			errs = append(errs, closer())
		}

		return errors.Join(errs...)
	}

	for _, sink := range cfg.Sinks {
		switch sink.Type {
		case SinkConsole:
			registry.Register(obs.NewConsoleSink(logger))
		case SinkRedis:
			exporter, err := buildRedis(sink.Options, logger)
			if err != nil {
				_ = closeAll()

				return nil, nil, err
			}
			registry.Register(exporter.Sink())
			closers = append(closers, exporter.Close)
		case SinkPrometheus:
			collector := promsink.New(settings.promRegisterer)
			registry.Register(collector.Sink())
		default:
			_ = closeAll()

			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSink, sink.Type)
		}
	}

	return registry, closeAll, nil
}

func buildRedis(options map[string]any, logger obs.Logger) (*redisink.Exporter, error) {
	var decoded RedisOptions
	if err := decodeOptions(options, &decoded); err != nil {
		return nil, fmt.Errorf("config redis options: %w", err)
	}
	if decoded.Address == "" {
		return nil, ErrRedisAddressRequired
	}

	style, err := casing.ParseStyle(decoded.KeyStyle)
	if err != nil {
		return nil, fmt.Errorf("config redis options: %w", err)
	}

	var batchOpts []batch.Option
	if decoded.MaxSize > 0 {
		batchOpts = append(batchOpts, batch.WithMaxSize(decoded.MaxSize))
	}
	if decoded.MaxWait > 0 {
		batchOpts = append(batchOpts, batch.WithMaxWait(decoded.MaxWait))
	}
	if decoded.RetryAttempts > 0 {
		batchOpts = append(batchOpts, batch.WithRetryAttempts(decoded.RetryAttempts))
	}
	if decoded.RetryDelay > 0 {
		batchOpts = append(batchOpts, batch.WithRetryDelay(decoded.RetryDelay))
	}

	exporterOpts := []redisink.Option{
		redisink.WithKeyStyle(style),
		redisink.WithLogger(logger),
		redisink.WithBatchOptions(batchOpts...),
	}
	if decoded.Key != "" {
		exporterOpts = append(exporterOpts, redisink.WithKey(decoded.Key))
	}

	return redisink.New(decoded.Address, decoded.Password, decoded.DB, exporterOpts...), nil
}

func decodeOptions(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func newLogger(cfg LoggingConfig) obs.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return obs.SlogLogger{L: slog.New(handler)}
}
