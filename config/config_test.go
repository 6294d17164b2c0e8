package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inwatch/obs"
	"github.com/inwatch/obs/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "obs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
sinks:
  - type: console
  - type: redis
    options:
      address: localhost:6379
      key: units:out
      key_style: camelCase
      max_size: 10
      max_wait: 250ms
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Sinks, 2)
	assert.Equal(t, config.SinkConsole, cfg.Sinks[0].Type)
	assert.Equal(t, config.SinkRedis, cfg.Sinks[1].Type)
	assert.Equal(t, "localhost:6379", cfg.Sinks[1].Options["address"])
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("OBS_TEST_REDIS_ADDR", "redis.internal:6379")

	path := writeConfig(t, `
sinks:
  - type: redis
    options:
      address: ${OBS_TEST_REDIS_ADDR}
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "redis.internal:6379", cfg.Sinks[0].Options["address"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestBuild_ConsoleAndPrometheus(t *testing.T) {
	cfg := config.Config{
		Sinks: []config.SinkConfig{
			{Type: config.SinkConsole},
			{Type: config.SinkPrometheus},
		},
	}

	registry, closeAll, err := config.Build(cfg, config.WithPromRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer func() { require.NoError(t, closeAll()) }()

	sinks := registry.Sinks()
	require.Len(t, sinks, 2)
	assert.Equal(t, obs.ConsoleSinkName, sinks[0].Name)
}

func TestBuild_RedisEndToEnd(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.Config{
		Sinks: []config.SinkConfig{
			{
				Type: config.SinkRedis,
				Options: map[string]any{
					"address":  mr.Addr(),
					"key":      "units:test",
					"max_size": 1,
					"max_wait": 500 * time.Millisecond,
				},
			},
		},
	}

	registry, closeAll, err := config.Build(cfg)
	require.NoError(t, err)

	require.NoError(t, registry.Observe(context.Background(), obs.UnitConfig{Name: "job"}, func(context.Context) error {
		return nil
	}))
	require.NoError(t, closeAll())

	values, err := mr.List("units:test")
	require.NoError(t, err)
	assert.Len(t, values, 1)
}

func TestBuild_Errors(t *testing.T) {
	_, _, err := config.Build(config.Config{
		Sinks: []config.SinkConfig{{Type: "carrier-pigeon"}},
	})
	require.ErrorIs(t, err, config.ErrUnknownSink)

	_, _, err = config.Build(config.Config{
		Sinks: []config.SinkConfig{{Type: config.SinkRedis}},
	})
	require.ErrorIs(t, err, config.ErrRedisAddressRequired)

	_, _, err = config.Build(config.Config{
		Sinks: []config.SinkConfig{{
			Type:    config.SinkRedis,
			Options: map[string]any{"address": "x:1", "key_style": "SCREAMING"},
		}},
	})
	require.Error(t, err)
}
