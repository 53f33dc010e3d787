package internal_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-chess-relay/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := internal.DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 300, cfg.Game.InitialSeconds)
	assert.Less(t, cfg.WebSocket.PingInterval, cfg.WebSocket.PongWait)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		validate func(t *testing.T, cfg *internal.Config, err error)
	}{
		{
			name: "partial override keeps defaults",
			content: `
server:
  port: 8080
  allowed_origins:
    - https://chess.example.com
game:
  initial_seconds: 600
websocket:
  ping_interval: 20s
  pong_wait: 30s
log:
  level: debug
`,
			validate: func(t *testing.T, cfg *internal.Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, []string{"https://chess.example.com"}, cfg.Server.AllowedOrigins)
				assert.Equal(t, 600, cfg.Game.InitialSeconds)
				assert.Equal(t, 20*time.Second, cfg.WebSocket.PingInterval)
				assert.Equal(t, 30*time.Second, cfg.WebSocket.PongWait)
				assert.Equal(t, "debug", cfg.Log.Level)

				// 沒寫到的欄位
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
				assert.Equal(t, "text", cfg.Log.Format)
			},
		},
		{
			name:    "invalid yaml",
			content: "server: [port",
			validate: func(t *testing.T, cfg *internal.Config, err error) {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.Contains(t, err.Error(), "parse config")
			},
		},
		{
			name: "validation failure",
			content: `
game:
  initial_seconds: 0
websocket:
  ping_interval: 90s
`,
			validate: func(t *testing.T, cfg *internal.Config, err error) {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.Contains(t, err.Error(), "initial_seconds")
				assert.Contains(t, err.Error(), "ping_interval")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := internal.LoadConfig(writeConfig(t, tt.content))
			tt.validate(t, cfg, err)
		})
	}

	t.Run("empty path uses defaults", func(t *testing.T) {
		cfg, err := internal.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, internal.DefaultConfig(), cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := internal.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *internal.Config)
	}{
		{name: "port zero", mutate: func(cfg *internal.Config) { cfg.Server.Port = 0 }},
		{name: "port too large", mutate: func(cfg *internal.Config) { cfg.Server.Port = 70000 }},
		{name: "negative clock", mutate: func(cfg *internal.Config) { cfg.Game.InitialSeconds = -1 }},
		{name: "ping equals pong wait", mutate: func(cfg *internal.Config) {
			cfg.WebSocket.PingInterval = cfg.WebSocket.PongWait
		}},
		{name: "zero send buffer", mutate: func(cfg *internal.Config) { cfg.WebSocket.SendBuffer = 0 }},
		{name: "zero rate", mutate: func(cfg *internal.Config) { cfg.RateLimit.EventsPerSecond = 0 }},
		{name: "zero burst", mutate: func(cfg *internal.Config) { cfg.RateLimit.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := internal.DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
