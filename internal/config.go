package internal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 整個應用的配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Game      GameConfig      `yaml:"game"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig HTTP 伺服器
type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // 空表示不檢查
}

// GameConfig 對局
type GameConfig struct {
	InitialSeconds int `yaml:"initial_seconds"`
}

// WebSocketConfig 心跳與緩衝
//
// 時間配置原理：PingInterval 必須小於 PongWait，
// 讓 Pong 在讀取期限到期前回來（54s Ping / 60s 期限，留 6 秒余量）。
type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongWait       time.Duration `yaml:"pong_wait"`
	WriteWait      time.Duration `yaml:"write_wait"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	SendBuffer     int           `yaml:"send_buffer"`
}

// RateLimitConfig 每條連線的事件速率
type RateLimitConfig struct {
	EventsPerSecond float64 `yaml:"events_per_second"`
	Burst           int     `yaml:"burst"`
}

// LogConfig 日誌
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig 預設配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         4000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Game: GameConfig{
			InitialSeconds: 300,
		},
		WebSocket: WebSocketConfig{
			PingInterval:   54 * time.Second,
			PongWait:       60 * time.Second,
			WriteWait:      10 * time.Second,
			MaxMessageSize: 4096,
			SendBuffer:     256,
		},
		RateLimit: RateLimitConfig{
			EventsPerSecond: 20,
			Burst:           40,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig 載入配置檔案，未提供路徑時使用預設值
//
// 檔案中沒有出現的欄位保留預設值。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	// #nosec G304 - path 來自命令行參數，由部署者控制
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate 檢查配置
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Game.InitialSeconds <= 0 {
		errs = append(errs, fmt.Errorf("game.initial_seconds must be positive: %d", c.Game.InitialSeconds))
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongWait {
		errs = append(errs, fmt.Errorf("websocket.ping_interval (%s) must be shorter than pong_wait (%s)",
			c.WebSocket.PingInterval, c.WebSocket.PongWait))
	}
	if c.WebSocket.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("websocket.send_buffer must be positive: %d", c.WebSocket.SendBuffer))
	}
	if c.RateLimit.EventsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate_limit.events_per_second and burst must be positive"))
	}

	return errors.Join(errs...)
}
