package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/koopa0/system-design/14-chess-relay/internal"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 解析命令行參數（覆蓋配置檔）
	var (
		configPath = flag.String("config", "", "配置檔路徑（YAML，留空使用預設值）")
		port       = flag.Int("port", 0, "服務器端口")
		logLevel   = flag.String("log-level", "", "日誌級別 (debug, info, warn, error)")
		logFormat  = flag.String("log-format", "", "日誌格式 (text, json)")
	)
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		config.Server.Port = *port
	}
	if *logLevel != "" {
		config.Log.Level = *logLevel
	}
	if *logFormat != "" {
		config.Log.Format = *logFormat
	}

	// 設置日誌
	logger := setupLogger(config.Log.Level, config.Log.Format)
	slog.SetDefault(logger)

	metrics := internal.NewMetrics()

	// Hub 是 Service 的 Transport，Service 是 Hub 的 Dispatcher
	wsHub := internal.NewWebSocketHub(config.WebSocket, config.RateLimit, config.Server.AllowedOrigins, metrics, logger)
	service := internal.NewService(config.Game, wsHub, metrics, logger)
	wsHub.Attach(service)

	handler := internal.NewHandler(service, metrics, logger)

	// 設置路由
	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	mux.HandleFunc("GET /ws", wsHub.ServeWS)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Server.Port),
		Handler:      mux,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		logger.Info("對局中繼服務器啟動",
			"port", config.Server.Port,
			"initial_seconds", config.Game.InitialSeconds,
			"log_level", config.Log.Level,
			"log_format", config.Log.Format)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("服務器啟動失敗", "error", err)
			os.Exit(1)
		}
	}()

	// 優雅關閉：先停止接受新連接，再關閉既有 WebSocket
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("收到關閉信號，開始優雅關閉...")
				err := server.Shutdown(ctx)
				wsHub.Stop()
				return err
			},
		},
	)

	exitCode := <-wait
	logger.Info("服務器已關閉", "exit_code", exitCode)
	os.Exit(exitCode)
}

// setupLogger 設置日誌
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: level == "debug", // debug 模式顯示源碼位置
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
