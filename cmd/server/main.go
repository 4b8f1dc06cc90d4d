package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"ws-chat/auth"
	"ws-chat/infrastructure/rest"
	"ws-chat/infrastructure/ws"
	"ws-chat/internal"
	"ws-chat/moderation"
	"ws-chat/observability"
	"ws-chat/protocol"
	"ws-chat/repositories"
	"ws-chat/runtime"
	"ws-chat/runtime/workers"
	"ws-chat/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal is received.
// Deferred cleanups (Badger) run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Persistence & accounts
	userRepository := repositories.NewUserRepository(db)
	chatRepository := repositories.NewChatRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, lo.ToPtr(config.HistoryLimit))
	chatService := services.NewChatService(logger, chatRepository, messageRepository, userRepository)
	authService := services.NewAuthService(userRepository, auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration))

	// 4. Fan-out runtime
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	connections := runtime.NewRegistry()
	codec := protocol.NewCodec()
	broadcaster := runtime.NewBroadcaster(logger, connections, codec, metrics, config.SendTimeout)
	dispatcher := runtime.NewDispatcher(logger, chatService, broadcaster, metrics)

	if config.CensoredWordsFile != "" {
		words, err := moderation.LoadWords(config.CensoredWordsFile)
		if err != nil {
			return exitConfig, fmt.Errorf("censored words: %w", err)
		}
		moderator, err := moderation.NewModerator(words, charReplacement, logger)
		if err != nil {
			return exitConfig, fmt.Errorf("censored words: %w", err)
		}
		dispatcher = dispatcher.WithFilter(moderator)
		logger.Info("Moderation enabled", "words", len(words))
	}

	// 5. HTTP surface
	wsHandler := ws.NewHandler(logger, authService, connections, dispatcher, codec, metrics, ws.Options{
		WriteWait:    config.SendTimeout,
		PingInterval: config.PingInterval,
		PongWait:     config.PongWait,
		MaxFrameSize: config.MaxFrameSize,
		InboundRate:  config.InboundRate,
		InboundBurst: config.InboundBurst,
	})
	if !logger.Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := rest.NewRouter(logger, authService, chatService, rest.Options{
		WebSocket:    wsHandler,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		StaticDir:    config.StaticDir,
		HistoryLimit: config.HistoryLimit,
	})
	server := &http.Server{
		Addr:              config.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(wsHandler.CloseAll)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Supervised workers, Run blocks until the signal
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(
		workers.NewHTTPServerWorker(logger, server),
		workers.NewReporterWorker(logger, connections, metrics, config.ReportInterval),
	)
	logger.Info("Websocket gateway ready", "address", config.Address(), "ws", "/ws/subscribe")
	supervisor.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
