package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/config"
	"github.com/parley-app/parley/internal/handler"
	"github.com/parley-app/parley/internal/model/topic"
	"github.com/parley-app/parley/internal/service/account"
	"github.com/parley-app/parley/internal/service/ai"
	"github.com/parley-app/parley/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	topicStore := topic.NewMemoryStore(topic.SeedCategories(), topic.Seed())
	chatService := chat.NewService()

	accounts := account.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL,
		account.WithResetNotifier(account.LogNotifier{LinkBase: cfg.Auth.ResetLinkBase}))
	if cfg.Auth.DevSecret() {
		log.Warn().Msg("PARLEY_JWT_SECRET 未设置，使用内置开发密钥签发令牌")
	}

	// Initialize AI service
	var responder ai.Responder = ai.EchoResponder{}
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize AI service, falling back to echo replies - 请检查 Ark 模型相关环境变量")
		} else {
			responder = aiService
			log.Info().Str("model", cfg.AI.Model).Msg("AI service initialized successfully")
		}
	} else {
		log.Info().Msg("Ark 凭证未配置，使用回声回复")
	}

	router := handler.NewRouter(topicStore, accounts, chatService, responder)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("parley api listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
