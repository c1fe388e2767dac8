package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arjmehta/portfolio-assistant/internal/config"
	"github.com/arjmehta/portfolio-assistant/internal/handler"
	"github.com/arjmehta/portfolio-assistant/internal/model/profile"
	"github.com/arjmehta/portfolio-assistant/internal/service/ai"
	"github.com/arjmehta/portfolio-assistant/internal/service/captcha"
	"github.com/arjmehta/portfolio-assistant/internal/service/mail"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	profileStore := profile.NewMemoryStore(profile.Seed())

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, profileStore, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - check the Ark model environment variables")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, the reply gateway will answer 503")
	}

	// Initialize email relay
	var sender mail.Sender
	if cfg.Mail.Enabled() {
		sender = mail.NewService(cfg.Mail)
		log.Println("email relay initialized successfully")
	} else {
		log.Println("email provider not configured, the relay gateway will answer 500")
	}

	// Captcha verification is optional; enabling it makes tokens mandatory
	// for form-originated relay requests.
	var verifier captcha.Verifier
	if cfg.Captcha.Enabled() {
		verifier = captcha.NewTurnstile(cfg.Captcha)
		log.Println("captcha verification enabled")
	} else {
		log.Println("captcha verification disabled")
	}

	router := handler.NewRouter(handler.Dependencies{
		AI:        aiService,
		Sender:    sender,
		Verifier:  verifier,
		RateLimit: cfg.RateLimit,
		Widget:    cfg.Widget,
	})

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

	log.Printf("portfolio assistant backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
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
