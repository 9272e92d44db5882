package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/logging"
	"github.com/jrsteele09/go-session-auth/pii"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/storage"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/token/refresh"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

const janitorInterval = 5 * time.Minute

func main() {
	c, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	closer, err := logging.Init(c)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise logging")
	}
	defer closer.Close()

	if err := run(c); err != nil {
		log.Error().Err(err).Msg("Error running server")
		closer.Close()
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	displayAppname(c.GetAppName())

	db, err := storage.Open(ctx, c)
	if err != nil {
		return fmt.Errorf("storage.Open: %w", err)
	}
	defer db.Close()

	handler, err := wire(ctx, c, db)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

// wire builds the services bottom up: ledger and users, tokens, sessions,
// the auth flows and finally the HTTP surface.
func wire(ctx context.Context, c config.Config, db *storage.DB) (*server.Server, error) {
	protector, err := pii.NewProtector(c)
	if err != nil {
		return nil, fmt.Errorf("pii.NewProtector: %w", err)
	}
	hasher, err := users.NewPasswordHasher(c.GetBcryptCost())
	if err != nil {
		return nil, fmt.Errorf("users.NewPasswordHasher: %w", err)
	}

	userRepo := storage.NewUserRepo(db)
	ledger, err := refresh.NewManager(storage.NewRefreshTokenRepo(db), c.GetRefreshTokenExpiry())
	if err != nil {
		return nil, fmt.Errorf("refresh.NewManager: %w", err)
	}
	tokens, err := token.NewManagerFromConfig(c, ledger, userRepo)
	if err != nil {
		return nil, fmt.Errorf("token.NewManagerFromConfig: %w", err)
	}

	var store sessions.Store
	switch c.GetSessionStore() {
	case config.SessionStoreDatabase:
		store = storage.NewSessionRepo(db, c.GetSessionIdleTimeout(), protector)
	default:
		store = sessions.NewInMemoryStore(c.GetSessionIdleTimeout())
	}
	go sessions.RunJanitor(ctx, store, janitorInterval)

	authService, err := auth.NewService(auth.Repos{Users: userRepo, Sessions: store}, protector, hasher, tokens)
	if err != nil {
		return nil, fmt.Errorf("auth.NewService: %w", err)
	}

	return server.New(c, server.Dependencies{
		Auth:   authService,
		Tokens: tokens,
		Bridge: sessions.NewBridge(store, tokens),
		Health: db,
	})
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
