package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/authsession/internal/devidp/http"
	"github.com/aussiebroadwan/authsession/internal/devidp/service"
	"github.com/aussiebroadwan/authsession/internal/devidp/store"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the development identity provider with all its
// dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store    *store.Memory
	signer   *jwtx.EdDSASigner
	keys     *jwtx.KeySet
	verifier jwtx.Verifier

	loginService        *service.LoginService
	tokenService        *service.TokenService
	authorizeService    *service.AuthorizeService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds the provider and seeds its store. It does not start listening.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: slogx.New(cfg.Log),
		store:  store.NewMemory(),
	}

	signer, keys, err := InitSigningKey(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}
	app.signer = signer
	app.keys = keys

	if err := app.initServices(); err != nil {
		return nil, err
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := seed(ctx, app.store, app.loginService, cfg.Clients, cfg.Users); err != nil {
		return nil, err
	}
	app.logger.Info("store seeded", "clients", len(cfg.Clients), "users", len(cfg.Users))

	app.initHTTP()
	return app, nil
}

// Handler exposes the router, for embedding the provider in tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("devidp starting", "port", app.cfg.Port, "issuer", app.cfg.Issuer, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains the HTTP server and stops background work.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down devidp...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	var shutdownErr error
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		shutdownErr = err
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	app.logger.Info("devidp stopped")
	return shutdownErr
}

func (app *Application) initServices() error {
	pepper, err := cryptox.LoadPepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	login, err := service.NewLoginService(app.store, cryptox.NewPasswordHasher(pepper), app.cfg.SessionTTL)
	if err != nil {
		return err
	}
	app.loginService = login

	app.tokenService = &service.TokenService{
		Signer:    app.signer,
		Issuer:    app.cfg.Issuer,
		AccessTTL: app.cfg.AccessTokenTTL,
		IDTTL:     app.cfg.IDTokenTTL,
		Now:       time.Now,
	}

	app.authorizeService = &service.AuthorizeService{
		Store:  app.store,
		Login:  app.loginService,
		Tokens: app.tokenService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.store,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	// Userinfo accepts only access tokens, which all carry this audience.
	app.verifier = jwtx.NewVerifierEdDSA(app.keys, jwtx.VerifyOptions{
		Issuer:   app.cfg.Issuer,
		Audience: []string{app.tokenService.UserInfoAudience()},
	})
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		app.verifier,
		app.cfg.Issuer,
		BuildVersion,
		app.store,
		app.logger,
	)

	router.Limits.Login = app.cfg.LoginLimit
	router.LoginService = app.loginService
	router.AuthorizeService = app.authorizeService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
