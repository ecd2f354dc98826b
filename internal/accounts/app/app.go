// Package app wires the accounts service together: configuration,
// storage driver, token signing, services and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	httpapi "github.com/canopysaas/canopy/internal/accounts/http"
	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/internal/accounts/store/drivers/postgres"
	"github.com/canopysaas/canopy/internal/accounts/store/drivers/sqlite"
	"github.com/canopysaas/canopy/pkg/cryptox"
	"github.com/canopysaas/canopy/pkg/jwtx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the accounts service with all its
// dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   jwtx.Signer
	verifier jwtx.Verifier

	identityService     *service.IdentityService
	authService         *service.AuthService
	tenantService       *service.TenantService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "accounts-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("accounts service starting",
		"port", app.cfg.Port, "driver", app.cfg.StoreDriver, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully stops the HTTP server, housekeeping worker and
// storage.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

func (app *Application) initStore() error {
	var (
		db  store.Store
		err error
	)

	switch strings.ToLower(app.cfg.StoreDriver) {
	case "sqlite", "":
		db, err = sqlite.NewStore(app.cfg.DataDir)
	case "postgres":
		if app.cfg.DatabaseURL == "" {
			return fmt.Errorf("postgres driver requires CANOPY_DATABASE_URL")
		}
		db, err = postgres.NewStore(context.Background(), app.cfg.DatabaseURL)
	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.StoreDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply catalog migrations: %w", err)
	}

	app.logger.Info("catalog migrations applied")
	return nil
}

func (app *Application) initSigner() error {
	switch strings.ToUpper(app.cfg.Algorithm) {
	case "HS256":
		signer, err := jwtx.NewSignerHS256([]byte(app.cfg.TokenSecret))
		if err != nil {
			return fmt.Errorf("failed to initialize HS256 signer: %w", err)
		}
		app.signer = signer
		app.verifier = jwtx.NewVerifierHS256([]byte(app.cfg.TokenSecret), app.cfg.Issuer)

	case "EDDSA", "":
		var signer *jwtx.EdDSASigner
		if app.cfg.SigningKeyFile != "" {
			pemKey, err := os.ReadFile(app.cfg.SigningKeyFile)
			if err != nil {
				return fmt.Errorf("failed to read signing key: %w", err)
			}
			s, err := jwtx.NewSignerEdDSA(pemKey)
			if err != nil {
				return err
			}
			signer = s.(*jwtx.EdDSASigner)
		} else {
			// Tokens stop verifying on restart. Fine for dev, set
			// CANOPY_SIGNING_KEY_FILE in production.
			s, err := jwtx.GenerateEdDSASigner()
			if err != nil {
				return err
			}
			signer = s
			app.logger.Warn("using ephemeral signing key; tokens will not survive a restart")
		}
		app.signer = signer
		app.verifier = jwtx.NewVerifierEdDSA(signer.Public(), app.cfg.Issuer)

	default:
		return fmt.Errorf("unknown signing algorithm %q", app.cfg.Algorithm)
	}

	return nil
}

func (app *Application) initServices() {
	app.identityService = &service.IdentityService{}
	app.authService = &service.AuthService{
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}
	app.tenantService = &service.TenantService{Store: app.db}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(
		app.signer,
		app.verifier,
		app.cfg.AdminToken,
		BuildVersion,
		app.db,
		app.logger,
	)
	app.router.IdentityService = app.identityService
	app.router.AuthService = app.authService
	app.router.TenantService = app.tenantService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: app.router,
	}
}
