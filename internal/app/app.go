// Package app wires the process together. Every collaborator is constructed
// here and handed down explicitly; no package holds ambient connection state.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/keepat/api/internal/config"
	"github.com/keepat/api/internal/httpapi"
	"github.com/keepat/api/internal/identity"
	"github.com/keepat/api/internal/payment"
	"github.com/keepat/api/internal/queue"
	"github.com/keepat/api/internal/service"
	"github.com/keepat/api/internal/store"
)

// App is the assembled server.
type App struct {
	cfg    config.Config
	server *http.Server
}

// New constructs the application from configuration.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := store.NewDynamoStore(ctx, cfg.AWSRegion, cfg.TablePrefix)
	if err != nil {
		return nil, err
	}

	payments := payment.NewStripeProvider(cfg.StripeSecretKey)
	conversions := queue.New(cfg.RedisAddr)
	verifier := identity.NewVerifier(cfg.JWTSecret)

	applications := service.NewApplicationService(st, payments)
	users := service.NewUserService(st, applications, cfg.DefaultPlanID)
	billing := service.NewBillingService(st, payments, applications, cfg.Plans, cfg.DefaultPlanID)
	redirects := service.NewRedirectService(st, conversions)

	router := httpapi.NewRouter(httpapi.Deps{
		Verifier:     verifier,
		Payments:     payments,
		Users:        users,
		Applications: applications,
		Billing:      billing,
		Redirects:    redirects,
	})

	return &App{
		cfg: cfg,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
