package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/cache"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane/apim"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane/bunstore"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/bunx"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/policy"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/services/portal"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

// engine bundles the provisioning service with the resources it holds open.
type engine struct {
	Portal   portal.Service
	Registry *prometheus.Registry

	db *bun.DB
}

// Close releases the database connection of the local control plane.
func (e *engine) Close() {
	if e.db != nil {
		if err := bunx.Close(e.db); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
}

// newEngine wires the control plane, notification client and policy into a
// portal service according to cfg.
func newEngine(cfg *config.Config) (*engine, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e := &engine{Registry: reg}

	var cp controlplane.Client
	switch cfg.ControlPlane {
	case config.ControlPlaneLocal:
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		e.db = db
		store := bunstore.New(db)
		catalog := append([]string{cfg.Provisioning.AdminGroup}, cfg.Provisioning.DefaultGroups...)
		if err := store.EnsureCatalog(context.Background(), cfg.Provisioning.ProductName, catalog...); err != nil {
			e.Close()
			return nil, fmt.Errorf("register catalog (run db migrate first?): %w", err)
		}
		cp = store
		logger.Info("using local control plane", "db_type", bunx.DetectDatabaseType(cfg.DatabaseURL))
	default:
		creds := cache.NewCredentialCache(
			cache.ClientCredentialsLogin(
				cfg.Management.ClientID,
				cfg.Management.ClientSecret,
				cfg.Management.TokenURL,
				cfg.Management.Scope,
			),
			cache.WithTTL(cfg.Provisioning.CredentialTTL),
			cache.WithMargin(cfg.Provisioning.CredentialMargin),
			cache.WithCredentialMetrics(telemetry.NewCredentialMetrics(reg)),
			cache.WithLogger(logger),
		)
		cp = apim.New(cfg.Management, creds, apim.WithLogger(logger))
		logger.Info("using api management control plane", "service", cfg.Management.ServiceName)
	}

	pol, err := policy.New()
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("load authorization policy: %w", err)
	}

	e.Portal = portal.NewService(portal.Dependencies{
		ControlPlane: cp,
		Notify:       notify.NewHTTPClient(cfg.Notification.BaseURL, cfg.Notification.AdminKey, cfg.Notification.Timeout),
		Policy:       pol,
		Events:       telemetry.NewEventSink(logger, telemetry.NewOnboardingMetrics(reg)),
		CacheMetrics: telemetry.NewCacheMetrics(reg),
		Logger:       logger,
	}, cfg.Provisioning)

	return e, nil
}
