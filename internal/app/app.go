package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/divyamohan1993/project-orchestrator/internal/adapters/outbound/gce"
	"github.com/divyamohan1993/project-orchestrator/internal/adapters/outbound/recaptcha"
	"github.com/divyamohan1993/project-orchestrator/internal/catalog"
	"github.com/divyamohan1993/project-orchestrator/internal/config"
	"github.com/divyamohan1993/project-orchestrator/internal/httpserver"
	"github.com/divyamohan1993/project-orchestrator/internal/infra/auditlog"
	"github.com/divyamohan1993/project-orchestrator/internal/infra/cronparser"
	"github.com/divyamohan1993/project-orchestrator/internal/infra/shutdown"
	"github.com/divyamohan1993/project-orchestrator/internal/infra/startupscript"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/orchestrator"
	"github.com/divyamohan1993/project-orchestrator/internal/logic/ratelimit"
)

type App struct {
	logger        *slog.Logger
	appState      appstater
	signalHandler signalHandler
	gateway       io.Closer

	// Started in order, shut down in reverse.
	servers []appServer
}

// New creates a new application instance with all dependencies wired.
func New(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	appState appstater,
) (*App, error) {
	// Durable audit log backing the rate limiter.
	store, err := auditlog.Open(logger, cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	limiter := ratelimit.New(logger, store, cfg.RateCeiling, cfg.RateWindow)

	cat := catalog.New(logger, cfg.SecretsDir)

	scripts := startupscript.NewBuilder()

	schedule, err := cronparser.New(cfg.SweepSchedule, cfg.SweepTZ)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule: %w", err)
	}

	// Secondary adapter (GCE gateway)
	gateway, err := gce.New(ctx, logger, gce.Config{
		Project:     cfg.GCPProject,
		Zone:        cfg.GCPZone,
		MachineType: cfg.MachineType,
		CallTimeout: cfg.GatewayCallTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create gce gateway: %w", err)
	}

	// Logic service (inject gateway and limiter)
	orchestratorService := orchestrator.New(
		logger,
		gateway,
		limiter,
		cat,
		scripts,
		schedule,
		orchestrator.NewSlot(),
		cfg.InstanceLifetime,
		cfg.NamePrefix,
	)

	tokenVerifier := recaptcha.New(logger, cfg.VerifyEndpoint, cfg.VerifySecret)

	apiServer := httpserver.New(
		logger,
		appState,
		orchestratorService,
		limiter,
		tokenVerifier,
		cat,
		cfg.HTTPPort,
	)

	metricsServer := httpserver.NewMetricsServer(logger, cfg.MetricsPort)

	shutdownHandler := shutdown.New(logger, appState)

	return &App{
		logger:        logger,
		appState:      appState,
		signalHandler: shutdownHandler,
		gateway:       gateway,
		servers: []appServer{
			orchestratorService,
			apiServer,
			metricsServer,
		},
	}, nil
}

// Run starts the application and blocks until a termination signal arrives
// or a component fails to start.
func (a *App) Run(originCtx context.Context) error {
	ctx, cancel := context.WithCancel(originCtx)
	defer cancel()

	go a.signalHandler.HandleSignals(ctx, cancel)

	if err := a.appState.SetStarting(ctx); err != nil {
		return fmt.Errorf("set starting application state: %w", err)
	}

	for _, server := range a.servers {
		if err := server.Start(ctx); err != nil {
			// Roll back whatever already started.
			if shutdownErr := a.appState.Shutdown(ctx); shutdownErr != nil {
				a.logger.ErrorContext(ctx, "shutdown after failed start", "reason", shutdownErr)
			}

			return fmt.Errorf("start %s: %w", server.Name(), err)
		}

		a.appState.RegisterShutdowner(server)

		select {
		case <-server.Ready():
			a.logger.InfoContext(ctx, "component ready", "component", server.Name())
		case <-ctx.Done():
			return a.shutdownWithContextErr(ctx)
		}
	}

	if err := a.appState.SetRunning(ctx); err != nil {
		return fmt.Errorf("set running application state: %w", err)
	}

	a.logger.InfoContext(ctx, "application running")

	<-ctx.Done()

	return a.shutdownWithContextErr(ctx)
}

func (a *App) shutdownWithContextErr(ctx context.Context) error {
	err := a.appState.Shutdown(ctx)

	if closeErr := a.gateway.Close(); closeErr != nil {
		a.logger.ErrorContext(ctx, "close gce gateway", "reason", closeErr)
	}

	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
