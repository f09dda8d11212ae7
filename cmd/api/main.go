package main

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

	"github.com/cmlabs-hris/hris-payroll-batch/internal/config"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/hris-payroll-batch/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/notify"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/upstream"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/repository/postgresql"
	allowanceService "github.com/cmlabs-hris/hris-payroll-batch/internal/service/allowance"
	payrollService "github.com/cmlabs-hris/hris-payroll-batch/internal/service/payroll"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	policy, err := config.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		return fmt.Errorf("load payroll policy: %w", err)
	}
	slog.Info("payroll policy loaded",
		"path", cfg.Policy.Path,
		"on_fetch_failure", policy.Overlap.OnFetchFailure,
		"report", policy.Overlap.Report,
		"min_year", policy.Period.MinYear,
	)

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	employeeRepo := postgresql.NewEmployeeRepository(db)
	approvalRepo := postgresql.NewApprovalRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	allowanceRepo := postgresql.NewAllowanceRepository(db)

	engine, err := upstream.New(cfg.Upstream.PayrollEngineURL, cfg.Upstream.Timeout)
	if err != nil {
		return err
	}

	hub := sse.NewHub()
	publishers := []payroll.EventPublisher{hub}
	if cfg.ServiceBus.ConnectionString != "" {
		bus, err := notify.NewServiceBusPublisher(cfg.ServiceBus.ConnectionString, cfg.ServiceBus.Queue)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := bus.Close(closeCtx); err != nil {
				slog.Warn("failed to close service bus publisher", "error", err)
			}
		}()
		publishers = append(publishers, bus)
		slog.Info("service bus publishing enabled", "queue", cfg.ServiceBus.Queue)
	}
	publisher := notify.NewFanout(publishers...)

	overlapPolicy := payrollService.OverlapPolicy{
		FailClosed: policy.FailClosed(),
		ReportAll:  policy.ReportAll(),
	}
	resolver := payrollService.NewScopeResolver(employeeRepo)
	detector := payrollService.NewOverlapDetector(approvalRepo, payrollRepo, overlapPolicy)
	resender := payrollService.NewResendCoordinator(payrollRepo, engine, publisher)
	payrollSvc := payrollService.NewPayrollService(resolver, detector, engine, engine, payrollRepo, resender, publisher, payrollService.Options{
		MinYear:         policy.Period.MinYear,
		AllowUnresolved: policy.Scope.AllowUnresolvedIndividuals,
	})
	allowanceSvc := allowanceService.NewAllowanceService(allowanceRepo, employeeRepo)

	scheduler := cron.NewScheduler()
	cron.NewPayrollJobs(payrollSvc, cfg.App.RunRetention).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			Env:            cfg.App.Env,
			LogLevel:       cfg.SlogLevel(),
		},
		JWTService,
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewAllowanceHandler(allowanceSvc),
		appHTTP.NewEventHandler(hub, JWTService),
	)
	server := appHTTP.NewServer(fmt.Sprintf(":%d", cfg.App.Port), router)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
