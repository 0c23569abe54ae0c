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

	"github.com/cmlabs-hris/hrms-engine/internal/config"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/notification"
	appHTTP "github.com/cmlabs-hris/hrms-engine/internal/handler/http"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/email"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/oauth"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/session"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/storage"
	"github.com/cmlabs-hris/hrms-engine/internal/repository/postgresql"
	allocationService "github.com/cmlabs-hris/hrms-engine/internal/service/allocation"
	assignmentService "github.com/cmlabs-hris/hrms-engine/internal/service/assignment"
	attendanceService "github.com/cmlabs-hris/hrms-engine/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/hrms-engine/internal/service/auth"
	calendarService "github.com/cmlabs-hris/hrms-engine/internal/service/calendar"
	employeeService "github.com/cmlabs-hris/hrms-engine/internal/service/employee"
	expenseService "github.com/cmlabs-hris/hrms-engine/internal/service/expense"
	"github.com/cmlabs-hris/hrms-engine/internal/service/file"
	leaveService "github.com/cmlabs-hris/hrms-engine/internal/service/leave"
	notificationService "github.com/cmlabs-hris/hrms-engine/internal/service/notification"
	projectService "github.com/cmlabs-hris/hrms-engine/internal/service/project"
	softwareService "github.com/cmlabs-hris/hrms-engine/internal/service/software"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	appName    = "hrms-engine"
	appVersion = "v1.0.0"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With(
		slog.String("app", appName),
		slog.String("version", appVersion),
		slog.String("env", cfg.App.Env),
	))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tx := postgresql.NewTxManager(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	onboardingRepo := postgresql.NewOnboardingRepository(db)
	overrideRepo := postgresql.NewRoleOverrideRepository(db)
	registry := postgresql.NewAssignmentRegistry(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	balanceRepo := postgresql.NewBalanceRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	expenseRepo := postgresql.NewExpenseRepository(db)
	softwareRepo := postgresql.NewSoftwareRequestRepository(db)
	complianceRepo := postgresql.NewComplianceRepository(db)
	projectRepo := postgresql.NewProjectRepository(db)
	allocationRepo := postgresql.NewAllocationRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	// The reserved allocation sinks are seeded by db/schema.sql.
	if _, err := projectRepo.Reserved(ctx); err != nil {
		return fmt.Errorf("reserved projects missing: %w", err)
	}

	jwtService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("init jwt: %w", err)
	}

	var microsoftService oauth.MicrosoftService
	if cfg.Microsoft.Enabled() {
		microsoftService = oauth.NewMicrosoftService(
			cfg.Microsoft.TenantID,
			cfg.Microsoft.ClientID,
			cfg.Microsoft.ClientSecret,
			cfg.Microsoft.RedirectURI,
			cfg.Microsoft.Scopes,
		)
	} else {
		slog.Warn("Microsoft sign-in disabled: MS_CLIENT_ID, MS_CLIENT_SECRET or MS_REDIRECT_URI not set")
	}

	sessions, err := sessionStore(ctx, cfg, db)
	if err != nil {
		return err
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	fileService := file.NewFileService(fileStorage)

	emailService, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("init email: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	notifier := notificationService.NewNotificationService(notificationRepo, emailService, m, notificationService.Config{
		WorkerCount: cfg.Notifier.Workers,
		QueueSize:   cfg.Notifier.QueueSize,
	})
	links := notification.Links{BaseURL: cfg.App.FrontendURL}

	authority := serviceAuth.NewAuthorityResolver(registry)
	authService := serviceAuth.NewAuthService(
		tx,
		employeeRepo,
		balanceRepo,
		serviceAuth.NewRolePolicy(overrideRepo),
		jwtService,
		microsoftService,
		sessions,
		serviceAuth.Options{SessionTTL: cfg.Session.TTL, OutboundTimeout: cfg.App.OutboundTimeout},
	)
	assignmentSvc := assignmentService.NewAssignmentService(tx, registry, employeeRepo, authority)
	employeeSvc := employeeService.NewEmployeeService(
		tx,
		employeeRepo,
		onboardingRepo,
		overrideRepo,
		balanceRepo,
		projectRepo,
		allocationRepo,
		assignmentSvc,
		authority,
		notifier,
	)
	calendarSvc := calendarService.NewCalendarService(holidayRepo)
	leaveSvc := leaveService.NewLeaveService(tx, leaveRequestRepo, balanceRepo, employeeRepo, calendarSvc, registry, authority, notifier, links, m)
	expenseSvc := expenseService.NewExpenseService(tx, expenseRepo, fileService, employeeRepo, registry, authority, notifier, links, m)
	softwareSvc := softwareService.NewSoftwareService(tx, softwareRepo, complianceRepo, employeeRepo, registry, authority, notifier, links, m)
	projectSvc := projectService.NewProjectService(tx, projectRepo, employeeRepo, authority)
	allocationSvc := allocationService.NewAllocationService(
		tx,
		allocationRepo,
		projectRepo,
		employeeRepo,
		authority,
		m,
		allocationService.Options{ImportConcurrency: cfg.Import.Concurrency},
	)
	attendanceSvc := attendanceService.NewAttendanceService(tx, attendanceRepo, allocationRepo, projectRepo, employeeRepo, authority, m)

	handlers := appHTTP.Handlers{
		Auth:         appHTTP.NewAuthHandler(authService),
		Employee:     appHTTP.NewEmployeeHandler(employeeSvc, assignmentSvc),
		Leave:        appHTTP.NewLeaveHandler(leaveSvc),
		Expense:      appHTTP.NewExpenseHandler(expenseSvc),
		Software:     appHTTP.NewSoftwareHandler(softwareSvc),
		Attendance:   appHTTP.NewAttendanceHandler(attendanceSvc),
		Allocation:   appHTTP.NewAllocationHandler(allocationSvc, projectSvc),
		Notification: appHTTP.NewNotificationHandler(notifier),
	}
	router := appHTTP.NewRouter(jwtService, authService, handlers, appHTTP.RouterOptions{
		AppName:        appName,
		Version:        appVersion,
		Env:            cfg.App.Env,
		AllowedOrigins: cfg.App.CORSAllowedOrigins,
	})

	scheduler := cron.NewScheduler()
	cron.NewAllocationJobs(allocationSvc).RegisterJobs(scheduler)
	scheduler.Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
	scheduler.Stop()
	// Transitions committed before shutdown still get their notifications.
	notifier.Stop()
	slog.Info("Server exited gracefully")
	return nil
}

// sessionStore picks the configured backend. SESSION_BACKEND=redis requires a
// reachable Redis at startup.
func sessionStore(ctx context.Context, cfg *config.Config, db *database.DB) (session.Store, error) {
	if cfg.Session.Backend != "redis" {
		return postgresql.NewSessionStore(db), nil
	}
	client, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}
	return session.NewRedisStore(client), nil
}
