package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/hrms-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hrms-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hrms-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         AuthHandler
	Employee     EmployeeHandler
	Leave        LeaveHandler
	Expense      ExpenseHandler
	Software     SoftwareHandler
	Attendance   AttendanceHandler
	Allocation   AllocationHandler
	Notification NotificationHandler
}

type RouterOptions struct {
	AppName        string
	Version        string
	Env            string
	AllowedOrigins []string
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(jwtService jwt.Service, authService auth.AuthService, h Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", opts.AppName),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	hrOrAdmin := middleware.RequireRole(employee.RoleHR)

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)
			r.Get("/microsoft", h.Auth.MicrosoftAuthURL)
			r.Post("/microsoft/callback", h.Auth.MicrosoftCallback)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(authService))

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/logout", h.Auth.Logout)

			r.Route("/onboarding", func(r chi.Router) {
				r.Use(hrOrAdmin)
				r.Get("/", h.Employee.ListOnboarding)
				r.Post("/", h.Employee.CreateOnboarding)
				r.Post("/{id}/approve", h.Employee.ApproveOnboarding)
				r.Post("/{id}/reject", h.Employee.RejectOnboarding)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.Employee.ListEmployees)
				r.Get("/reportees", h.Employee.Reportees)
				r.Get("/{id}", h.Employee.GetEmployee)
				r.Get("/{id}/assignments", h.Employee.GetAssignments)
				r.With(hrOrAdmin).Put("/{id}/assignments", h.Employee.ReplaceAssignments)
				r.Get("/{employee_id}/projects", h.Allocation.EmployeeProjects)
			})

			r.Route("/role-overrides", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", h.Employee.ListRoleOverrides)
				r.Put("/", h.Employee.UpsertRoleOverride)
				r.Delete("/{id}", h.Employee.DeleteRoleOverride)
			})

			r.Route("/leave", func(r chi.Router) {
				r.Post("/requests", h.Leave.CreateRequest)
				r.Get("/requests", h.Leave.GetMyRequests)
				r.Get("/requests/{id}", h.Leave.GetRequest)
				r.Post("/requests/{id}/manager-action", h.Leave.ActAsManager)
				r.Post("/requests/{id}/hr-action", h.Leave.ActAsHR)
				r.Get("/pending/manager", h.Leave.ListPendingAsManager)
				r.Get("/pending/hr", h.Leave.ListPendingAsHR)
				r.Get("/balance", h.Leave.GetMyBalance)
				r.Get("/balance/{employee_id}", h.Leave.GetBalance)
				r.Put("/balance/{employee_id}", h.Leave.SetBalance)
				r.Post("/working-days", h.Leave.WorkingDays)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", h.Expense.Submit)
				r.Get("/", h.Expense.ListMine)
				r.Get("/statistics", h.Expense.Statistics)
				r.Get("/pending/{stage}", h.Expense.ListPending)
				r.Get("/{id}", h.Expense.Get)
				r.Delete("/{id}", h.Expense.Cancel)
				r.Post("/{id}/archive", h.Expense.Archive)
				r.Post("/{id}/approvals/{stage}", h.Expense.Act)
				r.Get("/{id}/attachments/{attachment_id}", h.Expense.DownloadAttachment)
			})

			r.Route("/software", func(r chi.Router) {
				r.Post("/", h.Software.Submit)
				r.Get("/", h.Software.ListMine)
				r.Get("/pending", h.Software.ListPendingAsManager)
				r.Get("/queue", h.Software.ListByStatus)

				r.Route("/questions", func(r chi.Router) {
					r.Get("/", h.Software.ListQuestions)
					r.Post("/", h.Software.CreateQuestion)
					r.Put("/{id}", h.Software.UpdateQuestion)
					r.Delete("/{id}", h.Software.DeleteQuestion)
				})

				r.Get("/{id}", h.Software.Get)
				r.Post("/{id}/manager-action", h.Software.ActAsManager)
				r.Post("/{id}/questionnaire", h.Software.DispatchQuestionnaire)
				r.Post("/{id}/answers", h.Software.SubmitAnswers)
				r.Post("/{id}/complete", h.Software.Complete)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/", h.Attendance.Post)
				r.Post("/bulk", h.Attendance.PostBulk)
				r.Get("/weekly", h.Attendance.Weekly)
				r.Get("/daily", h.Attendance.Daily)
				r.Get("/projects", h.Attendance.ProjectDaily)
			})

			r.Route("/allocations", func(r chi.Router) {
				r.Post("/import", h.Allocation.Import)
				r.Get("/summary", h.Allocation.Summary)
				r.Post("/check", h.Allocation.Check)
				r.With(hrOrAdmin).Post("/grant-defaults", h.Allocation.GrantDefaults)
				r.Put("/{employee_id}/{month}", h.Allocation.Save)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.Allocation.ListProjects)
				r.Post("/", h.Allocation.CreateProject)
				r.Get("/mine", h.Allocation.MyProjects)
				r.Get("/{id}/allocations", h.Allocation.ProjectAllocations)
				r.Put("/{id}/employees", h.Allocation.ReplaceProjectEmployees)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.UnreadCount)
				r.Post("/read", h.Notification.MarkAsRead)
				r.Post("/read-all", h.Notification.MarkAllAsRead)
			})
		})
	})
	return r
}
