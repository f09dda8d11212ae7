package http

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	LogLevel       slog.Level
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, payrollHandler PayrollHandler, allowanceHandler AllowanceHandler, eventHandler EventHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-payroll-batch"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// SSE authenticates with a query token
		r.Get("/payroll/events", eventHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.RequireCompany)

			r.Route("/payroll", func(r chi.Router) {
				r.Post("/events/token", eventHandler.GetStreamToken)

				r.Route("/runs", func(r chi.Router) {
					r.Post("/", payrollHandler.StartRun)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", payrollHandler.GetRun)
						r.Put("/draft", payrollHandler.UpdateDraft)
						r.Post("/preview", payrollHandler.RequestPreview)
						r.Post("/submit", payrollHandler.SubmitForApproval)
						r.Post("/retry", payrollHandler.Retry)
						r.Post("/acknowledge", payrollHandler.Acknowledge)
						r.Post("/reset", payrollHandler.Reset)
					})
				})

				r.Post("/overlap-check", payrollHandler.CheckOverlap)
				r.Post("/schedules/validate", payrollHandler.ValidateSchedule)

				r.Route("/batches/{payrollId}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetBatch)
					r.Post("/resend", payrollHandler.ResendPayslips)
				})
			})

			r.Route("/allowances", func(r chi.Router) {
				r.Route("/employees/{employeeId}", func(r chi.Router) {
					r.Post("/", allowanceHandler.Assign)
					r.Get("/", allowanceHandler.ListForEmployee)
					r.Get("/due", allowanceHandler.DueForEmployee)
				})
				r.Put("/{id}", allowanceHandler.Update)
				r.Delete("/{id}", allowanceHandler.Remove)
			})
		})
	})
	return r
}

// NewServer wraps the router with the timeouts used in every environment.
// WriteTimeout stays zero so event streams are not cut off.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
