package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"

	"github.com/presencehq/presence-backend-go/internal/handler/http/middleware"
	"github.com/presencehq/presence-backend-go/internal/pkg/token"
)

func NewRouter(
	tokenService token.Service,
	authHandler AuthHandler,
	attendanceHandler AttendanceHandler,
	correctionHandler CorrectionHandler,
	eventsHandler EventsHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "presence-backend"),
		slog.String("version", "v1.0.0"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
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

		r.Route("/auth", func(r chi.Router) {
			r.Post("/device", authHandler.DeviceLogin)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenService.JWTAuth()))
			r.Use(middleware.AuthRequired(tokenService.JWTAuth()))

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/check-in", attendanceHandler.CheckIn)
				r.Post("/check-out", attendanceHandler.CheckOut)
				r.Post("/toggle", attendanceHandler.Toggle)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RoleRequired("admin"))
					r.Post("/sweep", attendanceHandler.Sweep)
				})

				r.Route("/records/{entityType}/{entityID}/{year}/{month}", func(r chi.Router) {
					r.Get("/", attendanceHandler.GetRecord)

					r.Route("/corrections", func(r chi.Router) {
						r.Get("/", correctionHandler.List)
						r.Post("/", correctionHandler.Submit)

						// Review and apply are reviewer actions
						r.Group(func(r chi.Router) {
							r.Use(middleware.RoleRequired("admin", "manager"))
							r.Post("/{correctionID}/review", correctionHandler.Review)
							r.Post("/{correctionID}/apply", correctionHandler.Apply)
						})
					})
				})
			})

			r.Get("/entities/{entityType}/{entityID}/session", attendanceHandler.GetSession)
			r.Get("/events", eventsHandler.Stream)
		})
	})

	return r
}
