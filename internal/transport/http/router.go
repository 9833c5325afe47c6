package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

type RouterConfig struct {
	Scheduling schedulingService
	Directory  directoryService
	Audit      auditQueries
	Restorer   restorer
	DB         *bun.DB
	Log        *slog.Logger
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(ActorMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.DB, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	scheduling := NewSchedulingHandler(cfg.Scheduling, cfg.Log)
	r.Route("/api", func(r chi.Router) {
		r.Get("/practitioners/{id}/available-slots", scheduling.AvailableSlots)
		r.Get("/availability/weekly", scheduling.WeeklyAvailability)

		r.Post("/appointments", scheduling.CreateAppointment)
		r.Get("/appointments", scheduling.ListAppointments)
		r.Get("/appointments/{id}", scheduling.GetAppointment)
		r.Put("/appointments/{id}", scheduling.UpdateAppointment)

		r.Post("/practitioners/{id}/working-windows", scheduling.CreateWindow)
		r.Get("/practitioners/{id}/working-windows", scheduling.ListWindows)
		r.Put("/working-windows/{id}", scheduling.UpdateWindow)
		r.Delete("/working-windows/{id}", scheduling.DeleteWindow)

		directory := NewDirectoryHandler(cfg.Directory, cfg.Log)
		r.Delete("/users/{id}", directory.DeleteUser)
		r.Delete("/patients/{id}", directory.DeletePatient)
		r.Delete("/practitioners/{id}", directory.DeletePractitioner)
		r.Delete("/front-desk/{id}", directory.DeleteFrontDesk)

		audit := NewAuditHandler(cfg.Audit, cfg.Restorer, cfg.Log)
		r.Get("/audit", audit.List)
		r.Get("/audit/user/{id}", audit.ListByActor)
		r.Get("/audit/entity/{type}/{id}", audit.ListByEntity)
		r.Post("/audit/restore/{logID}", audit.Restore)
	})

	return r
}
