package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inkforge/inkforge/internal/api"
	apiMiddleware "github.com/inkforge/inkforge/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	jobHandler := api.NewJobHandler(app.scheduler, app.logger)
	batchHandler := api.NewBatchHandler(app.batchService, app.batchJobStore, app.batchPoller, app.logger)
	dedupeHandler := api.NewDedupeHandler(app.dedupeEngine, app.itemStore, app.logger)
	vectorizeHandler := api.NewVectorizeHandler(app.vectorizePoller, app.logger)
	eventsHandler := api.NewEventsHandler(app.broker, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", jobHandler.Enqueue)
		r.Post("/jobs/{id}/edit", jobHandler.Edit)
		r.Post("/jobs/{id}/cancel", jobHandler.Cancel)
		r.Get("/jobs/stats", jobHandler.Stats)

		r.Post("/batches", batchHandler.Submit)
		r.Get("/batches", batchHandler.List)
		r.Post("/batches/poll", batchHandler.TriggerPoll)

		r.Get("/duplicates", dedupeHandler.ListDuplicates)

		r.Post("/items/{id}/vectorize", vectorizeHandler.Submit)

		r.Get("/events", eventsHandler.Stream)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
