package server

import (
	"github.com/gofiber/fiber/v2"

	"jobscout/internal/core/run"
	"jobscout/internal/core/submission"
	"jobscout/internal/health"
)

type Dependencies struct {
	Runs        *run.Service
	Submissions submission.Repository
	Health      map[string]health.CheckFunc

	// DataDir receives uploaded CV templates.
	DataDir string
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Health)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	submissionHandler := submission.NewHandler(d.Submissions, d.DataDir)
	api.Post("/submissions", submissionHandler.HandleCreate)
	api.Get("/submissions", submissionHandler.HandleList)
	api.Get("/submissions/:id", submissionHandler.HandleGet)

	runHandler := run.NewHandler(d.Runs)
	api.Post("/runs", runHandler.HandleCreate)
	api.Get("/runs/:runId", runHandler.HandleGet)

	return healthHandler
}
