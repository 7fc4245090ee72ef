package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Sessions *SessionHandler
	Submit   *SubmitHandler
	System   *SystemHandler
}

// Register mounts the API under /api/v1.
func Register(app *fiber.App, h Handlers) {
	api := app.Group("/api/v1")

	api.Get("/health", h.System.HandleHealth)
	api.Get("/status", h.System.HandleStatus)
	api.Get("/roles", h.System.HandleRoles)

	sessions := api.Group("/sessions")
	sessions.Post("/", h.Sessions.HandleCreate)
	sessions.Get("/:id", h.Sessions.HandleGet)
	sessions.Delete("/:id", h.Sessions.HandleDelete)
	sessions.Post("/:id/submit", h.Submit.HandleSubmit)
	sessions.Get("/:id/report", h.Sessions.HandleReport)
	sessions.Get("/:id/events", h.Sessions.HandleEvents)
	sessions.Post("/:id/save", h.Sessions.HandleSave)
	sessions.Post("/:id/load", h.Sessions.HandleLoad)
	sessions.Post("/:id/reset", h.Sessions.HandleReset)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "ATS Resume Scanner API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/sessions",
				"POST /api/v1/sessions/:id/submit",
				"GET /api/v1/sessions/:id",
				"GET /api/v1/sessions/:id/report",
			},
		})
	})
}
