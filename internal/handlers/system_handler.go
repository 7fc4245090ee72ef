package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/ats-scanner/internal/services"
)

const pingTimeout = 5 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	catalog *services.RoleCatalog
	engine  Pinger
	index   Pinger
}

// NewSystemHandler builds the health, status and roles endpoints. engine and
// index may be nil when those services are not configured.
func NewSystemHandler(catalog *services.RoleCatalog, engine, index Pinger) *SystemHandler {
	return &SystemHandler{
		catalog: catalog,
		engine:  engine,
		index:   index,
	}
}

// HandleHealth handles GET /health
func (h *SystemHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleStatus handles GET /status
func (h *SystemHandler) HandleStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
	defer cancel()

	return c.JSON(fiber.Map{
		"analysisEngine": pingStatus(ctx, h.engine),
		"roleIndex":      pingStatus(ctx, h.index),
	})
}

// HandleRoles handles GET /roles
func (h *SystemHandler) HandleRoles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"roles": h.catalog.All(),
	})
}

func pingStatus(ctx context.Context, p Pinger) fiber.Map {
	if p == nil {
		return fiber.Map{"status": "disabled"}
	}
	if err := p.Ping(ctx); err != nil {
		return fiber.Map{"status": "unavailable", "error": err.Error()}
	}
	return fiber.Map{"status": "ok"}
}
