package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/ats-scanner/internal/models"
	"alfredoptarigan/ats-scanner/internal/services"
)

// ResumeFormField is the multipart field carrying the uploaded resume.
const ResumeFormField = "resume"

type SubmitHandler struct {
	registry    services.SessionRegistry
	maxFileSize int64
}

func NewSubmitHandler(registry services.SessionRegistry, maxFileSize int64) *SubmitHandler {
	return &SubmitHandler{
		registry:    registry,
		maxFileSize: maxFileSize,
	}
}

// HandleSubmit handles POST /sessions/:id/submit
func (h *SubmitHandler) HandleSubmit(c *fiber.Ctx) error {
	wf, err := h.registry.Get(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	header, err := c.FormFile(ResumeFormField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume file is required",
			"code":  fiber.StatusBadRequest,
		})
	}

	snap, err := wf.Submit(services.NewMultipartSource(header, h.maxFileSize))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(models.SessionResponse{Session: snap})
}
