package handlers

import (
	"errors"
	"path"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/ats-scanner/internal/models"
	"alfredoptarigan/ats-scanner/internal/services"
)

type SessionHandler struct {
	registry   services.SessionRegistry
	aggregator *services.Aggregator
	reportsURL string
}

func NewSessionHandler(registry services.SessionRegistry, aggregator *services.Aggregator, reportsURL string) *SessionHandler {
	return &SessionHandler{
		registry:   registry,
		aggregator: aggregator,
		reportsURL: reportsURL,
	}
}

func (h *SessionHandler) workflow(c *fiber.Ctx) (*services.Workflow, error) {
	return h.registry.Get(c.Params("id"))
}

// HandleCreate handles POST /sessions
func (h *SessionHandler) HandleCreate(c *fiber.Ctx) error {
	wf := h.registry.Create(ClientID(c))
	return c.Status(fiber.StatusCreated).JSON(models.SessionResponse{
		Session: wf.Snapshot(c.UserContext()),
	})
}

// HandleGet handles GET /sessions/:id
func (h *SessionHandler) HandleGet(c *fiber.Ctx) error {
	wf, err := h.workflow(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(models.SessionResponse{Session: wf.Snapshot(c.UserContext())})
}

// HandleDelete handles DELETE /sessions/:id
func (h *SessionHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.registry.Delete(c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleReset handles POST /sessions/:id/reset
func (h *SessionHandler) HandleReset(c *fiber.Ctx) error {
	wf, err := h.workflow(c)
	if err != nil {
		return writeError(c, err)
	}

	snap, err := wf.Reset()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(models.SessionResponse{Session: snap})
}

// HandleSave handles POST /sessions/:id/save
func (h *SessionHandler) HandleSave(c *fiber.Ctx) error {
	wf, err := h.workflow(c)
	if err != nil {
		return writeError(c, err)
	}

	snap, err := wf.Save(c.UserContext())
	if err != nil {
		var persistErr *services.PersistenceError
		if errors.As(err, &persistErr) {
			return c.Status(statusFor(err)).JSON(models.NoticeResponse{Message: snap.Notice, Session: snap})
		}
		return writeError(c, err)
	}
	return c.JSON(models.NoticeResponse{Message: snap.Notice, Session: snap})
}

// HandleLoad handles POST /sessions/:id/load
func (h *SessionHandler) HandleLoad(c *fiber.Ctx) error {
	wf, err := h.workflow(c)
	if err != nil {
		return writeError(c, err)
	}

	snap, err := wf.LoadSaved(c.UserContext())
	if err != nil {
		var persistErr *services.PersistenceError
		if errors.As(err, &persistErr) {
			return c.Status(statusFor(err)).JSON(models.NoticeResponse{Message: snap.Notice, Session: snap})
		}
		return writeError(c, err)
	}
	return c.JSON(models.SessionResponse{Session: snap})
}

// HandleReport handles GET /sessions/:id/report
func (h *SessionHandler) HandleReport(c *fiber.Ctx) error {
	wf, err := h.workflow(c)
	if err != nil {
		return writeError(c, err)
	}

	record, err := wf.Record()
	if err != nil {
		return writeError(c, err)
	}

	response := models.ReportResponse{
		ID:        wf.ID(),
		Status:    string(models.StatusSuccess),
		Result:    record,
		Dashboard: h.aggregator.Aggregate(record),
	}
	if record.ReportFile != "" && h.reportsURL != "" {
		response.ReportURL = path.Join(h.reportsURL, record.ReportFile)
	}
	return c.JSON(response)
}

// HandleEvents handles GET /sessions/:id/events?since=N
func (h *SessionHandler) HandleEvents(c *fiber.Ctx) error {
	wf, err := h.workflow(c)
	if err != nil {
		return writeError(c, err)
	}

	since := int64(c.QueryInt("since", 0))
	events := wf.Events().Since(since)
	return c.JSON(fiber.Map{
		"events":  events,
		"lastSeq": wf.Events().LastSeq(),
	})
}
