package run

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"jobscout/internal/core/job"
	"jobscout/internal/core/submission"
)

type createRequest struct {
	SubmissionID string `json:"submissionId" validate:"required,uuid"`
}

var validate = validator.New()

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func errorBody(msg string) fiber.Map { return fiber.Map{"success": false, "error": msg} }

func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid body"))
	}
	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("submissionId must be a valid id"))
	}
	runID, err := h.svc.Enqueue(c.UserContext(), req.SubmissionID)
	if errors.Is(err, submission.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("submission not_found"))
	}
	if err != nil {
		h.svc.log.LogErrorf("enqueue run for %s: %v", req.SubmissionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "runId": runID, "status": job.StatusPending})
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("runId")
	j, err := h.svc.Jobs.GetJobStatus(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("not_found"))
	}
	resp := fiber.Map{
		"success":      true,
		"runId":        id,
		"status":       j.Status,
		"submissionId": j.SubmissionID,
	}
	if j.Error != "" {
		resp["error"] = j.Error
	}
	if j.Status == job.StatusCompleted && j.Results.Summary != nil {
		resp["data"] = j.Results.Summary
	}
	return c.JSON(resp)
}
