package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// QueueHandler exposes the test-queue endpoints.
type QueueHandler struct {
	queue *service.QueueService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// AddMessage handles POST /test-queue/add.
func (h *QueueHandler) AddMessage(c *fiber.Ctx) error {
	var req dto.AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	result, err := h.queue.AddMessage(c.Context(), req.Message, req.Metadata)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetJobStatus handles GET /test-queue/job/:id. The service reports
// absence; this handler turns it into a 404.
func (h *QueueHandler) GetJobStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	status, found, err := h.queue.GetJobStatus(c.Context(), id)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NewNotFound(fmt.Sprintf("job with ID %s", id), nil)
	}
	return c.JSON(status)
}

// GetQueueStats handles GET /test-queue/stats.
func (h *QueueHandler) GetQueueStats(c *fiber.Ctx) error {
	stats, err := h.queue.GetQueueStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
