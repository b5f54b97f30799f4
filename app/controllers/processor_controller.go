package controllers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
	"github.com/ManuelReschke/TrackFox/internal/pkg/processor"
)

// EventProcessor runs phase two for one stored raw event.
type EventProcessor interface {
	Process(ctx context.Context, id uint) (*processor.Result, error)
}

type ProcessorController struct {
	processor EventProcessor
}

func NewProcessorController(p EventProcessor) *ProcessorController {
	return &ProcessorController{processor: p}
}

type processRequest struct {
	EventID uint `json:"event_id"`
}

// HandleProcess is the internal endpoint the HTTP dispatcher calls.
func (pc *ProcessorController) HandleProcess(c *fiber.Ctx) error {
	var req processRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.EventID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "event_id is required"})
	}

	ctx := c.UserContext()
	result, err := pc.processor.Process(ctx, req.EventID)
	if err != nil {
		logger.FromContext(ctx).Warn("processor call failed",
			zap.Uint("event_id", req.EventID),
			zap.Error(err),
		)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status":   "processed",
		"event_id": req.EventID,
		"result":   result,
	})
}
