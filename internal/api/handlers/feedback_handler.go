package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/feedback"
	"github.com/docuchat/backend/internal/metrics"
	"github.com/docuchat/backend/pkg/logger"
)

type FeedbackHandler struct {
	forwarder *feedback.Forwarder
}

func NewFeedbackHandler(forwarder *feedback.Forwarder) *FeedbackHandler {
	return &FeedbackHandler{forwarder: forwarder}
}

// HandleFeedback records a thumbs up/down vote against a generation trace.
// The vote is counted locally and relayed to analytics off the request path;
// a relay failure never fails the request.
func (h *FeedbackHandler) HandleFeedback(c *fiber.Ctx) error {
	var req struct {
		TraceID string `json:"trace_id"`
		Value   int    `json:"value"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg": "Invalid request body",
		})
	}

	if req.TraceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg": "Missing trace_id from request JSON",
		})
	}

	if req.Value != 1 && req.Value != -1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg": "Feedback value must be 1 or -1",
		})
	}

	metrics.FeedbackTotal.WithLabelValues(strconv.Itoa(req.Value)).Inc()

	go func(traceID string, value int) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.forwarder.Forward(ctx, traceID, value); err != nil {
			logger.Warn("Feedback forwarding failed",
				zap.String("trace_id", traceID),
				zap.Error(err),
			)
		}
	}(req.TraceID, req.Value)

	return c.JSON(fiber.Map{
		"status": "accepted",
	})
}
