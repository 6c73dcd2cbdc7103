package handlers

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/chat"
	"github.com/docuchat/backend/pkg/logger"
)

type ChatHandler struct {
	streamer *chat.Streamer
}

func NewChatHandler(streamer *chat.Streamer) *ChatHandler {
	return &ChatHandler{streamer: streamer}
}

// HandleChat answers a question over SSE. The response body is produced by
// the streamer through a pull-based writer: the client consuming slowly
// suspends generation between frames.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg": "Missing question from request JSON",
		})
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	question := req.Question

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx := context.Background()

		emit := func(ev chat.Event) error {
			frame, err := ev.Encode()
			if err != nil {
				return err
			}
			if _, err := w.WriteString(frame); err != nil {
				return err
			}
			// Flush per frame; a write error here is the disconnect signal.
			return w.Flush()
		}

		if err := h.streamer.Ask(ctx, question, sessionID, emit); err != nil {
			logger.Error("Chat stream aborted",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}))

	return nil
}
