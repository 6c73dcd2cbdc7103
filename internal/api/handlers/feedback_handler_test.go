package handlers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/docuchat/backend/internal/feedback"
)

func feedbackApp() *fiber.App {
	app := fiber.New()
	// Empty analytics URL keeps forwarding a no-op.
	handler := NewFeedbackHandler(feedback.NewForwarder("", 1))
	app.Post("/api/feedback", handler.HandleFeedback)
	return app
}

func TestFeedbackAccepted(t *testing.T) {
	app := feedbackApp()

	for _, value := range []int{1, -1} {
		resp := postJSON(t, app, "/api/feedback", map[string]interface{}{
			"trace_id": "trace-1",
			"value":    value,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode, "value %d", value)
	}
}

func TestFeedbackRejectsInvalidValue(t *testing.T) {
	app := feedbackApp()

	for _, value := range []int{0, 2, -5} {
		resp := postJSON(t, app, "/api/feedback", map[string]interface{}{
			"trace_id": "trace-1",
			"value":    value,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "value %d", value)
	}
}

func TestFeedbackRequiresTraceID(t *testing.T) {
	app := feedbackApp()

	resp := postJSON(t, app, "/api/feedback", map[string]interface{}{
		"value": 1,
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
