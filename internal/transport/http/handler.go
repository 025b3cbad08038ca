package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medassist/orchestrator/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat/:session_id", h.Chat)
	e.POST("/v1/chat/:session_id/reset", h.ResetChat)
	e.GET("/v1/conversations/:conversation_id/messages", h.GetMessages)
	e.POST("/v1/diagnose", h.Diagnose)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat advances a conversation by one user utterance.
// POST /v1/chat/:session_id
func (h *Handler) Chat(c echo.Context) error {
	sessionID := c.Param("session_id")

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	out := h.service.HandleTurn(c.Request().Context(), sessionID, req.Message)
	return c.JSON(http.StatusOK, out)
}

// ResetChat wipes the session state for a session id.
// POST /v1/chat/:session_id/reset
func (h *Handler) ResetChat(c echo.Context) error {
	h.service.Reset(c.Param("session_id"))
	return c.NoContent(http.StatusNoContent)
}

// GetMessages retrieves the durable message log for a conversation.
// GET /v1/conversations/:conversation_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	conversationID := c.Param("conversation_id")
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	messages, err := h.service.GetMessages(c.Request().Context(), conversationID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

type diagnoseRequest struct {
	Symptoms []string `json:"symptoms"`
}

// Diagnose runs the ranked any-of match directly on a symptom phrase list.
// POST /v1/diagnose
func (h *Handler) Diagnose(c echo.Context) error {
	var req diagnoseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Symptoms) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symptoms are required"})
	}

	matches, err := h.service.Rank(c.Request().Context(), req.Symptoms)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"matches": matches,
	})
}
