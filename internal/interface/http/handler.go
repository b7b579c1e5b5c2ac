package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cyclegpt/internal/domain/chat"
	"github.com/yanqian/cyclegpt/internal/domain/cycle"
)

// Handler wires the JSON API to the domain services.
type Handler struct {
	cycleSvc cycle.Service
	chatSvc  chat.Service
	logger   *slog.Logger
}

// NewHandler constructs the API handler.
func NewHandler(cycleSvc cycle.Service, chatSvc chat.Service, logger *slog.Logger) *Handler {
	return &Handler{
		cycleSvc: cycleSvc,
		chatSvc:  chatSvc,
		logger:   logger.With("component", "http.handler"),
	}
}

// Predict returns the next cycle forecast for the user_id query parameter.
func (h *Handler) Predict(c *gin.Context) {
	userID, err := parseUserID(c.Query("user_id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "user_id must be a positive integer", err))
		return
	}

	prediction, err := h.cycleSvc.Predict(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// Timeline returns the forecast laid out as four phase segments.
func (h *Handler) Timeline(c *gin.Context) {
	userID, err := parseUserID(c.Query("user_id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "user_id must be a positive integer", err))
		return
	}

	timeline, err := h.cycleSvc.Timeline(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.JSON(http.StatusOK, timeline)
}

// Chat answers a menstrual health question.
func (h *Handler) Chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.chatSvc.Ask(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
