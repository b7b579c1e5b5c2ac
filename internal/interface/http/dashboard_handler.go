package http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cyclegpt/internal/domain/cycle"
	"github.com/yanqian/cyclegpt/internal/domain/dashboard"
)

// SessionCookie names the cookie carrying the signed dashboard session id.
const SessionCookie = "cyclegpt_session"

// ChartRenderer draws a timeline image.
type ChartRenderer interface {
	RenderPNG(w io.Writer, tl cycle.Timeline) error
}

// DashboardHandler serves the server rendered dashboard.
type DashboardHandler struct {
	svc      *dashboard.Service
	sessions *dashboard.SessionStore
	signer   *dashboard.TokenSigner
	renderer ChartRenderer
	logger   *slog.Logger
}

// NewDashboardHandler wires the dashboard pages.
func NewDashboardHandler(svc *dashboard.Service, sessions *dashboard.SessionStore, signer *dashboard.TokenSigner, renderer ChartRenderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		svc:      svc,
		sessions: sessions,
		signer:   signer,
		renderer: renderer,
		logger:   logger.With("component", "http.dashboard"),
	}
}

// Index renders the dashboard page for the caller's session.
func (h *DashboardHandler) Index(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "dashboard.tmpl", sess.Snapshot())
}

// Predict fetches a forecast for the submitted user id and returns to the page.
func (h *DashboardHandler) Predict(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	userID, err := parseUserID(c.PostForm("user_id"))
	if err != nil {
		h.logger.Warn("ignoring invalid user id", "session", sess.ID, "value", c.PostForm("user_id"))
	} else {
		h.svc.Predict(c.Request.Context(), sess, userID)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Ask forwards the submitted question to the chatbot and returns to the page.
func (h *DashboardHandler) Ask(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	h.svc.Ask(c.Request.Context(), sess, c.PostForm("question"))
	c.Redirect(http.StatusSeeOther, "/")
}

// Chart streams the session timeline as a PNG image.
func (h *DashboardHandler) Chart(c *gin.Context) {
	timeline, ok := h.timeline(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.RenderPNG(&buf, timeline); err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "chart_failed", "failed to render chart", err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Timeline returns the session timeline as JSON.
func (h *DashboardHandler) Timeline(c *gin.Context) {
	timeline, ok := h.timeline(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, timeline)
}

func (h *DashboardHandler) timeline(c *gin.Context) (cycle.Timeline, bool) {
	sess, ok := h.session(c)
	if !ok {
		return cycle.Timeline{}, false
	}
	snap := sess.Snapshot()
	if snap.Timeline == nil {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "prediction_missing", "no prediction loaded for this session", nil))
		return cycle.Timeline{}, false
	}
	return *snap.Timeline, true
}

// session resolves the caller's session from the cookie, starting a new one
// when the cookie is missing, invalid or points at an evicted session. The
// cookie is re-signed on every resolve so its expiry follows the idle timer.
func (h *DashboardHandler) session(c *gin.Context) (*dashboard.Session, bool) {
	var sess *dashboard.Session
	if raw, err := c.Cookie(SessionCookie); err == nil && strings.TrimSpace(raw) != "" {
		id, err := h.signer.Parse(raw)
		if err != nil {
			h.logger.Debug("discarding session cookie", "error", err)
		} else if found, ok := h.sessions.Get(id); ok {
			sess = found
		}
	}
	if sess == nil {
		sess = h.sessions.Create()
	}

	token, err := h.signer.Issue(sess.ID)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "session_failed", "failed to start session", err))
		return nil, false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, 0, "/", "", c.Request.TLS != nil, true)
	return sess, true
}
