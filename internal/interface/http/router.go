package http

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cyclegpt/internal/infra/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, dash *DashboardHandler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	router.GET("/healthz", handler.Healthz)
	router.GET("/predict", handler.Predict)
	router.POST("/chat", handler.Chat)

	api := router.Group("/api/v1")
	{
		api.GET("/predict", handler.Predict)
		api.GET("/timeline", handler.Timeline)
		api.POST("/chat", handler.Chat)
	}

	router.GET("/", dash.Index)
	board := router.Group("/dashboard")
	{
		board.POST("/predict", dash.Predict)
		board.POST("/ask", dash.Ask)
		board.GET("/chart.png", dash.Chart)
		board.GET("/timeline", dash.Timeline)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withCORS(withRetry(router, cfg.HTTP.Retry, handler.logger), cfg.HTTP.CORSOrigins),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
