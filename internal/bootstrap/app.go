package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/yanqian/cyclegpt/internal/infra/config"
)

const (
	minShutdownTimeout = 5 * time.Second
	maxShutdownTimeout = 30 * time.Second
)

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server}
}

// Run binds the listener, serves until ctx is cancelled and then drains
// in-flight requests. Bind failures are returned before serving starts.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.logger.Info("http server started",
		"address", ln.Addr().String(),
		"predict_base_url", a.cfg.Dashboard.PredictBaseURL,
		"chat_url", a.cfg.Dashboard.ChatURL,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// shutdownTimeout lets a chat request that is already waiting on the LLM finish.
func (a *App) shutdownTimeout() time.Duration {
	d := a.server.WriteTimeout
	if d < minShutdownTimeout {
		return minShutdownTimeout
	}
	if d > maxShutdownTimeout {
		return maxShutdownTimeout
	}
	return d
}
