package dsbplan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter registers the REST endpoints on a gin engine.
func NewRouter(h *Handlers) *gin.Engine {
	if h.started.IsZero() {
		h.started = time.Now()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger()))

	r.GET("/health", h.handleHealth)
	api := r.Group("/api")
	api.GET("/substitution/plans", h.handleSubstitutionPlans)
	api.GET("/dsb/timetables", h.handleTimeTables)
	api.GET("/dsb/news", h.handleNews)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// StartServer serves handler on port in the background.
func StartServer(port int, handler http.Handler, logger *zap.Logger) *http.Server {
	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("server listening", zap.String("addr", addr))
	return server
}

// HandleGracefulShutdown blocks until SIGINT/SIGTERM or ctx is done, then
// calls stop and shuts the server down within ten seconds.
func HandleGracefulShutdown(ctx context.Context, server *http.Server, stop func(), logger *zap.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}
	if stop != nil {
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		} else {
			logger.Info("server shut down successfully")
		}
	}
}
