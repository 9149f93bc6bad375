// Package api implements the control-plane HTTP API (CreateWorkflow,
// ListWorkflows, DeleteWorkflow, TriggerWorkflow, ListExecutions) and the
// inbound channel webhook endpoints (web widget, WhatsApp) on top of
// github.com/gin-gonic/gin. Grounded structurally on
// None9527-NGOClaw/gateway/internal/interfaces/http's server+handlers
// split: a thin *gin.Engine wrapper owning lifecycle (Start/Stop), with
// one handler struct per concern registering its own routes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/convoflow/workflow-engine/internal/dispatch"
	"github.com/convoflow/workflow-engine/internal/store"
	"github.com/convoflow/workflow-engine/internal/telemetry"
)

// Config configures the HTTP listener.
type Config struct {
	Host string
	Port int
	// Mode is gin's ReleaseMode/DebugMode selector; empty defaults to
	// release.
	Mode string
	// WhatsAppVerifyToken is checked against the hub.verify_token query
	// parameter on the WhatsApp webhook verification handshake.
	WhatsAppVerifyToken string
}

// Server owns the control-plane/webhook HTTP listener.
type Server struct {
	http *http.Server
	log  telemetry.Logger
}

// New builds a Server wired to the given store repositories and
// Dispatcher. Any repository left nil simply has its corresponding route
// group unavailable rather than panicking — useful for a "worker" process
// that never mounts internal/api at all.
func New(cfg Config, d *dispatch.Dispatcher, workflows store.Workflows, executions store.Executions, log telemetry.Logger) *Server {
	if log == nil {
		log = telemetry.NewNoopLogger()
	}
	if cfg.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	if workflows != nil && executions != nil {
		wh := &workflowHandler{workflows: workflows, executions: executions, dispatcher: d, log: log}
		wh.register(router.Group("/v1"))
	}

	cw := &channelWebhookHandler{dispatcher: d, verifyToken: cfg.WhatsAppVerifyToken, log: log}
	cw.register(router.Group("/webhooks"))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		http: &http.Server{Addr: addr, Handler: router},
		log:  log,
	}
}

// Start begins serving in the background; errors after shutdown are
// swallowed, matching http.Server's own ErrServerClosed convention.
func (s *Server) Start(ctx context.Context) {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error(ctx, "api: server error", "error", err.Error())
		}
	}()
}

// Stop gracefully drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler exposes the underlying http.Handler for tests that want to
// drive routes through httptest without binding a real port.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func requestLogger(log telemetry.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "api: request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
