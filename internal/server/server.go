package server

import (
	"ctchen222/rps-arena/internal/api/controller"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// Server is the operator HTTP API.
type Server struct {
	engine *gin.Engine
}

// NewServer routes the operator API to ctrl and /events to spectators. A nil
// spectators handler leaves /events unrouted.
func NewServer(ctrl *controller.ArenaController, spectators http.Handler) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), traceRequests())

	engine.GET("/health", ctrl.Health)

	bots := engine.Group("/bots")
	bots.GET("", ctrl.ListBots)
	bots.POST("/ping", ctrl.Ping)
	bots.PUT("/timeout", ctrl.SetTimeout)
	bots.DELETE("/timeout", ctrl.ClearTimeout)

	engine.POST("/battles", ctrl.Battle)

	if spectators != nil {
		engine.GET("/events", gin.WrapH(spectators))
	}

	return &Server{engine: engine}
}

// Engine returns the handler to serve.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// traceRequests opens a span per request and logs it once handled.
func traceRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "server."+c.Request.Method+" "+c.FullPath(), trace.WithAttributes(
			attribute.String("http.url", c.Request.URL.String()),
			attribute.String("http.method", c.Request.Method),
		))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		slog.DebugContext(ctx, "http request",
			"http.method", c.Request.Method,
			"http.path", c.Request.URL.Path,
			"http.status_code", status,
			"duration", time.Since(start),
		)
	}
}
