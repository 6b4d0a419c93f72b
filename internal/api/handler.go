package api

import (
	"net/http"
	"time"

	"banksim/internal/monitor"
	"banksim/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires HTTP endpoints around a session.Manager.
type Server struct {
	Router  *gin.Engine
	Manager *session.Manager
	Metrics *monitor.Metrics
	Reg     prometheus.Gatherer

	JWTSecret string
}

// NewServer builds the router and middleware stack (order matters).
func NewServer(mgr *session.Manager, metrics *monitor.Metrics, reg prometheus.Gatherer, jwtSecret string) *Server {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(nil))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{Router: r, Manager: mgr, Metrics: metrics, Reg: reg, JWTSecret: jwtSecret}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws/:id", s.websocket)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Reg, promhttp.HandlerOpts{})))

	v1 := s.Router.Group("/api/v1/sessions")
	{
		v1.GET("/:id/status", s.status)
		v1.GET("/:id/network", s.network)

		protected := v1.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("", s.initSession)
			protected.POST("/:id/banks", s.createBank)
			protected.PUT("/:id/banks/:bankId", s.updateBank)
			protected.POST("/:id/connections", s.createConnection)
			protected.POST("/:id/markets", s.createMarket)

			protected.POST("/:id/start", s.start)
			protected.POST("/:id/pause", s.pause)
			protected.POST("/:id/resume", s.resume)
			protected.POST("/:id/stop", s.stop)
			protected.POST("/:id/step", s.step)
			protected.POST("/:id/control", s.control)
			protected.DELETE("/:id", s.destroy)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start runs the HTTP server on addr.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

// writeSessionError maps a session package error to an HTTP status and
// {error_kind, reason, state_before} body.
func writeSessionError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case isNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error_kind": "not_found", "reason": err.Error()})
	case isPrecondition(err):
		var before string
		if te, ok := asTransitionError(err); ok {
			before = string(te.StateBefore)
		}
		c.JSON(http.StatusConflict, gin.H{"error_kind": "precondition", "reason": err.Error(), "state_before": before})
	case isInboxFull(err):
		c.JSON(http.StatusTooManyRequests, gin.H{"error_kind": "resource_exhaustion", "reason": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": err.Error()})
	}
}
