package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/orgoj/rotalog/internal/config"
	"github.com/orgoj/rotalog/internal/handler"
	"github.com/orgoj/rotalog/internal/iputil"
	"github.com/orgoj/rotalog/internal/logger"
)

// Dependencies holds the dependencies needed by the server.
type Dependencies struct {
	Config     *config.AdminConfig
	Dispatcher *logger.Dispatcher
}

// Server is the admin HTTP endpoint.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	dispatcher *logger.Dispatcher
	allowList  *iputil.AllowList

	limiters   map[string]*rate.Limiter
	limiterMu  sync.Mutex
	rateLimit  rate.Limit
	burstLimit int
}

// NewServer creates a new server instance with its dependencies.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: Config dependency cannot be nil")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("server: Dispatcher dependency cannot be nil")
	}

	allowList, err := iputil.NewAllowList(deps.Config.AllowedIPs)
	if err != nil {
		return nil, err
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:     router,
		dispatcher: deps.Dispatcher,
		allowList:  allowList,
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Inf,
	}
	if deps.Config.RateLimit > 0 {
		// requests per minute -> per second, bursts up to the per-minute limit
		s.rateLimit = rate.Limit(float64(deps.Config.RateLimit) / 60.0)
		s.burstLimit = deps.Config.RateLimit
	}

	router.Use(s.accessLogMiddleware(), s.allowListMiddleware())
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              deps.Config.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	h := handler.NewAdminHandlers(s.dispatcher)

	s.router.GET("/health", handler.Health)
	s.router.HEAD("/health", handler.Health)
	s.router.GET("/version", handler.VersionHandler)
	s.router.GET("/levels", h.GetLevels)

	mutating := s.router.Group("/")
	if s.rateLimit != rate.Inf {
		mutating.Use(s.rateLimitMiddleware())
	}
	mutating.PUT("levels/:target", h.SetLevel)
	mutating.POST("flush", h.Flush)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// accessLogMiddleware records every request through the dispatcher at debug level.
func (s *Server) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		_ = s.dispatcher.Debugf("admin %s %s -> %d (%s) from %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.Request.RemoteAddr)
	}
}

func (s *Server) allowListMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.allowList.Allows(c.Request) {
			_ = s.dispatcher.Warnf("admin request from %s rejected by allow list", c.Request.RemoteAddr)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// rateLimitMiddleware limits mutating requests per client IP.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := iputil.RemoteIP(c.Request).String()

		s.limiterMu.Lock()
		limiter, exists := s.limiters[ip]
		if !exists {
			limiter = rate.NewLimiter(s.rateLimit, s.burstLimit)
			s.limiters[ip] = limiter
		}
		s.limiterMu.Unlock()

		if !limiter.Allow() {
			_ = s.dispatcher.Infof("admin rate limit exceeded for IP: %s", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	_ = s.dispatcher.Infof("admin server listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
