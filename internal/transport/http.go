package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/avvvet/hotel-concierge/internal/config"
	"github.com/avvvet/hotel-concierge/internal/handlers"
	"github.com/avvvet/hotel-concierge/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HTTPServer struct {
	engine      *gin.Engine
	server      *http.Server
	chat        ChatService
	logger      *zap.Logger
	turnTimeout time.Duration

	mu     sync.Mutex
	checks map[string]HealthCheck
}

func NewHTTPServer(cfg *config.Config, chat ChatService, logger *zap.Logger) *HTTPServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		engine:      gin.New(),
		chat:        chat,
		logger:      logger,
		turnTimeout: cfg.TurnTimeout,
		checks:      make(map[string]HealthCheck),
	}

	s.engine.Use(gin.Recovery(), requestLogger(logger))
	s.engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/v1")
	{
		if cfg.RateLimitPerMin > 0 {
			api.Use(newIPRateLimiter(cfg.RateLimitPerMin).middleware(logger))
		}
		api.POST("/chat", s.postChat)
		api.GET("/sessions/:id", s.getSession)
		api.DELETE("/sessions/:id", s.deleteSession)
		api.GET("/ws", gin.WrapH(NewWSHandler(chat, cfg.CORSOrigins, s.turnTimeout, logger)))
	}

	s.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}

// AddHealthCheck registers a dependency check for /healthz.
func (s *HTTPServer) AddHealthCheck(name string, check HealthCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) postChat(c *gin.Context) {
	var request models.ChatRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("", models.ErrorParseError, "invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.turnTimeout)
	defer cancel()

	response, err := s.chat.ProcessMessage(ctx, &request)
	if err != nil {
		s.logger.Error("failed to process message", zap.String("session_id", request.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse(request.SessionID, models.ErrorInternal, err.Error()))
		return
	}

	status := http.StatusOK
	if response.Status == models.StatusError && response.ErrorCode != nil && *response.ErrorCode == models.ErrorInvalidRequest {
		status = http.StatusBadRequest
	}
	c.JSON(status, response)
}

func (s *HTTPServer) getSession(c *gin.Context) {
	snapshot, err := s.chat.Snapshot(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, handlers.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case err != nil:
		s.logger.Error("failed to load session", zap.String("session_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
	default:
		c.JSON(http.StatusOK, snapshot)
	}
}

func (s *HTTPServer) deleteSession(c *gin.Context) {
	if err := s.chat.ResetSession(c.Request.Context(), c.Param("id")); err != nil {
		s.logger.Error("failed to reset session", zap.String("session_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) health(c *gin.Context) {
	s.mu.Lock()
	checks := make(map[string]HealthCheck, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for name, check := range checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newIPRateLimiter(perMin int) *ipRateLimiter {
	return &ipRateLimiter{limiters: make(map[string]*rate.Limiter), perMin: perMin}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[ip] = limiter
	}
	return limiter
}

func (l *ipRateLimiter) middleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.get(ip).Allow() {
			logger.Warn("rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}
