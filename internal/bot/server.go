package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shpitdev/commsync-todo/internal/util"
	"go.uber.org/zap"
)

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse carries every message the command produced, in order.
type MessageResponse struct {
	Replies []string `json:"replies"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type Options struct {
	Logger *zap.Logger

	// Registry receives the bot's command counter and backs GET /metrics. When nil the
	// metrics endpoint is not mounted.
	Registry *prometheus.Registry
}

// Server is the bot's HTTP surface.
type Server struct {
	echo     *echo.Echo
	flows    Flows
	logger   *zap.Logger
	commands *prometheus.CounterVec
}

func NewServer(flows Flows, opts Options) (*Server, error) {
	if flows == nil {
		return nil, errors.New("flows cannot be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		flows:  flows,
		logger: logger,
	}
	var reg prometheus.Registerer
	if opts.Registry != nil {
		reg = opts.Registry
	}
	s.commands = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "todobot_commands_total",
		Help: "Total number of bot commands handled, by command and result",
	}, []string{"command", "result"})

	e.GET("/health", s.handleHealth)
	e.POST("/api/messages", s.handleMessage)
	if opts.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}
	return s, nil
}

// ServeHTTP lets the server be used as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid message request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cmd, arg := Route(req.Text)
	var replies []string
	notify := func(msg string) { replies = append(replies, util.RedactSecrets(msg)) }

	err := Dispatch(c.Request().Context(), s.flows, cmd, arg, notify)
	result := "ok"
	if err != nil {
		result = "error"
		s.logger.Warn("command failed",
			zap.String("command", cmd),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.String("error", util.RedactSecrets(err.Error())),
		)
	}
	s.commands.WithLabelValues(cmd, result).Inc()

	if replies == nil {
		replies = []string{}
	}
	return c.JSON(http.StatusOK, MessageResponse{Replies: replies})
}

// Start listens on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
