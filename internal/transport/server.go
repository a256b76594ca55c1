package transport

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/hme-generator/internal/handler"
	"github.com/kursadbilgin/hme-generator/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ServerDeps are the optional backends reported by /readyz.
type ServerDeps struct {
	Metrics *observability.Metrics
	SQLDB   *sql.DB
	Redis   *redis.Client
}

// MetricsServer serves /metrics, /livez and /readyz while a run is in progress.
type MetricsServer struct {
	app    *fiber.App
	logger *zap.Logger
}

func NewMetricsServer(deps ServerDeps, logger *zap.Logger) (*MetricsServer, error) {
	if deps.Metrics == nil {
		return nil, errors.New("metrics are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "hme-generator",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
	})
	app.Use(deps.Metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, deps.SQLDB, deps.Redis)
	handler.RegisterMetricsRoutes(app, deps.Metrics.Handler())

	return &MetricsServer{app: app, logger: logger}, nil
}

func (s *MetricsServer) App() *fiber.App {
	return s.app
}

// Start listens on addr in the background. The returned channel receives the
// listener error, if any, and is closed when the server stops.
func (s *MetricsServer) Start(addr string) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("metrics server listening", zap.String("addr", addr))
		if err := s.app.Listen(addr); err != nil {
			s.logger.Error("metrics server stopped", zap.Error(err))
			errCh <- err
		}
	}()
	return errCh
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
