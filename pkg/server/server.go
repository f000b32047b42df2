// Package server exposes prediction, retraining and the price band over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"houseprice/pkg/artifact"
	"houseprice/pkg/config"
	"houseprice/pkg/logger"
	"houseprice/pkg/metrics"
	"houseprice/pkg/predict"
	"houseprice/pkg/schema"
	"houseprice/pkg/train"
)

const (
	serviceName           = "house-price-ml"
	maxPredictBody        = 1 << 20
	serverShutdownTimeout = 5 * time.Second
)

// Predictor scores requests against the served model.
type Predictor interface {
	Predict(ctx context.Context, req *schema.PredictRequest) (*predict.Prediction, error)
	Get() *artifact.Artifact
}

// Trainer fits a new model from an uploaded CSV.
type Trainer interface {
	FitReader(ctx context.Context, r io.Reader) (*train.Result, error)
}

// Server wires the HTTP routes to the predictor and trainer.
type Server struct {
	cfg       config.ServerConfig
	predictor Predictor
	trainer   Trainer
	registry  *metrics.Registry
	log       logger.Logger
	router    *gin.Engine
}

// New builds the router. registry may be nil, in which case /metrics is not
// served.
func New(cfg config.ServerConfig, p Predictor, t Trainer, registry *metrics.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetDefault()
	}
	s := &Server{
		cfg:       cfg,
		predictor: p,
		trainer:   t,
		registry:  registry,
		log:       log,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(s.log))
	r.Use(CORSMiddleware(s.cfg.CORSOrigins))

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.POST("/predict", s.predict)
	r.POST("/retrain", s.retrain)
	r.POST("/band", s.band)
	if s.registry != nil {
		r.GET("/metrics", gin.WrapH(s.registry.Handler()))
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}
	s.log.Debug("Received shutdown signal, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("Server shutdown completed successfully")
	return nil
}
