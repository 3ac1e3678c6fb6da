// Package server exposes a loaded sales pipeline artifact over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Predictor scores a single row given by column name
type Predictor interface {
	PredictFields(fields map[string]float64) (float64, error)
}

// Server routes requests to a predictor loaded once at startup. The predictor is only read,
// so requests are served concurrently without locking.
type Server struct {
	predictor Predictor
}

// New creates a server around a loaded predictor
func New(p Predictor) *Server {
	return &Server{predictor: p}
}

// Router registers the liveness and predict routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors.Default())

	r.GET("/", s.Home)
	r.POST("/predict", s.Predict)
	return r
}

// Home is the liveness check
func (s *Server) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API is running"})
}

// Predict scores a single request. Binding failures are reported as 400 and prediction
// failures as 500, both with an error body.
func (s *Server) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %s", err)})
		return
	}

	prediction, err := s.predict(req)
	if err != nil {
		slog.Error("prediction failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Prediction failed: %s", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prediction": prediction})
}

// predict converts a panic inside the predictor into an error so one bad request never
// takes down the process
func (s *Server) predict(req PredictRequest) (prediction float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return s.predictor.PredictFields(req.Fields())
}

// Run serves handler on addr until ctx is cancelled and then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving sales forecast api", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("shutting down sales forecast api")
		return srv.Shutdown(shutdownCtx)
	}
}
