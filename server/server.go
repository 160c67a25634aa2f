// Package server exposes the dataset registry over a read-only HTTP API.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mirdata/logger"

	"github.com/gorilla/mux"
)

// NewRouter wires the API routes to h.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request served",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Duration("elapsed", time.Since(start)))
		})
	})

	router.HandleFunc("/datasets", h.ListDatasets).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}", h.GetDataset).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}/tracks", h.ListTracks).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}/tracks/{id}", h.GetTrack).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}/tracks/{id}/jams", h.GetTrackJAMS).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}/validate", h.Validate).Methods(http.MethodPost)
	router.HandleFunc("/datasets/{name}/validations", h.ListValidations).Methods(http.MethodGet)
	router.HandleFunc("/datasets/{name}/validations/{id}", h.GetValidation).Methods(http.MethodGet)

	return router
}

// Start serves h on addr until SIGINT or SIGTERM, then shuts down gracefully.
func Start(addr string, h *Handler) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // validation of large datasets runs in the request
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-stop:
	}
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
