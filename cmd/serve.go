package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/orchestrator"
)

var servePort int

type processRequest struct {
	Text      string `json:"text"`
	ImagePath string `json:"image_path"`
	Location  string `json:"location"`
}

func (r processRequest) input() orchestrator.Input {
	return orchestrator.Input{
		ImagePath: r.ImagePath,
		Text:      r.Text,
		Location:  r.Location,
	}
}

// newRouter wires the HTTP surface over one orchestrator.
func newRouter(o *orchestrator.Orchestrator) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Streams progress events as SSE; the last event carries the full
	// report.
	r.Post("/api/process", func(w http.ResponseWriter, req *http.Request) {
		var in processRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		for ev := range o.Process(req.Context(), in.input()) {
			buf, err := json.Marshal(ev)
			if err != nil {
				zap.L().Error("serve: marshal event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", buf)
			flusher.Flush()
		}
	})

	// Blocking variant for clients that only want the final report.
	r.Post("/api/process/sync", func(w http.ResponseWriter, req *http.Request) {
		var in processRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		report := o.ProcessSync(req.Context(), in.input())
		w.Header().Set("Content-Type", "application/json")
		if report == nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "no report produced"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(report)
	})

	return r
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for processing requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(buildOrchestrator()),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
