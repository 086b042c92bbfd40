package main

import (
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

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/orchestrator"
)

var servePort int

type jobRequest struct {
	ApplicationID int64    `json:"application_id"`
	Steps         []string `json:"steps"`
	Requester     string   `json:"requester"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verification job API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		queue := orchestrator.NewQueue(ctx, env.Orchestrator, cfg.Orchestrator.MaxConcurrentJobs)
		defer queue.Shutdown()

		r := buildRouter(env.Orchestrator, queue)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// buildRouter wires the job API routes.
func buildRouter(orc *orchestrator.Orchestrator, queue *orchestrator.Queue) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
		body, ok := decodeJobRequest(w, req)
		if !ok {
			return
		}

		if len(body.Steps) == 0 {
			body.Steps = orc.StepKeys()
		}

		handle, err := queue.Enqueue(orchestrator.Job{
			ApplicationID: body.ApplicationID,
			Steps:         body.Steps,
			Requester:     body.Requester,
		})
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"job_id": handle.ID,
			"status": "queued",
		})
	})

	r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
		handle, ok := queue.Lookup(chi.URLParam(req, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job id"})
			return
		}

		status, result, err := handle.Snapshot()
		out := map[string]any{
			"job_id": handle.ID,
			"status": string(status),
		}
		if result != nil {
			out["result"] = result
		}
		if err != nil {
			out["error"] = err.Error()
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/verify", func(w http.ResponseWriter, req *http.Request) {
		body, ok := decodeJobRequest(w, req)
		if !ok {
			return
		}

		if len(body.Steps) == 0 {
			body.Steps = orc.StepKeys()
		}

		result, err := orc.ProcessJob(req.Context(), body.ApplicationID, body.Steps, body.Requester)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func decodeJobRequest(w http.ResponseWriter, req *http.Request) (jobRequest, bool) {
	var body jobRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return body, false
	}
	if body.ApplicationID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "application_id is required"})
		return body, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
