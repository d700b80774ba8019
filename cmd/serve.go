package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velasur/inventory-cli/internal/sync"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server that triggers sync runs",
	Long:  "Exposes POST /webhook/sync so the cloud folder can trigger a run on file changes, plus GET /health and GET /runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
		})

		r.Post("/webhook/sync", func(w http.ResponseWriter, req *http.Request) {
			// Dropbox webhook deliveries carry a payload we do not need:
			// any notification just means "look at the folder again".
			// Dropbox fires bursts of notifications; overlapping triggers
			// are dropped because a second run would post the additive
			// stock movements again.
			if env.Runner.Busy() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusAccepted)
				json.NewEncoder(w).Encode(map[string]string{"status": "run already in progress"}) //nolint:errcheck
				return
			}

			go func() {
				run, err := env.Runner.Run(ctx, "webhook")
				if errors.Is(err, sync.ErrRunInProgress) {
					zap.L().Info("webhook trigger dropped, run already in progress")
					return
				}
				if err != nil {
					zap.L().Error("webhook sync failed", zap.Error(err))
					return
				}
				zap.L().Info("webhook sync finished",
					zap.String("run_id", run.ID),
					zap.String("status", string(run.Status)))
			}()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"status": "accepted"}) //nolint:errcheck
		})

		// Dropbox webhook verification echoes the challenge parameter.
		r.Get("/webhook/sync", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, req.URL.Query().Get("challenge")) //nolint:errcheck
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := env.Store.ListRuns(req.Context(), listFilterFromQuery(req))
			if err != nil {
				http.Error(w, `{"error":"list runs failed"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(runs) //nolint:errcheck
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownServer drains in-flight requests on a fresh deadline. The signal
// context that triggered the shutdown is already canceled and would abort
// them immediately.
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.Shutdown(ctx) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
