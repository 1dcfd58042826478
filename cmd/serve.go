package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rankward/siteaudit/internal/model"
	"github.com/rankward/siteaudit/internal/store"
)

var servePort int

// auditRunner abstracts the pipeline for the HTTP layer.
type auditRunner interface {
	Run(ctx context.Context, req model.AuditRequest) (*model.Audit, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(ctx, env.Store, env.Pipeline),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP API. Audit runs are kicked off in the background
// against baseCtx so they outlive the submitting request.
func newRouter(baseCtx context.Context, st store.Store, runner auditRunner) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/audits", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body model.AuditRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.Domain == "" {
				writeError(w, http.StatusBadRequest, "domain is required")
				return
			}
			body.Domain = normalizeDomain(body.Domain)

			go func() {
				audit, err := runner.Run(baseCtx, body)
				if err != nil {
					zap.L().Error("audit run failed",
						zap.String("domain", body.Domain),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("audit run complete",
					zap.String("audit_id", audit.ID),
					zap.String("domain", body.Domain),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"domain": body.Domain,
			})
		})

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			limit, _ := strconv.Atoi(q.Get("limit"))
			filter := store.AuditFilter{
				Status:     model.AuditStatus(q.Get("status")),
				BusinessID: q.Get("business_id"),
				Domain:     q.Get("domain"),
				Limit:      limit,
			}

			audits, err := st.ListAudits(req.Context(), filter)
			if err != nil {
				zap.L().Error("list audits failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "list audits failed")
				return
			}
			if audits == nil {
				audits = []model.Audit{}
			}
			writeJSON(w, http.StatusOK, audits)
		})

		r.Get("/{auditID}", func(w http.ResponseWriter, req *http.Request) {
			auditID := chi.URLParam(req, "auditID")
			audit, err := st.GetAudit(req.Context(), auditID)
			if err != nil {
				writeError(w, http.StatusNotFound, "audit not found")
				return
			}

			out := struct {
				*model.Audit
				Checkpoint json.RawMessage `json:"checkpoint,omitempty"`
			}{Audit: audit}
			if audit.Status != model.AuditStatusComplete {
				if cp, cpErr := st.LoadCheckpoint(req.Context(), auditID); cpErr == nil && cp != nil {
					out.Checkpoint = cp.Data
				}
			}
			writeJSON(w, http.StatusOK, out)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
