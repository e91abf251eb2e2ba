package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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

	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/store"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

var servePort int

// calculator runs one product calculation.
type calculator interface {
	Calculate(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// resultReader serves persisted runs and aggregates.
type resultReader interface {
	Ping(ctx context.Context) error
	GetRun(ctx context.Context, runID string) (*model.CalculationRun, error)
	GetAggregate(ctx context.Context, productID string) (*store.AggregateRecord, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the calculation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, cfg, "serve")
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
			Handler:           buildRouter(env.Engine, env.Store, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

// buildRouter mounts the API routes. calc and reader may be nil, in which
// case the routes depending on them answer 503.
func buildRouter(calc calculator, reader resultReader, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if reader != nil {
			if err := reader.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/products/{productID}/calculations", func(w http.ResponseWriter, r *http.Request) {
			if calc == nil {
				writeError(w, http.StatusServiceUnavailable, "calculation engine unavailable")
				return
			}

			var req engine.Request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			req.ProductID = chi.URLParam(r, "productID")
			for i := range req.Allocations {
				if req.Allocations[i].ProductID == "" {
					req.Allocations[i].ProductID = req.ProductID
				}
			}

			res, err := calc.Calculate(r.Context(), req)
			if err != nil {
				writeCalcError(w, req.ProductID, err)
				return
			}
			writeJSON(w, http.StatusCreated, res)
		})

		r.Get("/products/{productID}/aggregate", func(w http.ResponseWriter, r *http.Request) {
			if reader == nil {
				writeError(w, http.StatusServiceUnavailable, "store unavailable")
				return
			}
			rec, err := reader.GetAggregate(r.Context(), chi.URLParam(r, "productID"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		r.Get("/runs/{runID}", func(w http.ResponseWriter, r *http.Request) {
			if reader == nil {
				writeError(w, http.StatusServiceUnavailable, "store unavailable")
				return
			}
			run, err := reader.GetRun(r.Context(), chi.URLParam(r, "runID"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})
	})

	return r
}

// writeCalcError maps a calculation failure to a status code. A material
// with no factor in any tier is an unprocessable product, not a server fault.
func writeCalcError(w http.ResponseWriter, productID string, err error) {
	var mfe *waterfall.MissingFactorError
	switch {
	case errors.As(err, &mfe):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":    err.Error(),
			"material": mfe.MaterialName,
		})
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		zap.L().Error("calculation failed", zap.String("product_id", productID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "calculation failed")
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	zap.L().Error("store read failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
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
