package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/navigator/internal/export"
	"github.com/sells-group/navigator/internal/store"
)

var servePort int

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		env, err := initEnv(ctx, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildMux(env),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      env.Runner.Timeout() + 30*time.Second,
		}
		return serve(ctx, srv)
	},
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

// buildMux registers the API routes. Run requests execute synchronously
// under the runner's deadline.
func buildMux(env *appEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writable := isWritableDir(env.RunsDir)
		target := env.RunsDir
		if !writable {
			target = os.TempDir()
		}
		if !isWritableDir(target) {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
				"ok":       false,
				"writable": false,
				"runs_dir": env.RunsDir,
				"error":    "no writable directory for run artifacts",
			})
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"ok":        true,
			"status":    "ok",
			"writable":  writable,
			"runs_dir":  env.RunsDir,
			"write_dir": target,
			"history":   env.Store != nil,
		})
	})

	mux.HandleFunc("POST /run", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRunRequest(w, r)
		if !ok {
			return
		}
		res := env.execute(r.Context(), req.Query, req.plan())
		writeJSONResponse(w, http.StatusOK, res)
	})

	mux.HandleFunc("POST /export", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRunRequest(w, r)
		if !ok {
			return
		}
		format := exportFormat(req.Format)

		res := env.execute(r.Context(), req.Query, req.plan())
		paths, err := env.exportResults(&res, []string{format})
		if err != nil {
			zap.L().Error("export failed", zap.String("query", req.Query), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		path := paths[format]
		w.Header().Set("Content-Type", exportContentType(format))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
		http.ServeFile(w, r, path)
	})

	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		if env.Store == nil {
			writeJSONResponse(w, http.StatusOK, map[string]any{"ok": false, "error": "history is not configured"})
			return
		}
		limit := store.DefaultListLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}
		items, err := env.Store.ListRuns(r.Context(), limit)
		if err != nil {
			zap.L().Error("list history", zap.Error(err))
			writeJSONResponse(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]any{"ok": true, "items": items})
	})

	mux.HandleFunc("DELETE /history", func(w http.ResponseWriter, r *http.Request) {
		if env.Store == nil {
			writeJSONResponse(w, http.StatusOK, map[string]any{"ok": false, "error": "history is not configured"})
			return
		}
		n, err := env.Store.ClearRuns(r.Context())
		if err != nil {
			zap.L().Error("clear history", zap.Error(err))
			writeJSONResponse(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]any{"ok": true, "removed": n})
	})

	return mux
}

func decodeRunRequest(w http.ResponseWriter, r *http.Request) (runRequest, bool) {
	var req runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

// exportFormat maps a requested format to a supported one, defaulting to csv.
func exportFormat(f string) string {
	switch formats := export.ParseFormats(f); {
	case len(formats) == 0:
		return export.FormatCSV
	case formats[0] == export.FormatJSON, formats[0] == export.FormatXLSX:
		return formats[0]
	default:
		return export.FormatCSV
	}
}

func exportContentType(format string) string {
	switch format {
	case export.FormatJSON:
		return "application/json"
	case export.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// isWritableDir creates dir if needed and probes it with a temp file.
func isWritableDir(dir string) bool {
	if dir == "" {
		return false
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()       //nolint:errcheck
	os.Remove(name) //nolint:errcheck
	return true
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONResponse(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
