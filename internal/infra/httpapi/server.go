// Package httpapi serves read-only ledger queries over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/execution"
	"frac_ledger/internal/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 5 * time.Second

// Server answers read_asset and read_holders straight from storage.
// It never writes; writes only arrive through the sequencer.
type Server struct {
	store    domain.Storage
	contract *execution.Contract
	position func() uint64
	router   chi.Router
}

// NewServer builds the router. position reports the sequencer's next seq.
func NewServer(store domain.Storage, contract *execution.Contract, position func() uint64) *Server {
	if contract == nil {
		contract = execution.NewContract(nil)
	}
	s := &Server{
		store:    store,
		contract: contract,
		position: position,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/assets/{assetId}", func(r chi.Router) {
		r.Get("/", s.getAsset)
		r.Get("/holders", s.getHolders)
	})
	r.Get("/metrics", s.getMetrics)
	r.Get("/healthz", s.getHealth)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Query API listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// GET /assets/{assetId}
func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, domain.CmdReadAsset)
}

// GET /assets/{assetId}/holders
func (s *Server) getHolders(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, domain.CmdReadHolders)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, cmd string) {
	assetID, err := assetParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(domain.CodeAssetIDRequired))
		return
	}

	payload, err := s.contract.Query(r.Context(), domain.Dispatch{
		Type: cmd,
		Args: domain.Args{AssetID: assetID},
	}, s.store)
	if err != nil {
		var le *domain.LedgerError
		if errors.As(err, &le) {
			writeError(w, http.StatusBadRequest, string(le.Code))
			return
		}
		infra.GlobalMetrics.RecordError()
		slog.Error("Query failed", slog.String("cmd", cmd), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}

	infra.GlobalMetrics.RecordRead()
	writeJSON(w, http.StatusOK, payload)
}

// assetParam returns the decoded {assetId} segment. chi routes on RawPath when
// the request carries one (e.g. an escaped slash), leaving the segment encoded.
func assetParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "assetId")
	if r.URL.RawPath == "" {
		return id, nil
	}
	return url.PathUnescape(id)
}

// GET /metrics
func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

// GET /healthz
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	var next uint64
	if s.position != nil {
		next = s.position()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "nextSeq": next})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
