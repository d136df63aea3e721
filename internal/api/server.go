// Package api exposes the HTTP interface of the divination service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/neoluxis/gua4destiny/internal/divination"
	"github.com/neoluxis/gua4destiny/internal/draw"
	"github.com/neoluxis/gua4destiny/internal/fulltext"
	"github.com/neoluxis/gua4destiny/internal/gua"
	"github.com/neoluxis/gua4destiny/internal/metrics"
)

// TextFetcher is the slice of the full-text service the API needs.
type TextFetcher interface {
	FetchFullText(ctx context.Context, q fulltext.Query, useCache bool) (fulltext.Result, error)
}

// Server wires HTTP handlers to the divination engine and the full-text
// orchestrator.
type Server struct {
	router chi.Router
	engine *divination.Engine
	texts  TextFetcher
	tables *gua.Category
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(engine *divination.Engine, texts TextFetcher, tables *gua.Category, logger *zap.Logger) *Server {
	if tables == nil {
		tables = gua.DefaultCategory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		texts:  texts,
		tables: tables,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/hexagrams", s.castHexagram)
		r.Route("/hexagrams/{ref}", func(r chi.Router) {
			r.Get("/text", s.getFullText)
			r.Get("/image", s.getImage)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type castRequest struct {
	// Lines optionally fixes the cast; values are 6, 7, 8 or 9, bottom
	// line first. Empty means a random cast by the engine.
	Lines []int `json:"lines"`
}

type lineView struct {
	Name   string `json:"name"`
	Value  int    `json:"value"`
	Moving bool   `json:"moving"`
}

type hexagramView struct {
	Index  int        `json:"index"`
	Name   string     `json:"name"`
	Pinyin string     `json:"pinyin"`
	Binary string     `json:"binary"`
	Value  int        `json:"value"`
	Lines  []lineView `json:"lines"`
}

func (s *Server) castHexagram(w http.ResponseWriter, r *http.Request) {
	var req castRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var lines []gua.Line
	if len(req.Lines) > 0 {
		lines = make([]gua.Line, len(req.Lines))
		for i, v := range req.Lines {
			lines[i] = gua.Line(v)
			if !lines[i].Valid() {
				writeError(w, http.StatusBadRequest, "line values must be 6, 7, 8 or 9")
				return
			}
		}
	} else {
		cast, err := s.engine.CastHexagram()
		if err != nil {
			s.logger.Error("cast failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "cast failed")
			return
		}
		lines = cast
	}

	h, err := gua.New(lines, s.tables)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ObserveCast()
	writeJSON(w, http.StatusOK, viewOf(h))
}

func (s *Server) getFullText(w http.ResponseWriter, r *http.Request) {
	q, ok := s.queryFromRef(w, chi.URLParam(r, "ref"))
	if !ok {
		return
	}
	useCache := r.URL.Query().Get("refresh") != "true"

	result, err := s.texts.FetchFullText(r.Context(), q, useCache)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, fulltext.ErrNoSourceResolved) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	q, ok := s.queryFromRef(w, chi.URLParam(r, "ref"))
	if !ok {
		return
	}
	index := fulltext.ResolveIndex(q, s.tables)
	entry, found := s.tables.Entry(index)
	if !found {
		writeError(w, http.StatusNotFound, "unknown hexagram")
		return
	}

	lines := make([]gua.Line, 0, 6)
	for _, bit := range entry.Lines {
		if bit == '1' {
			lines = append(lines, gua.YoungYang)
		} else {
			lines = append(lines, gua.YoungYin)
		}
	}
	h, err := gua.New(lines, s.tables)
	if err != nil {
		s.logger.Error("render failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	svg, err := draw.SVG(h, draw.DefaultLayout())
	if err != nil {
		s.logger.Error("render failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(svg)); err != nil {
		s.logger.Warn("image write failed", zap.Error(err))
	}
}

// queryFromRef interprets a path reference as a King Wen index or a
// hexagram name.
func (s *Server) queryFromRef(w http.ResponseWriter, ref string) (fulltext.Query, bool) {
	if ref == "" {
		writeError(w, http.StatusBadRequest, "hexagram reference is required")
		return fulltext.Query{}, false
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		if _, ok := s.tables.NameByIndex(idx); !ok {
			writeError(w, http.StatusNotFound, "unknown hexagram index")
			return fulltext.Query{}, false
		}
		return fulltext.Query{Index: idx}, true
	}
	return fulltext.Query{Name: ref}, true
}

func viewOf(h gua.Hexagram) hexagramView {
	lines := make([]lineView, len(h.Lines))
	for i, l := range h.Lines {
		lines[i] = lineView{Name: l.String(), Value: int(l), Moving: l.Moving()}
	}
	return hexagramView{
		Index:  h.Index,
		Name:   h.Name,
		Pinyin: h.Pinyin,
		Binary: h.Binary,
		Value:  h.Value,
		Lines:  lines,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already out; nothing useful left to do.
		_ = err
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
