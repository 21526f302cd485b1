package server

import (
	"bytes"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tanaylab/mcbrowse/pkg/buildinfo"
	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/figure/sink"
	"github.com/tanaylab/mcbrowse/pkg/pipeline"
	"github.com/tanaylab/mcbrowse/pkg/source"
	"github.com/tanaylab/mcbrowse/pkg/store"
	"github.com/tanaylab/mcbrowse/pkg/veneer"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleAxes(w http.ResponseWriter, _ *http.Request) {
	desc, err := source.Describe(s.src)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.src.AxisEntries(chi.URLParam(r, "axis"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleVeneer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Options map[string]any `json:"options"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := veneer.Build(req.Options)
	if err != nil {
		writeError(w, errors.WithStage(errors.StageConfigure, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"options": v.Options(),
		"digest":  v.Digest(),
	})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := decodeBody(w, r, &opts); err != nil {
		writeError(w, err)
		return
	}
	ds, err := s.runner.Extract(r.Context(), s.src, opts)
	if err == nil {
		ds, err = s.runner.Shape(ds, opts)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

type figureResponse struct {
	ID        string            `json:"id"`
	FigureKey string            `json:"figure_key"`
	Formats   []string          `json:"formats"`
	URLs      map[string]string `json:"urls"`
	Stats     figureStats       `json:"stats"`
	Cached    bool              `json:"cached"`
}

type figureStats struct {
	Rows    int `json:"rows"`
	Points  int `json:"points"`
	Dropped int `json:"dropped"`
}

func (s *Server) handleCreateFigure(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := decodeBody(w, r, &opts); err != nil {
		writeError(w, err)
		return
	}
	opts.Logger = s.logger

	ctx := r.Context()
	res, err := s.runner.Execute(ctx, s.src, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	figJSON, ok := res.Artifacts[sink.FormatJSON]
	if !ok {
		if figJSON, err = sink.RenderJSON(res.Figure); err != nil {
			writeError(w, errors.WithStage(errors.StageExport, err))
			return
		}
	}
	rec := store.NewRecord(res.FigureKey, figJSON, s.figureTTL)
	if err := s.figures.Put(ctx, rec); err != nil {
		writeError(w, err)
		return
	}

	resp := figureResponse{
		ID:        rec.ID,
		FigureKey: res.FigureKey,
		Formats:   slices.Sorted(maps.Keys(res.Artifacts)),
		URLs:      make(map[string]string, len(res.Artifacts)),
		Stats:     figureStats{Rows: res.Stats.Rows, Points: res.Stats.Points, Dropped: res.Stats.Dropped},
		Cached:    res.CacheInfo.RenderHit,
	}
	for format, data := range res.Artifacts {
		resp.URLs[format] = "/figures/" + rec.ID + "/" + format
		if s.artifacts == nil {
			continue
		}
		if err := s.artifacts.Put(ctx, rec.ID, format, data); err != nil {
			s.logger.Warn("publish artifact", "figure", rec.ID, "format", format, "error", err)
			continue
		}
		if u, err := s.artifacts.URL(ctx, rec.ID, format); err == nil {
			resp.URLs[format] = u
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetFigure(w http.ResponseWriter, r *http.Request) {
	rec, err := s.figures.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", sink.ContentType(sink.FormatJSON))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Figure)
}

func (s *Server) handleExportFigure(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeUnsupported, err, "unsupported format %q", format))
		return
	}
	scale := 0.0
	if raw := r.URL.Query().Get("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "scale must be a number > 0, got %q", raw))
			return
		}
		scale = v
	}

	ctx := r.Context()
	rec, err := s.figures.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	fig, err := sink.ReadJSON(rec.Figure)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "stored figure %q is unreadable", rec.ID))
		return
	}
	artifacts, err := s.runner.Export(ctx, fig, rec.FigureKey, pipeline.Options{
		Formats: []string{format},
		Scale:   scale,
		Logger:  s.logger,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", sink.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	dec := json.NewDecoder(&buf)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}
