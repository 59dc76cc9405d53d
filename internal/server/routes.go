package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lazypower/chronoscope/internal/artifact"
	"github.com/lazypower/chronoscope/internal/engine"
	"github.com/lazypower/chronoscope/internal/epoch"
	"github.com/lazypower/chronoscope/internal/export"
	"github.com/lazypower/chronoscope/internal/store"
)

// maxRequestBody bounds the JSON body of a synthesis request.
const maxRequestBody = 64 << 10

type epochView struct {
	epoch.Epoch
	Weight  float64          `json:"weight"`
	Depth   int              `json:"depth"`
	Profile epoch.Soundscape `json:"soundscape_profile"`
}

func (s *Server) viewEpoch(e epoch.Epoch) epochView {
	return epochView{
		Epoch:   e,
		Weight:  s.eng.Weight(e),
		Depth:   e.Depth(),
		Profile: epoch.SoundscapeFor(e),
	}
}

type echoView struct {
	Meta   artifact.Metadata `json:"meta"`
	Digest string            `json:"digest"`
	Links  map[string]string `json:"links"`
}

func newEchoView(meta artifact.Metadata, digest string) echoView {
	base := "/api/echoes/" + meta.ID
	links := map[string]string{"self": base}
	if meta.Kind.WantsImage() {
		links["image"] = base + "/image.png"
	}
	if meta.Kind.WantsAudio() {
		links["audio"] = base + "/audio.wav"
	}
	return echoView{Meta: meta, Digest: digest, Links: links}
}

func (s *Server) handleListEpochs(w http.ResponseWriter, r *http.Request) {
	var out []epochView
	for e := range s.eng.Registry().All() {
		out = append(out, s.viewEpoch(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"epochs": out})
}

func (s *Server) handleGetEpoch(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	e, err := s.eng.Registry().Lookup(key)
	if err != nil {
		writeError(w, http.StatusNotFound, engine.KindUnknownEpoch, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.viewEpoch(e))
}

func (s *Server) handleCreateEcho(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json: "+err.Error())
		return
	}

	a, err := s.eng.Synthesize(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if _, err := s.db.SaveArtifact(a); err != nil {
		s.log.Error("save echo", zap.String("id", a.Meta.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, engine.KindInternal, "could not record echo")
		return
	}

	writeJSON(w, http.StatusCreated, newEchoView(a.Meta, a.Digest()))
}

func (s *Server) handleListEchoes(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	records, err := s.db.ListArtifacts(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, engine.KindInternal, err.Error())
		return
	}
	out := make([]echoView, len(records))
	for i, rec := range records {
		out[i] = newEchoView(rec.Meta, rec.Digest)
	}
	writeJSON(w, http.StatusOK, map[string]any{"echoes": out})
}

func (s *Server) handleGetEcho(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookupEcho(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newEchoView(rec.Meta, rec.Digest))
}

func (s *Server) handleEchoImage(w http.ResponseWriter, r *http.Request) {
	s.serveReplay(w, r, "image/png", artifact.Kind.WantsImage, func(wr io.Writer, a *artifact.Artifact) error {
		return export.WritePNG(wr, a.Raster)
	})
}

func (s *Server) handleEchoAudio(w http.ResponseWriter, r *http.Request) {
	s.serveReplay(w, r, "audio/wav", artifact.Kind.WantsAudio, func(wr io.Writer, a *artifact.Artifact) error {
		return export.WriteWAV(wr, a.Waveform)
	})
}

// serveReplay regenerates a stored echo and streams one of its buffers.
func (s *Server) serveReplay(w http.ResponseWriter, r *http.Request, contentType string,
	has func(artifact.Kind) bool, encode func(io.Writer, *artifact.Artifact) error) {
	rec, ok := s.lookupEcho(w, r)
	if !ok {
		return
	}
	if !has(rec.Meta.Kind) {
		writeError(w, http.StatusNotFound, engine.KindUnsupportedKind,
			"echo "+rec.Meta.ID+" has no "+contentType+" output")
		return
	}

	a, err := s.eng.Replay(r.Context(), rec.Meta)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if a.Digest() != rec.Digest {
		s.log.Warn("replay digest differs", zap.String("id", rec.Meta.ID))
		writeError(w, http.StatusConflict, engine.KindProvenance, "replayed buffers differ from the recorded digest")
		return
	}

	var buf bytes.Buffer
	if err := encode(&buf, a); err != nil {
		writeError(w, http.StatusInternalServerError, engine.KindInternal, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("ETag", `"`+rec.Digest+`"`)
	w.Write(buf.Bytes())
}

func (s *Server) lookupEcho(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	id := chi.URLParam(r, "id")
	rec, err := s.db.GetArtifact(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, engine.KindInternal, err.Error())
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "echo "+id+" not found")
		return nil, false
	}
	return rec, true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.db.CountArtifacts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, engine.KindInternal, err.Error())
		return
	}
	usage, err := s.db.EpochUsageStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, engine.KindInternal, err.Error())
		return
	}
	type row struct {
		Key       string  `json:"key"`
		Count     int     `json:"count"`
		AvgWeight float64 `json:"avg_weight"`
	}
	rows := make([]row, len(usage))
	for i, u := range usage {
		rows[i] = row(u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"echoes": total, "epochs": rows})
}

// writeEngineError maps engine failures onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	kind := engine.ErrorKind(err)
	switch {
	case engine.IsValidation(err):
		writeError(w, http.StatusBadRequest, kind, err.Error())
	case kind == engine.KindProvenance:
		writeError(w, http.StatusConflict, kind, err.Error())
	case kind == engine.KindCancelled:
		writeError(w, http.StatusServiceUnavailable, kind, err.Error())
	default:
		var se *engine.StageError
		if errors.As(err, &se) {
			s.log.Error("synthesis failed", zap.String("stage", string(se.Stage)), zap.Error(se.Err))
		} else {
			s.log.Error("synthesis failed", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, kind, "synthesis failed")
	}
}
