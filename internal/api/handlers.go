package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/aoi-shift/internal/diagram"
	"github.com/talgya/aoi-shift/internal/export"
	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/persistence"
	"github.com/talgya/aoi-shift/internal/widget"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	defaultQRSize       = 256
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":           "aoi-shift",
		"version":        Version,
		"started":        humanize.Time(s.startTime),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"strictness":     s.Strictness.String(),
		"presets":        len(s.presets()),
		"database":       s.DB != nil,
	}
	if s.DB != nil {
		if n, err := s.DB.CountEvaluations(); err == nil {
			status["evaluations"] = humanize.Comma(int64(n))
		}
	}
	writeJSON(w, status)
}

type shiftResponse struct {
	persistence.Evaluation
	Readouts optics.Readouts `json:"readouts"`
	Preset   string          `json:"preset,omitempty"`
}

func (s *Server) handleShift(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	strictness, err := s.queryStrictness(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	presets := s.presets()
	in := queryInputs(q, presets)
	res := optics.ComputeShift(in, strictness)

	eval := persistence.NewEvaluation(in, strictness, res, time.Now())
	if s.DB != nil {
		if err := s.DB.RecordEvaluation(eval); err != nil {
			slog.Error("record evaluation failed", "error", err)
		}
	}

	resp := shiftResponse{Evaluation: eval, Readouts: optics.FormatReadouts(res)}
	if p, ok := optics.MatchPreset(presets, in.EffectiveIndex); ok {
		resp.Preset = p.Name
	}
	writeJSON(w, resp)
}

// sweepRequest reads the sweep parameters; the angle range defaults to the
// full accepted range in 1° steps and is clamped to it.
func (s *Server) sweepRequest(r *http.Request) (optics.Strictness, []optics.SweepPoint, error) {
	q := r.URL.Query()
	strictness, err := s.queryStrictness(q)
	if err != nil {
		return 0, nil, err
	}
	in := queryInputs(q, s.presets())
	from, err := queryFloat(q, "from", optics.MinAngleDeg)
	if err != nil {
		return 0, nil, err
	}
	to, err := queryFloat(q, "to", optics.MaxAngleDeg)
	if err != nil {
		return 0, nil, err
	}
	step, err := queryFloat(q, "step", 1)
	if err != nil {
		return 0, nil, err
	}
	from, to = optics.ClampAngle(from), optics.ClampAngle(to)
	points := optics.Sweep(in.DesignWavelengthNm, in.EffectiveIndex, from, to, step, strictness)
	if points == nil {
		return 0, nil, fmt.Errorf("sweep needs finite from <= to and a positive step giving at most %d points", optics.MaxSweepPoints)
	}
	return strictness, points, nil
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	strictness, points, err := s.sweepRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"strictness": strictness.String(),
		"points":     points,
	})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.presets())
	case http.MethodPost:
		if s.DB == nil {
			http.Error(w, "database not available", http.StatusServiceUnavailable)
			return
		}
		var p optics.Preset
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.DB.AddPreset(p); err != nil {
			switch {
			case errors.Is(err, persistence.ErrInvalidPreset):
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			case errors.Is(err, persistence.ErrPresetExists):
				http.Error(w, "preset already exists", http.StatusConflict)
				return
			}
			slog.Error("add preset failed", "error", err)
			http.Error(w, "add preset failed", http.StatusInternalServerError)
			return
		}
		slog.Info("preset added", "name", p.Name, "neff", p.EffectiveIndex)
		writeJSONStatus(w, http.StatusCreated, p)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type historyEntry struct {
	persistence.Evaluation
	Age string `json:"age"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit, err := queryInt(r.URL.Query(), "limit", defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	evals, err := s.DB.RecentEvaluations(limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	entries := make([]historyEntry, 0, len(evals))
	for _, e := range evals {
		entries = append(entries, historyEntry{Evaluation: e, Age: humanize.Time(e.CreatedAt)})
	}
	writeJSON(w, entries)
}

// snapshot evaluates the request's inputs without recording them.
func (s *Server) snapshot(r *http.Request) (widget.Snapshot, error) {
	q := r.URL.Query()
	strictness, err := s.queryStrictness(q)
	if err != nil {
		return widget.Snapshot{}, err
	}
	return widget.Evaluate(queryInputs(q, s.presets()), strictness), nil
}

func (s *Server) handleRaySVG(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := diagram.WriteRaySVG(&buf, snap.Ray); err != nil {
		slog.Error("ray svg failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeImage(w, "image/svg+xml", buf.Bytes())
}

func (s *Server) handleTransmissionSVG(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := diagram.WriteTransmissionSVG(&buf, snap.Transmission); err != nil {
		slog.Error("transmission svg failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeImage(w, "image/svg+xml", buf.Bytes())
}

// imageSize reads ?width= and ?height=; zero means the export default.
func imageSize(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	width, err := queryInt(q, "width", 0, export.MinSize, export.MaxSize)
	if err != nil {
		return 0, 0, err
	}
	height, err := queryInt(q, "height", 0, export.MinSize, export.MaxSize)
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func (s *Server) handleTransmissionPNG(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	width, height, err := imageSize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := export.TransmissionPNG(&buf, snap.Transmission, width, height); err != nil {
		slog.Error("transmission png failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	slog.Debug("png rendered", "route", r.URL.Path, "size", humanize.Bytes(uint64(buf.Len())))
	writeImage(w, "image/png", buf.Bytes())
}

func (s *Server) handleSweepPNG(w http.ResponseWriter, r *http.Request) {
	_, points, err := s.sweepRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	width, height, err := imageSize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := export.SweepPNG(&buf, points, width, height); err != nil {
		if errors.Is(err, export.ErrNotEnoughPoints) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		slog.Error("sweep png failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	slog.Debug("png rendered", "route", r.URL.Path, "size", humanize.Bytes(uint64(buf.Len())))
	writeImage(w, "image/png", buf.Bytes())
}

// handleQR encodes the widget page URL, carrying over any inputs in the
// query so the scanned page opens in the same state.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	side, err := queryInt(q, "size", defaultQRSize, export.MinSize, export.MaxSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q.Del("size")
	target := s.GetWebURL()
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	png, err := export.QRCodePNG(target, side)
	if err != nil {
		slog.Error("qr code failed", "error", err, "url", target)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeImage(w, "image/png", png)
}

func writeImage(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		slog.Debug("image write failed", "error", err)
	}
}
