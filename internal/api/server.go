// Package api serves the shift calculator over HTTP: the widget page, a
// JSON API and SVG/PNG renderings of both diagrams.
// GET endpoints are public. POST endpoints require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Showmax/go-fqdn"

	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/persistence"
	"github.com/talgya/aoi-shift/internal/widget"
)

// Version is reported by /api/v1/status.
const Version = "1.0.0"

// Image endpoints allow this many renders per client per minute.
const imageRequestsPerMinute = 60

// Server serves the calculator over HTTP.
type Server struct {
	DB          *persistence.DB // optional; nil disables history and preset edits
	Strictness  optics.Strictness
	Port        int
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	PublicURL   string // Base URL encoded in QR codes. Empty = derive from FQDN.
	CORSOrigins []string
	TrustProxy  bool // key the rate limiter by X-Forwarded-For

	startOnce sync.Once
	startTime time.Time
}

// Handler builds the routing table wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	s.startOnce.Do(func() { s.startTime = time.Now() })

	imageLimiter := NewRateLimiter(imageRequestsPerMinute, time.Minute)
	imageLimiter.TrustProxy = s.TrustProxy

	mux := http.NewServeMux()

	// ── Page ──
	mux.HandleFunc("/", s.handlePage)

	// ── JSON ──
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/shift", s.handleShift)
	mux.HandleFunc("/api/v1/sweep", s.handleSweep)
	mux.HandleFunc("/api/v1/presets", s.adminOnly(s.handlePresets))
	mux.HandleFunc("/api/v1/history", s.handleHistory)

	// ── Diagrams ──
	mux.HandleFunc("/api/v1/diagram/ray.svg", s.handleRaySVG)
	mux.HandleFunc("/api/v1/diagram/transmission.svg", s.handleTransmissionSVG)
	mux.HandleFunc("/api/v1/diagram/transmission.png", RateLimitMiddleware(imageLimiter, s.handleTransmissionPNG))
	mux.HandleFunc("/api/v1/sweep.png", RateLimitMiddleware(imageLimiter, s.handleSweepPNG))
	mux.HandleFunc("/api/v1/qr.png", RateLimitMiddleware(imageLimiter, s.handleQR))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving in a goroutine. The returned server can be shut down
// by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "strictness", s.Strictness.String(), "url", s.GetWebURL())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// GetWebURL returns the public URL of the widget page.
func (s *Server) GetWebURL() string {
	if s.PublicURL != "" {
		return strings.TrimSuffix(s.PublicURL, "/") + "/"
	}
	host, err := fqdn.FqdnHostname()
	if err != nil || host == "" {
		host, _ = os.Hostname()
	}
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d/", host, s.Port)
}

// corsMiddleware adds CORS headers for allowed frontend origins. Localhost
// dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no AOI_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// presets returns the stored catalog, or the built-in one without a database.
func (s *Server) presets() []optics.Preset {
	if s.DB == nil {
		return optics.DefaultPresets()
	}
	presets, err := s.DB.ListPresets()
	if err != nil || len(presets) == 0 {
		if err != nil {
			slog.Error("preset list failed", "error", err)
		}
		return optics.DefaultPresets()
	}
	return presets
}

// queryInputs reads lambda0, neff and theta. Missing or unparsable numbers
// are NaN. A preset name fills in neff when neff itself is absent. The
// angle is clamped; the wavelength is left for the model to validate.
func queryInputs(q url.Values, presets []optics.Preset) optics.Inputs {
	neff := widget.ParseNumber(q.Get("neff"))
	if q.Get("neff") == "" {
		if p, ok := optics.FindPreset(presets, q.Get("preset")); ok {
			neff = p.EffectiveIndex
		}
	}
	return optics.Inputs{
		DesignWavelengthNm: widget.ParseNumber(q.Get("lambda0")),
		EffectiveIndex:     neff,
		IncidenceAngleDeg:  optics.ClampAngle(widget.ParseNumber(q.Get("theta"))),
	}
}

// queryStrictness honours ?strictness=, falling back to the server default.
func (s *Server) queryStrictness(q url.Values) (optics.Strictness, error) {
	v := q.Get("strictness")
	if v == "" {
		return s.Strictness, nil
	}
	return optics.ParseStrictness(v)
}

// queryFloat reads an optional float parameter.
func queryFloat(q url.Values, key string, def float64) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// queryInt reads an optional integer parameter within [lo, hi].
func queryInt(q url.Values, key string, def, lo, hi int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
