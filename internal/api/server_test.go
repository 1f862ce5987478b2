package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/persistence"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.SeedPresets(optics.DefaultPresets()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := &Server{
		DB:          db,
		Strictness:  optics.Strict,
		Port:        8080,
		AdminKey:    "secret",
		PublicURL:   "https://aoi.example.com",
		CORSOrigins: []string{"https://ui.example.com"},
	}
	return s, s.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestShiftEndpoint(t *testing.T) {
	s, h := newTestServer(t)
	rec := get(t, h, "/api/v1/shift?lambda0=1550&neff=2.0&theta=30")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}

	var resp struct {
		ID       string          `json:"id"`
		Result   optics.Result   `json:"result"`
		Readouts optics.Readouts `json:"readouts"`
		Preset   string          `json:"preset"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Readouts.Shifted != "1500.8" || resp.Readouts.Delta != "-49.2" || resp.Readouts.Percent != "-3.2%" {
		t.Fatalf("readouts %+v", resp.Readouts)
	}
	if resp.ID == "" || resp.Preset != "" {
		t.Fatalf("id %q preset %q", resp.ID, resp.Preset)
	}

	history, err := s.DB.RecentEvaluations(5)
	if err != nil || len(history) != 1 || history[0].ID != resp.ID {
		t.Fatalf("evaluation not recorded: %v %+v", err, history)
	}
}

func TestShiftEndpointInvalidInputs(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/api/v1/shift?lambda0=abc&preset=High-index+cavity+(Nb2O5)&theta=12")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"shifted_nm": null`) || !strings.Contains(body, `"design_wavelength_nm": null`) {
		t.Fatalf("invalid values must encode as null: %s", body)
	}
	if !strings.Contains(body, `"preset": "High-index cavity (Nb2O5)"`) {
		t.Fatalf("preset fill-in missing: %s", body)
	}
	if !strings.Contains(body, `"shifted": "—"`) {
		t.Fatalf("placeholder readout missing: %s", body)
	}

	if rec := get(t, h, "/api/v1/shift?lambda0=1550&neff=2&strictness=loose"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad strictness: status %d", rec.Code)
	}
}

func TestShiftEndpointStrictness(t *testing.T) {
	_, h := newTestServer(t)
	strict := get(t, h, "/api/v1/shift?lambda0=5000&neff=2&theta=10")
	if !strings.Contains(strict.Body.String(), `"shifted_nm": null`) {
		t.Fatalf("strict mode must reject 5000 nm: %s", strict.Body.String())
	}
	lenient := get(t, h, "/api/v1/shift?lambda0=5000&neff=2&theta=10&strictness=lenient")
	if strings.Contains(lenient.Body.String(), `"shifted_nm": null`) {
		t.Fatalf("lenient mode must accept 5000 nm: %s", lenient.Body.String())
	}
}

func TestSweepEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/api/v1/sweep?lambda0=1550&neff=2.05&from=0&to=10&step=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Points []struct {
			AngleDeg  float64      `json:"angle_deg"`
			ShiftedNm optics.Value `json:"shifted_nm"`
		} `json:"points"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Points) != 3 || resp.Points[2].AngleDeg != 10 {
		t.Fatalf("points %+v", resp.Points)
	}
	if resp.Points[0].ShiftedNm.Or(0) != 1550 {
		t.Fatalf("0 deg must be exact: %v", resp.Points[0].ShiftedNm)
	}

	if rec := get(t, h, "/api/v1/sweep?lambda0=1550&neff=2&step=0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero step: status %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/sweep?lambda0=1550&neff=2&from=x"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad from: status %d", rec.Code)
	}
	for _, target := range []string{
		"/api/v1/sweep?lambda0=1550&neff=2&step=1e-300",
		"/api/v1/sweep?lambda0=1550&neff=2&step=0.001",
		"/api/v1/sweep.png?lambda0=1550&neff=2&step=1e-300",
	} {
		if rec := get(t, h, target); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", target, rec.Code)
		}
	}
}

func TestSweepClampsAngleRange(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/api/v1/sweep?lambda0=1550&neff=2&from=-10&to=120&step=85")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Points []struct {
			AngleDeg float64 `json:"angle_deg"`
		} `json:"points"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Points) != 2 || resp.Points[0].AngleDeg != 0 || resp.Points[1].AngleDeg != 85 {
		t.Fatalf("points %+v", resp.Points)
	}
}

func TestPresetsEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/api/v1/presets")
	var presets []optics.Preset
	if err := json.Unmarshal(rec.Body.Bytes(), &presets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(presets) != len(optics.DefaultPresets()) {
		t.Fatalf("got %d presets", len(presets))
	}

	post := func(auth, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/presets", bytes.NewBufferString(body))
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post("", `{"name":"Custom","effective_index":1.6}`); code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", code)
	}
	if code := post("wrong", `{"name":"Custom","effective_index":1.6}`); code != http.StatusUnauthorized {
		t.Fatalf("wrong token: %d", code)
	}
	if code := post("secret", `{"name":"Custom","effective_index":1.6}`); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}
	if code := post("secret", `{"name":"Custom","effective_index":1.7}`); code != http.StatusConflict {
		t.Fatalf("duplicate: %d", code)
	}
	if code := post("secret", `{"name":"Bad","effective_index":-1}`); code != http.StatusBadRequest {
		t.Fatalf("invalid: %d", code)
	}
	if code := post("secret", `{`); code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", code)
	}

	// Concurrent adds of one name: exactly one wins, the rest conflict.
	codes := make(chan int, 8)
	var wg sync.WaitGroup
	for i := 0; i < cap(codes); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- post("secret", `{"name":"Raced","effective_index":1.8}`)
		}()
	}
	wg.Wait()
	close(codes)
	created := 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
		default:
			t.Fatalf("concurrent add: status %d", code)
		}
	}
	if created != 1 {
		t.Fatalf("concurrent add created %d presets", created)
	}

	rec = get(t, h, "/api/v1/presets")
	presets = nil
	json.Unmarshal(rec.Body.Bytes(), &presets)
	if presets[len(presets)-2].Name != "Custom" || presets[len(presets)-1].Name != "Raced" {
		t.Fatalf("new preset not listed last: %+v", presets)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s := &Server{Strictness: optics.Strict}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/presets", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer ")
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	for i := 0; i < 3; i++ {
		get(t, h, "/api/v1/shift?lambda0=1550&neff=2.05&theta=12")
	}
	rec := get(t, h, "/api/v1/history?limit=2")
	var entries []struct {
		ID  string `json:"id"`
		Age string `json:"age"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].Age == "" {
		t.Fatalf("entries %+v", entries)
	}
	if rec := get(t, h, "/api/v1/history?limit=0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("limit 0: status %d", rec.Code)
	}

	noDB := (&Server{}).Handler()
	if rec := get(t, noDB, "/api/v1/history"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no db: status %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/api/v1/status")
	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["name"] != "aoi-shift" || status["strictness"] != "strict" || status["presets"] != float64(5) {
		t.Fatalf("status %v", status)
	}
}

func TestDiagramEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	rec := get(t, h, "/api/v1/diagram/ray.svg?neff=2.05&theta=30")
	if rec.Header().Get("Content-Type") != "image/svg+xml" || !strings.Contains(rec.Body.String(), `id="thetaArcAir"`) {
		t.Fatalf("ray svg: %q %s", rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "AOI = 30.0 deg") {
		t.Fatalf("ray label missing")
	}

	rec = get(t, h, "/api/v1/diagram/transmission.svg?lambda0=1550&neff=2.05&theta=12")
	if !strings.Contains(rec.Body.String(), "0 deg baseline: 1550.0 nm") {
		t.Fatalf("transmission svg: %s", rec.Body.String())
	}

	pngSig := "\x89PNG\r\n\x1a\n"
	for _, target := range []string{
		"/api/v1/diagram/transmission.png?lambda0=1550&neff=2.05&theta=12&width=320&height=200",
		"/api/v1/sweep.png?lambda0=1550&neff=2.05",
		"/api/v1/qr.png?lambda0=1550",
	} {
		rec := get(t, h, target)
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
			t.Fatalf("%s: status %d type %q", target, rec.Code, rec.Header().Get("Content-Type"))
		}
		if !strings.HasPrefix(rec.Body.String(), pngSig) {
			t.Fatalf("%s: not a png", target)
		}
	}

	if rec := get(t, h, "/api/v1/diagram/transmission.png?width=5"); rec.Code != http.StatusBadRequest {
		t.Fatalf("tiny width: status %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/sweep.png?lambda0=5000&neff=2"); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty sweep: status %d", rec.Code)
	}
}

func TestPage(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/?lambda0=5000&neff=2.05&theta=99")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("status %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	for _, want := range []string{
		`value="1940"`, // committed wavelength clamped
		`value="85"`,   // angle clamped
		`<option value="High-index cavity (Nb2O5)" data-neff="2.05" selected>`,
		`id="incidentRay"`,
		`id="curveShifted"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	if rec := get(t, h, "/nope"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path: status %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/shift", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://ui.example.com" {
		t.Fatalf("preflight: %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin allowed")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests must pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request must be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("clients are independent")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("retry after %d", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("window must reset")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first: %d", rec.Code)
	}

	// A rotated header does not buy a fresh bucket.
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second: %d %v", rec.Code, rec.Header())
	}
}

func TestClientAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := clientAddr(req, false); got != "192.0.2.1" {
		t.Fatalf("untrusted: client %q", got)
	}
	if got := clientAddr(req, true); got != "203.0.113.7" {
		t.Fatalf("trusted: client %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	if got := clientAddr(req, true); got != "192.0.2.1" {
		t.Fatalf("trusted without header: client %q", got)
	}
}

type failingWriter struct {
	header http.Header
	code   int
}

func (f *failingWriter) Header() http.Header       { return f.header }
func (f *failingWriter) WriteHeader(code int)      { f.code = code }
func (f *failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestPageWriteFailureIsHandled(t *testing.T) {
	s, _ := newTestServer(t)
	w := &failingWriter{header: http.Header{}}
	s.handlePage(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if ct := w.header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type %q", ct)
	}
}
