package api

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/talgya/aoi-shift/internal/diagram"
	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/widget"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>AOI wavelength shift</title>
<style>
body{font:15px sans-serif;max-width:1120px;margin:24px auto;padding:0 16px;color:#222}
form{display:grid;grid-template-columns:repeat(auto-fit,minmax(220px,1fr));gap:12px;align-items:end}
label{display:flex;flex-direction:column;gap:4px;font-size:13px}
.readouts{display:flex;gap:32px;margin:20px 0;font-size:18px}
.readouts span{display:block;font-size:12px;color:#666}
.diagrams{display:flex;flex-wrap:wrap;gap:16px}
footer{margin-top:16px;font-size:12px;color:#666}
</style>
</head>
<body>
<h1>Angle-of-incidence wavelength shift</h1>
<form method="get" action="/">
  <label>Design wavelength at 0° (nm)
    <input id="lambda0" name="lambda0" type="number" step="any" min="{{.MinNm}}" max="{{.MaxNm}}" value="{{.Controls.WavelengthText}}">
  </label>
  <label>Effective index preset
    <select id="neffPreset" name="preset" onchange="if(this.value){this.form.neff.value=this.selectedOptions[0].dataset.neff}this.form.submit()">
      <option value=""{{if eq .Controls.Preset ""}} selected{{end}}>Custom</option>
      {{- range .Presets}}
      <option value="{{.Name}}" data-neff="{{.EffectiveIndex}}"{{if eq .Name $.Controls.Preset}} selected{{end}}>{{.Name}} ({{.EffectiveIndex}})</option>
      {{- end}}
    </select>
  </label>
  <label>Effective index n_eff
    <input id="neff" name="neff" type="number" step="any" min="0" value="{{.Controls.IndexText}}">
  </label>
  <label>Angle of incidence (deg)
    <input id="aoi" name="theta" type="number" step="any" min="{{.MinDeg}}" max="{{.MaxDeg}}" value="{{.Controls.AngleText}}">
    <input id="aoiRange" type="range" step="0.1" min="{{.MinDeg}}" max="{{.MaxDeg}}" value="{{.Controls.SliderText}}" oninput="this.form.theta.value=this.value" onchange="this.form.submit()">
  </label>
  <button type="submit">Update</button>
</form>
<div class="readouts">
  <div><span>Shifted center (nm)</span><output id="outLambda">{{.Snapshot.Readouts.Shifted}}</output></div>
  <div><span>Shift (nm)</span><output id="outDelta">{{.Snapshot.Readouts.Delta}}</output></div>
  <div><span>Shift (%)</span><output id="outPct">{{.Snapshot.Readouts.Percent}}</output></div>
</div>
<div class="diagrams">
{{.RaySVG}}
{{.TransmissionSVG}}
</div>
<footer>
  Model: {{.Strictness}}.
  <a href="/api/v1/diagram/transmission.png?{{.Query}}">PNG</a> ·
  <a href="/api/v1/sweep.png?{{.Query}}">sweep</a> ·
  <a href="/api/v1/qr.png?{{.Query}}">QR</a>
</footer>
</body>
</html>
`))

type pageData struct {
	Controls        *widget.Controls
	Snapshot        widget.Snapshot
	Presets         []optics.Preset
	Strictness      string
	RaySVG          template.HTML
	TransmissionSVG template.HTML
	Query           template.URL
	MinNm, MaxNm    float64
	MinDeg, MaxDeg  float64
}

// handlePage renders the widget from the query string. A submitted form
// counts as a committed edit, so the wavelength is clamped into range.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	c := widget.NewControls(s.presets())
	if q.Has("lambda0") {
		c.SetWavelengthText(q.Get("lambda0"))
		c.CommitWavelength()
	}
	if name := q.Get("preset"); name != "" {
		c.SelectPreset(name)
	}
	if q.Has("neff") {
		c.SetIndexText(q.Get("neff"))
	}
	if q.Has("theta") {
		c.SetAngle(q.Get("theta"), widget.FromNumber)
	}

	snap := widget.Update(c, s.Strictness)
	canonical := url.Values{
		"lambda0": {c.WavelengthText},
		"neff":    {c.IndexText},
		"theta":   {c.AngleText},
	}

	data := pageData{
		Controls:        c,
		Snapshot:        snap,
		Presets:         c.Presets(),
		Strictness:      s.Strictness.String(),
		RaySVG:          template.HTML(diagram.RaySVG(snap.Ray)),
		TransmissionSVG: template.HTML(diagram.TransmissionSVG(snap.Transmission)),
		Query:           template.URL(canonical.Encode()),
		MinNm:           optics.MinWavelengthNm,
		MaxNm:           optics.MaxWavelengthNm,
		MinDeg:          optics.MinAngleDeg,
		MaxDeg:          optics.MaxAngleDeg,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.Error("page render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("page write failed", "error", err)
	}
}
