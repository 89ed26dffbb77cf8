package http

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"heartrisk/app"
	"heartrisk/dataset"
	"heartrisk/patient"
	"heartrisk/report"
)

const barWidth = 360.0

// formField is one sidebar control with its current value.
type formField struct {
	patient.Field
	Value float64
}

type chartView struct {
	report.Chart
	Height int
	Rows   []barView
}

type barView struct {
	Label string
	Text  string
	Y     int
	Width float64
}

type datasetView struct {
	Rows    int
	Head    dataset.Table
	Summary []dataset.ColumnSummary
	Balance chartView
}

type pageView struct {
	Trigger    string
	Fields     []formField
	Entries    []patient.Entry
	Prediction *report.Prediction
	Dataset    *datasetView
	Importance *chartView
	Format     func(float64) string
}

func registerPageHandlers(mux *http.ServeMux, h *handlers) {
	mux.HandleFunc("GET /{$}", h.handlePage)
}

// handlePage renders the form. Query values carry the field inputs; under the
// button trigger a "predict" query value stands for the pressed button.
func (h *handlers) handlePage(w http.ResponseWriter, r *http.Request) {
	rc := h.provider.Current()
	query := r.URL.Query()

	record, err := rc.Collector.CollectValues(query)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	view := pageView{
		Trigger: rc.Config.Form.Trigger,
		Entries: record.Entries(),
		Format:  rc.Presenter.FormatValue,
	}
	values := record.Vector()
	for i, field := range rc.Collector.Fields() {
		view.Fields = append(view.Fields, formField{Field: field, Value: values[i]})
	}

	if report.ShouldPredict(rc.Config.Form.Trigger, query.Has("predict")) {
		prediction, err := h.predict(r.Context(), rc, record, "page")
		if err != nil {
			h.logger.Error("prediction failed", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		view.Prediction = &prediction
	}

	if rc.Dataset != nil {
		if view.Dataset, view.Importance, err = h.datasetSection(r, rc); err != nil {
			h.logger.Error("dataset section failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		h.logger.Error("render page", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *handlers) datasetSection(r *http.Request, rc *app.Context) (*datasetView, *chartView, error) {
	ctx := r.Context()
	head, err := rc.Dataset.Head(ctx, rc.Config.Dataset.HeadRows)
	if err != nil {
		return nil, nil, err
	}
	summary, err := rc.Dataset.Describe(ctx)
	if err != nil {
		return nil, nil, err
	}
	balance, err := rc.Dataset.ClassBalance(ctx)
	if err != nil {
		return nil, nil, err
	}
	importance, err := importanceChart(rc)
	if err != nil {
		return nil, nil, err
	}

	format := rc.Presenter.FormatValue
	importanceView := newChartView(importance, rc.Presenter.FormatPercent)
	return &datasetView{
		Rows:    rc.Dataset.Len(),
		Head:    head,
		Summary: summary,
		Balance: newChartView(report.BalanceChart(balance), format),
	}, &importanceView, nil
}

func newChartView(chart report.Chart, format func(float64) string) chartView {
	view := chartView{Chart: chart, Height: len(chart.Bars) * 24}
	for i, bar := range chart.Bars {
		view.Rows = append(view.Rows, barView{
			Label: bar.Label,
			Text:  format(bar.Value),
			Y:     i * 24,
			Width: chart.Width(bar.Value, barWidth),
		})
	}
	return view
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Heart Failure Prediction App</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; }
aside { width: 300px; padding: 1rem; background: #f4f4f8; min-height: 100vh; }
main { flex: 1; padding: 1rem 2rem; }
label { display: block; margin-top: .6rem; font-size: .9rem; }
.verdict.error { color: #b00020; }
.verdict.success { color: #1b7f3b; }
table { border-collapse: collapse; font-size: .85rem; margin-bottom: 1rem; }
td, th { border: 1px solid #ddd; padding: 2px 6px; text-align: right; }
svg text { font-size: 12px; }
</style>
</head>
<body>
<aside>
<h2>Enter Patient Data</h2>
<form id="patient" method="get" action="/">
{{range .Fields}}
<label for="{{.Name}}">{{.Label}}: <output id="{{.Name}}-out">{{call $.Format .Value}}</output></label>
{{if .Choices}}
<select id="{{.Name}}" name="{{.Name}}">
{{$v := .Value}}{{range .Choices}}<option value="{{.}}"{{if eq (printf "%d" .) (printf "%.0f" $v)}} selected{{end}}>{{.}}</option>{{end}}
</select>
{{else}}
<input type="range" id="{{.Name}}" name="{{.Name}}" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}" value="{{.Value}}">
{{end}}
{{end}}
{{if eq .Trigger "button"}}<p><button type="submit" name="predict" value="1">Predict</button></p>{{end}}
</form>
</aside>
<main>
<h1>Heart Failure Prediction App</h1>
<p>This app predicts the <strong>likelihood of death</strong> during the follow-up period for heart failure patients.</p>
<h3>Patient Data</h3>
<table>
<tr>{{range .Entries}}<th>{{.Name}}</th>{{end}}</tr>
<tr>{{range .Entries}}<td>{{call $.Format .Value}}</td>{{end}}</tr>
</table>
<div id="result">
{{with .Prediction}}
<h3>Prediction</h3>
<p class="verdict {{.Verdict.Severity}}">{{.Verdict.Message}}</p>
<h3>Prediction Probability</h3>
<p>{{.ProbabilityText}}</p>
{{end}}
</div>
{{with .Dataset}}
<h2>Reference Dataset ({{.Rows}} rows)</h2>
<table>
<tr>{{range .Head.Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Head.Rows}}<tr>{{range .}}<td>{{call $.Format .}}</td>{{end}}</tr>{{end}}
</table>
<h3>Summary</h3>
<table>
<tr><th></th><th>count</th><th>mean</th><th>std</th><th>min</th><th>25%</th><th>50%</th><th>75%</th><th>max</th></tr>
{{range .Summary}}<tr><th>{{.Column}}</th><td>{{.Count}}</td><td>{{printf "%.3f" .Mean}}</td><td>{{printf "%.3f" .Std}}</td><td>{{printf "%.3f" .Min}}</td><td>{{printf "%.3f" .Q25}}</td><td>{{printf "%.3f" .Median}}</td><td>{{printf "%.3f" .Q75}}</td><td>{{printf "%.3f" .Max}}</td></tr>{{end}}
</table>
{{template "chart" .Balance}}
{{end}}
{{with .Importance}}{{template "chart" .}}{{end}}
<script>
(function () {
  var form = document.getElementById("patient");
  var result = document.getElementById("result");
  var live = {{if eq .Trigger "always"}}true{{else}}false{{end}};
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + "/api/ws/predict");
  var seq = 0;
  function record() {
    var out = {};
    new FormData(form).forEach(function (v, k) { if (k !== "predict") out[k] = v; });
    return out;
  }
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type !== "prediction") return;
    var p = msg.prediction;
    result.innerHTML = "";
    function add(tag, text, cls) {
      var el = document.createElement(tag);
      el.textContent = text;
      if (cls) el.className = cls;
      result.appendChild(el);
    }
    add("h3", "Prediction");
    add("p", p.verdict.message, "verdict " + p.verdict.severity);
    add("h3", "Prediction Probability");
    add("p", p.probability_text);
  };
  form.addEventListener("input", function (ev) {
    var out = document.getElementById(ev.target.id + "-out");
    if (out) out.textContent = ev.target.value;
    if (live && ws.readyState === WebSocket.OPEN) {
      seq++;
      ws.send(JSON.stringify({type: "predict", id: String(seq), record: record()}));
    }
  });
})();
</script>
</main>
</body>
</html>
{{define "chart"}}
<h3>{{.Title}}</h3>
<svg width="600" height="{{.Height}}" role="img" aria-label="{{.Title}}">
{{range .Rows}}<g transform="translate(0,{{.Y}})">
<text x="0" y="16">{{.Label}}</text>
<rect x="200" y="4" width="{{printf "%.1f" .Width}}" height="16" fill="#4c78a8"></rect>
<text x="{{printf "%.1f" .Width}}" dx="206" y="16">{{.Text}}</text>
</g>{{end}}
</svg>
{{end}}`))
