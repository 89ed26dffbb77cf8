package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartrisk/app"
	"heartrisk/monitoring"
	"heartrisk/patient"
	"heartrisk/report"
)

type handlers struct {
	provider ContextProvider
	metrics  *monitoring.MetricsCollector
	logger   *zap.Logger
	upgrader websocket.Upgrader
	// writeWait bounds each socket write.
	writeWait time.Duration
}

func newHandlers(provider ContextProvider, metrics *monitoring.MetricsCollector, logger *zap.Logger) *handlers {
	return &handlers{
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		writeWait: defaultWriteWait,
	}
}

func registerHandlers(mux *http.ServeMux, h *handlers) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/fields", h.handleFields)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/model/importance", h.handleImportance)
	mux.HandleFunc("GET /api/dataset/head", h.handleDatasetHead)
	mux.HandleFunc("GET /api/dataset/summary", h.handleDatasetSummary)
	mux.HandleFunc("GET /api/dataset/balance", h.handleDatasetBalance)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	rc := h.provider.Current()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"model_type":   rc.Model.Type(),
		"dataset_rows": rc.DatasetRows(),
	})
}

func (h *handlers) handleFields(w http.ResponseWriter, r *http.Request) {
	rc := h.provider.Current()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fields":   rc.Collector.Fields(),
		"defaults": rc.Collector.Defaults(),
		"trigger":  rc.Config.Form.Trigger,
	})
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	rc := h.provider.Current()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	record, err := rc.Collector.CollectJSON(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	prediction, err := h.predict(r.Context(), rc, record, "api")
	if err != nil {
		h.logger.Error("prediction failed", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, prediction)
}

// predict runs the presenter and records the outcome under source.
func (h *handlers) predict(ctx context.Context, rc *app.Context, record patient.Record, source string) (report.Prediction, error) {
	start := time.Now()
	prediction, err := rc.Presenter.Predict(ctx, record)
	if err != nil {
		h.metrics.RecordError(source)
		return report.Prediction{}, err
	}
	h.metrics.RecordPrediction(prediction.Label, prediction.Probability, time.Since(start))
	return prediction, nil
}

func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, h.metrics.ExportPrometheus())
}

func (h *handlers) handleImportance(w http.ResponseWriter, r *http.Request) {
	rc := h.provider.Current()
	chart, err := importanceChart(rc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, chart)
}

func (h *handlers) handleDatasetHead(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.withDataset(w)
	if !ok {
		return
	}
	n := rc.Config.Dataset.HeadRows
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, errors.New("n must be a non-negative integer"))
			return
		}
		n = parsed
	}
	head, err := rc.Dataset.Head(r.Context(), n)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, head)
}

func (h *handlers) handleDatasetSummary(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.withDataset(w)
	if !ok {
		return
	}
	summary, err := rc.Dataset.Describe(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rows":    rc.Dataset.Len(),
		"columns": summary,
	})
}

func (h *handlers) handleDatasetBalance(w http.ResponseWriter, r *http.Request) {
	rc, ok := h.withDataset(w)
	if !ok {
		return
	}
	balance, err := rc.Dataset.ClassBalance(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

func (h *handlers) withDataset(w http.ResponseWriter) (*app.Context, bool) {
	rc := h.provider.Current()
	if rc.Dataset == nil {
		respondError(w, http.StatusNotFound, errors.New("no reference dataset configured"))
		return nil, false
	}
	return rc, true
}

// importanceChart orders bars by the dataset columns when a dataset is loaded,
// otherwise by the model's own feature order.
func importanceChart(rc *app.Context) (report.Chart, error) {
	columns := patient.Columns()
	if rc.Dataset != nil {
		columns = rc.Dataset.FeatureColumns()
	}
	return report.ImportanceChart(rc.Model, columns)
}

// respondJSON writes data as a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
