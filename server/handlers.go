package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mirdata/core/dataset"
	"mirdata/datasets"
	"mirdata/logger"
	"mirdata/model"
	"mirdata/repository"

	"github.com/gorilla/mux"
)

// OpenFunc creates the named dataset.
type OpenFunc func(name string) (*dataset.Dataset, error)

// Handler serves the browsing API. Datasets are opened once and kept, so
// their indexes and metadata are only read on first use.
type Handler struct {
	open OpenFunc
	runs repository.ValidationRepository

	mu     sync.Mutex
	opened map[string]*dataset.Dataset
}

// NewHandler creates a Handler. runs may be nil, which disables recording
// and listing validation history.
func NewHandler(open OpenFunc, runs repository.ValidationRepository) *Handler {
	return &Handler{open: open, runs: runs, opened: map[string]*dataset.Dataset{}}
}

func (h *Handler) dataset(name string) (*dataset.Dataset, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d, ok := h.opened[name]; ok {
		return d, nil
	}
	d, err := h.open(name)
	if err != nil {
		return nil, err
	}
	h.opened[name] = d
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, datasets.ErrUnknownDataset), errors.Is(err, dataset.ErrUnknownTrack):
		status = http.StatusNotFound
	case errors.Is(err, dataset.ErrNoJAMS):
		status = http.StatusNotImplemented
	default:
		logger.Error("request failed", logger.ErrorField(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type datasetSummary struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	HomePage string `json:"homePage,omitempty"`
	DataHome string `json:"dataHome"`
}

type datasetDetail struct {
	datasetSummary
	License    string `json:"license,omitempty"`
	Bibtex     string `json:"bibtex,omitempty"`
	TrackCount int    `json:"trackCount"`
}

func summarize(d *dataset.Dataset) datasetSummary {
	return datasetSummary{
		Name:     d.Name(),
		Version:  d.Version(),
		HomePage: d.HomePage(),
		DataHome: d.DataHome(),
	}
}

// ListDatasets handles GET /datasets.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	out := []datasetSummary{}
	for _, name := range datasets.Names() {
		d, err := h.dataset(name)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, summarize(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDataset handles GET /datasets/{name}.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	d, err := h.dataset(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := d.TrackIDs()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetDetail{
		datasetSummary: summarize(d),
		License:        d.License(),
		Bibtex:         d.Cite(),
		TrackCount:     len(ids),
	})
}

// ListTracks handles GET /datasets/{name}/tracks.
func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	d, err := h.dataset(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := d.TrackIDs()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

type trackDetail struct {
	ID       string                       `json:"id"`
	Dataset  string                       `json:"dataset"`
	Files    map[string]dataset.FileEntry `json:"files"`
	Metadata any                          `json:"metadata,omitempty"`
}

// GetTrack handles GET /datasets/{name}/tracks/{id}.
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := h.dataset(vars["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := d.Track(vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	md, err := t.Metadata()
	if err != nil {
		logger.Debug("track metadata unavailable", logger.String("track", t.ID), logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, trackDetail{ID: t.ID, Dataset: t.Dataset, Files: t.Files(), Metadata: md})
}

// GetTrackJAMS handles GET /datasets/{name}/tracks/{id}/jams.
func (h *Handler) GetTrackJAMS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := h.dataset(vars["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := d.JAMS(vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := doc.Encode(w); err != nil {
		logger.Error("failed to encode JAMS", logger.ErrorField(err))
	}
}

type validateResponse struct {
	RunID string `json:"runId,omitempty"`
	OK    bool   `json:"ok"`
	*dataset.Report
}

// Validate handles POST /datasets/{name}/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	d, err := h.dataset(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	started := time.Now()
	report, err := d.Validate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := validateResponse{OK: report.OK(), Report: report}
	if h.runs != nil {
		run := model.NewValidationRun(d, report, started, time.Now())
		if err := h.runs.Save(r.Context(), run); err != nil {
			logger.Error("failed to record validation run", logger.String("dataset", d.Name()), logger.ErrorField(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListValidations handles GET /datasets/{name}/validations.
func (h *Handler) ListValidations(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "validation history is not configured"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.ListByDataset(r.Context(), mux.Vars(r)["name"], limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetValidation handles GET /datasets/{name}/validations/{id}, returning the
// run together with its issues.
func (h *Handler) GetValidation(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "validation history is not configured"})
		return
	}
	vars := mux.Vars(r)
	run, err := h.runs.GetByID(r.Context(), vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if run == nil || run.Dataset != vars["name"] {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "validation run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}
