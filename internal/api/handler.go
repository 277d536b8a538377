package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/wonny/sas/internal/catalog"
	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/task"
	"github.com/wonny/sas/pkg/config"
	"github.com/wonny/sas/pkg/logger"
)

// Handler serves analysis run endpoints
// ⭐ SSOT: 분석 API 핸들러는 이 구조체에서만
type Handler struct {
	runner    *task.Runner
	catalog   *catalog.Catalog
	available func(id string) bool
	observer  contracts.Observer
	analysis  config.AnalysisConfig
	now       func() time.Time
	logger    *logger.Logger
}

// NewHandler creates a run handler. observer receives every completion of
// runs submitted through the API (hub, webhook); available filters the
// analyzer listing to implemented ids.
func NewHandler(
	runner *task.Runner,
	cat *catalog.Catalog,
	available func(id string) bool,
	observer contracts.Observer,
	analysis config.AnalysisConfig,
	log *logger.Logger,
) *Handler {
	return &Handler{
		runner:    runner,
		catalog:   cat,
		available: available,
		observer:  observer,
		analysis:  analysis,
		now:       time.Now,
		logger:    log.WithComponent("api"),
	}
}

// AnalyzerInfo is one row of GET /api/analyzers
type AnalyzerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// ListAnalyzers returns visible analyzers
// GET /api/analyzers
func (h *Handler) ListAnalyzers(w http.ResponseWriter, r *http.Request) {
	entries := h.catalog.List(h.available)

	out := make([]AnalyzerInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, AnalyzerInfo{ID: e.ID, Name: e.Name, Detail: e.Detail})
	}

	respondJSON(w, http.StatusOK, out)
}

// RunBody is the POST /api/runs request
type RunBody struct {
	Analyzers   []string `json:"analyzers"`
	Securities  []string `json:"securities,omitempty"`
	Since       string   `json:"since,omitempty"` // YYYY-MM-DD
	Until       string   `json:"until,omitempty"` // YYYY-MM-DD
	OutputPath  string   `json:"output_path,omitempty"`
	ForceCalc   bool     `json:"force_calc"`
	CacheResult *bool    `json:"cache_result,omitempty"` // default true
	FromJSON    bool     `json:"from_json"`
	DumpJSON    bool     `json:"dump_json"`
}

// toRequest converts the body into a RunRequest with config defaults
func (b RunBody) toRequest(analysis config.AnalysisConfig, now time.Time) (contracts.RunRequest, error) {
	tr, err := contracts.ParseTimeRange(b.Since, b.Until, now, analysis.LookbackYears)
	if err != nil {
		return contracts.RunRequest{}, err
	}

	cacheResult := true
	if b.CacheResult != nil {
		cacheResult = *b.CacheResult
	}
	opts := contracts.ToggleOptions(b.ForceCalc, cacheResult)
	opts.FromJSON = b.FromJSON
	opts.DumpJSON = b.DumpJSON

	output := b.OutputPath
	if output == "" {
		output = analysis.ReportPath
	} else if !filepath.IsLocal(output) {
		// 원격 요청은 프로젝트 디렉터리 밖에 쓸 수 없다
		return contracts.RunRequest{}, fmt.Errorf("%w: output_path must be a relative path inside the project directory", contracts.ErrInvalidRequest)
	}

	return contracts.RunRequest{
		Securities: contracts.NormalizeIDs(b.Securities),
		Analyzers:  contracts.NormalizeIDs(b.Analyzers),
		TimeRange:  tr,
		Options:    opts,
		OutputPath: output,
		Trigger:    contracts.TriggerAPI,
	}, nil
}

// SubmitRun queues a run
// POST /api/runs
func (h *Handler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	var body RunBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := body.toRequest(h.analysis, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := h.runner.Submit(r.Context(), req, h.observer)
	switch {
	case errors.Is(err, contracts.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, task.ErrRunInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, task.ErrRunnerClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to submit run")
		respondError(w, http.StatusInternalServerError, "Failed to submit run")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "accepted",
	})
}

// ProgressItem is the progress of one analyzer
type ProgressItem struct {
	Analyzer string  `json:"analyzer"`
	Rate     float64 `json:"rate"`
	Percent  string  `json:"percent"`
	Finished bool    `json:"finished"`
}

// ProgressResponse is the GET /api/progress response
type ProgressResponse struct {
	Busy      bool           `json:"busy"`
	Analyzers []ProgressItem `json:"analyzers"`
}

// Progress returns the tracker snapshot of the current (or last) run
// GET /api/progress
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	tracker := h.runner.Tracker()
	snapshot := tracker.Snapshot()

	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resp := ProgressResponse{Busy: h.runner.Busy(), Analyzers: make([]ProgressItem, 0, len(keys))}
	for _, k := range keys {
		e := snapshot[k]
		resp.Analyzers = append(resp.Analyzers, ProgressItem{
			Analyzer: k,
			Rate:     e.Rate(),
			Percent:  tracker.Percent(k),
			Finished: e.Finished,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// LastRunResponse is the GET /api/runs/last response
type LastRunResponse struct {
	RunID      string            `json:"run_id"`
	Succeeded  bool              `json:"succeeded"`
	Error      string            `json:"error,omitempty"`
	ElapsedSec float64           `json:"elapsed_s"`
	OutputPath string            `json:"output_path"`
	Results    int               `json:"results"`
	States     []task.State      `json:"states,omitempty"`
	Sources    map[string]string `json:"sources,omitempty"`
}

// LastRun returns the most recent finished run
// GET /api/runs/last
func (h *Handler) LastRun(w http.ResponseWriter, r *http.Request) {
	last := h.runner.Last()
	if last == nil {
		respondError(w, http.StatusNotFound, "No finished run")
		return
	}

	c := last.Completion
	resp := LastRunResponse{
		RunID:      c.RunID,
		Succeeded:  c.Succeeded(),
		Error:      c.ErrorString(),
		ElapsedSec: c.Elapsed.Seconds(),
		OutputPath: c.OutputPath,
		Results:    c.Results,
	}
	if last.Result != nil {
		resp.States = last.Result.States
		resp.Sources = make(map[string]string)
		for id, src := range last.Result.Sources() {
			resp.Sources[id] = string(src)
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
