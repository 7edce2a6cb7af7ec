package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/scrinium/bibrange/core/bibleref"
	"github.com/scrinium/bibrange/core/canonlaw"
	"github.com/scrinium/bibrange/core/query"
	"github.com/scrinium/bibrange/core/rangecode"
	"github.com/scrinium/bibrange/core/timerange"
	"github.com/scrinium/bibrange/internal/config"
	"github.com/scrinium/bibrange/internal/pipeline"
	"github.com/scrinium/bibrange/internal/sink"
	"github.com/scrinium/bibrange/internal/source"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RangeInfo is one resolved range in wire form.
type RangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseRequest is the request body for /parse.
type ParseRequest struct {
	Text string `json:"text"`
	OSIS bool   `json:"osis,omitempty"`
}

// ParseResult is the response payload for /parse.
type ParseResult struct {
	Input  string      `json:"input"`
	Ranges []RangeInfo `json:"ranges"`
	Query  string      `json:"query"`
}

// CanonLawResult is the response payload for /canonlaw.
type CanonLawResult struct {
	Input string    `json:"input"`
	Codex string    `json:"codex"`
	Range RangeInfo `json:"range"`
}

// TimeRangeRequest is the request body for /timerange. Exactly one of
// Text or Code must be set: Text encodes a written time reference,
// Code decodes an encoded range back to text.
type TimeRangeRequest struct {
	Text string `json:"text,omitempty"`
	Code string `json:"code,omitempty"`
}

// TimeRangeResult is the response payload for /timerange.
type TimeRangeResult struct {
	Input string     `json:"input"`
	Range *RangeInfo `json:"range,omitempty"`
	Text  string     `json:"text,omitempty"`
}

// QueryRequest is the request body for /query.
type QueryRequest struct {
	Ranges string `json:"ranges"`
}

// QueryResult is the response payload for /query.
type QueryResult struct {
	Input string `json:"input"`
	Query string `json:"query"`
}

// BatchRequest is the request body for /batch. Unset fields fall back
// to the server's batch configuration.
type BatchRequest struct {
	Input     string   `json:"input"`
	Output    string   `json:"output"`
	Format    string   `json:"format,omitempty"`
	Table     string   `json:"table,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Selectors []string `json:"selectors,omitempty"`
	Workers   int      `json:"workers,omitempty"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	Uptime  string          `json:"uptime"`
	Books   int             `json:"books"`
	Aliases int             `json:"aliases"`
	Driver  sink.DriverInfo `json:"driver"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "bibrange API",
		"version": serverVersion,
		"endpoints": []string{
			"GET|POST /parse",
			"GET|POST /canonlaw",
			"GET|POST /timerange",
			"GET|POST /query",
			"POST /batch",
			"GET /health",
			"GET /metrics",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:  "healthy",
		Version: serverVersion,
		Uptime:  time.Since(s.startTime).String(),
		Books:   s.mappers.Codes.Len(),
		Aliases: s.mappers.Aliases.Len(),
		Driver:  sink.GetDriverInfo(),
	})
}

// textRequest extracts the reference text for the lookup endpoints:
// the "q" query parameter on GET, a JSON body on POST.
func textRequest(w http.ResponseWriter, r *http.Request, req *ParseRequest) bool {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Text = q.Get("q")
		req.OSIS = q.Get("osis") != ""
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON")
			return false
		}
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
		return false
	}

	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "MISSING_TEXT", "A reference text is required")
		return false
	}
	return true
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !textRequest(w, r, &req) {
		return
	}

	if req.OSIS {
		rng, err := bibleref.ParseOSIS(req.Text, s.mappers.Codes)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, "UNPARSED", err.Error())
			return
		}
		respond(w, http.StatusOK, parseResult(req.Text, []rangecode.Range{rng}))
		return
	}

	ranges, ok := s.resolver.ResolveBible(req.Text)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "UNPARSED", "No reference grammar matched the text")
		return
	}
	respond(w, http.StatusOK, parseResult(req.Text, ranges))
}

func (s *Server) handleCanonLaw(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !textRequest(w, r, &req) {
		return
	}

	rng, codex, ok := canonlaw.ParseCitation(req.Text)
	if !ok {
		respondError(w, http.StatusUnprocessableEntity, "UNPARSED", "No canon citation grammar matched the text")
		return
	}
	respond(w, http.StatusOK, CanonLawResult{
		Input: req.Text,
		Codex: codex.String(),
		Range: RangeInfo{Start: rng.Start, End: rng.End},
	})
}

func (s *Server) handleTimeRange(w http.ResponseWriter, r *http.Request) {
	var req TimeRangeRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Text = q.Get("q")
		req.Code = q.Get("code")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON")
			return
		}
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
		return
	}

	switch {
	case req.Text != "" && req.Code != "":
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Set either text or code, not both")
	case req.Text != "":
		rangeStr, ok := timerange.ConvertTextToTimeRange(req.Text, s.cfg.Batch.CenturyBoundaries)
		if !ok {
			respondError(w, http.StatusUnprocessableEntity, "UNPARSED", "No time grammar matched the text")
			return
		}
		start, end, _ := strings.Cut(rangeStr, "_")
		respond(w, http.StatusOK, TimeRangeResult{
			Input: req.Text,
			Range: &RangeInfo{Start: start, End: end},
		})
	case req.Code != "":
		text, ok := timerange.ConvertTimeRangeToText(req.Code)
		if !ok {
			respondError(w, http.StatusUnprocessableEntity, "UNPARSED", "Not a decodable time range code")
			return
		}
		respond(w, http.StatusOK, TimeRangeResult{Input: req.Code, Text: text})
	default:
		respondError(w, http.StatusBadRequest, "MISSING_TEXT", "A text or code value is required")
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	switch r.Method {
	case http.MethodGet:
		req.Ranges = r.URL.Query().Get("ranges")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON")
			return
		}
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and POST are allowed")
		return
	}

	if strings.TrimSpace(req.Ranges) == "" {
		respondError(w, http.StatusBadRequest, "MISSING_RANGES", "A ranges value is required")
		return
	}

	datesQuery, err := query.ConvertToDatesQuery(req.Ranges)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_RANGES", err.Error())
		return
	}
	respond(w, http.StatusOK, QueryResult{Input: req.Ranges, Query: datesQuery})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON")
		return
	}
	if req.Input == "" {
		respondError(w, http.StatusBadRequest, "MISSING_INPUT", "An input path is required")
		return
	}
	if req.Output == "" {
		respondError(w, http.StatusBadRequest, "MISSING_OUTPUT", "An output path is required")
		return
	}

	batch := s.cfg.Batch
	if req.Mode != "" {
		batch.Mode = req.Mode
	}
	if req.Workers > 0 {
		batch.Workers = req.Workers
	}
	if len(req.Selectors) > 0 {
		batch.Selectors = req.Selectors
	}
	switch batch.Mode {
	case config.ModeBible, config.ModeCanonLaw, config.ModeTime:
	default:
		respondError(w, http.StatusBadRequest, "INVALID_MODE", "Mode must be bible, canonlaw or time")
		return
	}

	format := s.cfg.Sink.Format
	if req.Format != "" {
		format = req.Format
	}
	table := s.cfg.Sink.Table
	if req.Table != "" {
		table = req.Table
	}

	src, err := source.Open(req.Input, batch.Selectors)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	defer src.Close()

	out, err := sink.Open(format, req.Output, table)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_OUTPUT", err.Error())
		return
	}

	resolver := pipeline.NewResolver(s.mappers, s.metrics, batch)
	report, err := pipeline.Run(r.Context(), src, out, resolver, pipeline.Options{
		Workers:       batch.Workers,
		InputPath:     req.Input,
		ProgressEvery: 1000,
		OnProgress:    s.hub.BroadcastProgress,
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "BATCH_FAILED", err.Error())
		return
	}
	respond(w, http.StatusOK, report)
}

func parseResult(input string, ranges []rangecode.Range) ParseResult {
	res := ParseResult{Input: input, Ranges: make([]RangeInfo, 0, len(ranges))}
	fragments := make([]string, 0, len(ranges))
	for _, rng := range ranges {
		res.Ranges = append(res.Ranges, RangeInfo{Start: rng.Start, End: rng.End})
		fragments = append(fragments, query.RangeFragment(rng))
	}
	res.Query = strings.Join(fragments, query.OrSeparator)
	return res
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
