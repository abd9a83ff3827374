package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yegors/runway-redeclaration/internal/model"
	"github.com/yegors/runway-redeclaration/internal/report"
	"github.com/yegors/runway-redeclaration/internal/session"
	"github.com/yegors/runway-redeclaration/internal/storage/sqlite"
	"github.com/yegors/runway-redeclaration/internal/storage/xmlstore"
	"github.com/yegors/runway-redeclaration/internal/validation"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

// maxBodySize bounds JSON and XML request bodies
const maxBodySize = 1 << 20

// Handler contains the HTTP handlers
type Handler struct {
	service   *session.Service
	journal   *sqlite.RedeclarationStorage
	logger    *logger.Logger
	startTime time.Time
}

// NewHandler creates a new handler
func NewHandler(service *session.Service, journal *sqlite.RedeclarationStorage, logger *logger.Logger) *Handler {
	return &Handler{
		service:   service,
		journal:   journal,
		logger:    logger.Named("api-handler"),
		startTime: time.Now(),
	}
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error      string                  `json:"error"`
	Violations []*validation.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps service errors onto HTTP statuses
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var vr *validation.Report
	var v *validation.Violation
	switch {
	case errors.As(err, &vr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Violations: vr.Violations})
	case errors.As(err, &v):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Violations: []*validation.Violation{v}})
	case errors.Is(err, session.ErrAirportNotFound),
		errors.Is(err, session.ErrRunwayNotFound),
		errors.Is(err, session.ErrObstacleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrSeedObstacle):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrUnknownProcedure),
		errors.Is(err, xmlstore.ErrMalformed):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// GetHealth returns the health status
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"airports": len(h.service.AirportNames()),
		"journal":  h.journal != nil,
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
	})
}

// GetAllAirports returns every airport
func (h *Handler) GetAllAirports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"airports": h.service.Airports(),
	})
}

type nameRequest struct {
	Name string `json:"name"`
}

// CreateAirport registers an empty airport
func (h *Handler) CreateAirport(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := h.service.CreateAirport(req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// ImportAirport registers an airport from an XML document in the body
func (h *Handler) ImportAirport(w http.ResponseWriter, r *http.Request) {
	rec, err := xmlstore.Decode(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	state, err := h.service.ImportAirport(rec)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// GetAirport returns one airport
func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Airport(chi.URLParam(r, "airport"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// RenameAirport changes an airport's name
func (h *Handler) RenameAirport(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := h.service.RenameAirport(chi.URLParam(r, "airport"), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteAirport removes an airport
func (h *Handler) DeleteAirport(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAirport(chi.URLParam(r, "airport")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportAirport returns the airport as an XML attachment. An optional
// filename query parameter names the attachment and must have the form
// <name>.xml.
func (h *Handler) ExportAirport(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.ExportAirport(chi.URLParam(r, "airport"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	filename := rec.Name + ".xml"
	if s := r.URL.Query().Get("filename"); s != "" {
		if err := validation.CheckXMLFilename(s); err != nil {
			h.respondError(w, r, err)
			return
		}
		filename = s
	}

	var buf bytes.Buffer
	if err := xmlstore.Encode(&buf, rec); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetRunway returns one runway
func (h *Handler) GetRunway(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Runway(chi.URLParam(r, "airport"), chi.URLParam(r, "runway"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// AddRunway adds a runway described by raw form fields
func (h *Handler) AddRunway(w http.ResponseWriter, r *http.Request) {
	var req validation.RunwayFields
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := h.service.AddRunway(chi.URLParam(r, "airport"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// ModifyRunway replaces a runway's designator and published distances
func (h *Handler) ModifyRunway(w http.ResponseWriter, r *http.Request) {
	var req validation.RunwayFields
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := h.service.ModifyRunway(chi.URLParam(r, "airport"), chi.URLParam(r, "runway"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteRunway removes a runway
func (h *Handler) DeleteRunway(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRunway(chi.URLParam(r, "airport"), chi.URLParam(r, "runway")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddObstacle places an obstacle on a runway
func (h *Handler) AddObstacle(w http.ResponseWriter, r *http.Request) {
	var req validation.ObstacleFields
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.service.AddObstacle(chi.URLParam(r, "airport"), chi.URLParam(r, "runway"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// ModifyObstacle replaces an obstacle's name and geometry
func (h *Handler) ModifyObstacle(w http.ResponseWriter, r *http.Request) {
	var req validation.ObstacleFields
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.service.ModifyObstacle(chi.URLParam(r, "airport"), chi.URLParam(r, "runway"),
		chi.URLParam(r, "obstacle"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeleteObstacle removes an obstacle
func (h *Handler) DeleteObstacle(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteObstacle(chi.URLParam(r, "airport"), chi.URLParam(r, "runway"), chi.URLParam(r, "obstacle"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type redeclareRequest struct {
	Obstacle  string `json:"obstacle"`
	Procedure string `json:"procedure"` // slug or index
}

// Redeclare computes new declared distances for an obstacle and procedure
func (h *Handler) Redeclare(w http.ResponseWriter, r *http.Request) {
	var req redeclareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := model.ParseProcedure(req.Procedure)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out, err := h.service.Redeclare(chi.URLParam(r, "airport"), chi.URLParam(r, "runway"), req.Obstacle, p)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ResetRunway restores a runway's published distances
func (h *Handler) ResetRunway(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.ResetRunway(chi.URLParam(r, "airport"), chi.URLParam(r, "runway"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetReport renders a redeclaration as text (default) or an XLSX workbook
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := model.ParseProcedure(q.Get("procedure"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	airport, runway := chi.URLParam(r, "airport"), chi.URLParam(r, "runway")
	in, err := h.service.Report(airport, runway, q.Get("obstacle"), p)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	var contentType, ext string
	switch format := q.Get("format"); format {
	case "", "txt":
		err = report.WriteText(&buf, in)
		contentType, ext = "text/plain; charset=utf-8", "txt"
	case "xlsx":
		err = report.WriteWorkbook(&buf, in)
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported report format %q", format))
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.%s", airport, runway, ext)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetRedeclarations returns journalled redeclarations, newest first. The
// query may narrow them by airport and by a from/to time window.
func (h *Handler) GetRedeclarations(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "redeclaration journal requires the sqlite storage backend")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var records []*sqlite.RedeclarationRecord
	airport := r.URL.Query().Get("airport")
	switch {
	case !from.IsZero() || !to.IsZero():
		if to.IsZero() {
			to = time.Now()
		}
		records, err = h.journal.GetRedeclarationsByTimeRange(from, to)
		if err == nil {
			records = filterRedeclarations(records, airport, limit)
		}
	case airport != "":
		records, err = h.journal.GetRedeclarationsByAirport(airport, limit)
	default:
		records, err = h.journal.GetRecentRedeclarations(limit)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"redeclarations": records,
		"count":          len(records),
	})
}

// parseTimeRange reads the optional RFC 3339 from and to query parameters
func parseTimeRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			return from, to, errors.New("from must be an RFC 3339 time")
		}
	}
	if s := q.Get("to"); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			return from, to, errors.New("to must be an RFC 3339 time")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("to must not be before from")
	}
	return from, to, nil
}

func filterRedeclarations(records []*sqlite.RedeclarationRecord, airport string, limit int) []*sqlite.RedeclarationRecord {
	out := records[:0]
	for _, rec := range records {
		if airport == "" || rec.Airport == airport {
			out = append(out, rec)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
