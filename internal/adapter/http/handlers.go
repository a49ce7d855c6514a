package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/weather-insight-service/internal/analysis"
	"github.com/couchcryptid/weather-insight-service/internal/domain"
)

// maxRequestBodySize caps JSON request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// Handler maps API requests to AnalysisService calls.
type Handler struct {
	svc      AnalysisService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler. Validation errors name fields by their JSON keys.
func NewHandler(svc AnalysisService, logger *slog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{svc: svc, validate: v, logger: logger}
}

// RegisterRoutes mounts the /v1 endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analysis/point", h.HandlePoint)
	r.Post("/analysis/area", h.HandleArea)
	r.Post("/analysis/route", h.HandleRoute)
	r.Get("/analysis/latest", h.HandleLatest)
	r.Get("/analysis/latest/export", h.HandleExport)
	r.Post("/alternatives", h.HandleAlternatives)
	r.Post("/assistant", h.HandleAssistant)
}

// --- request bodies ---

// selection is the date range and condition toggles shared by every request.
type selection struct {
	StartDate  string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	Conditions []string `json:"conditions" validate:"omitempty,dive,required"`
}

func (s selection) parse() (domain.DateRange, domain.ConditionSet, error) {
	dates, err := domain.ParseDateRange(s.StartDate, s.EndDate)
	if err != nil {
		return domain.DateRange{}, nil, err
	}
	enabled, err := domain.ParseConditionSet(s.Conditions)
	if err != nil {
		return domain.DateRange{}, nil, err
	}
	return dates, enabled, nil
}

type pointRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
	selection
}

func (p pointRequest) point() domain.LatLng {
	return domain.LatLng{Lat: *p.Lat, Lng: *p.Lng}
}

type areaRequest struct {
	Rectangle *domain.Bounds `json:"rectangle" validate:"required_without=Polygon"`
	Polygon   [][2]float64   `json:"polygon" validate:"required_without=Rectangle,omitempty,min=3"`
	Grid      int            `json:"grid" validate:"omitempty,min=1,max=10"`
	selection
}

func (a areaRequest) shape() domain.Shape {
	s := domain.Shape{Rectangle: a.Rectangle}
	for _, v := range a.Polygon {
		s.Polygon = append(s.Polygon, domain.LatLng{Lat: v[0], Lng: v[1]})
	}
	return s
}

type routeRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	selection
}

type assistantRequest struct {
	Message string `json:"message" validate:"required"`
	selection
}

// --- responses ---

// sampleData marks results computed from synthetic data.
func sampleData(p domain.Provenance) bool { return p == domain.ProvenanceFallback }

type pointResponse struct {
	analysis.PointAnalysis
	OverallRisk float64 `json:"overallRisk"`
	SampleData  bool    `json:"sampleData"`
}

type areaResponse struct {
	analysis.AreaAnalysis
	OverallRisk float64 `json:"overallRisk"`
	SampleData  bool    `json:"sampleData"`
}

type routeResponse struct {
	analysis.RoutePlan
	SampleData bool `json:"sampleData"`
}

type snapshotResponse struct {
	domain.Snapshot
	OverallRisk float64 `json:"overallRisk"`
	SampleData  bool    `json:"sampleData"`
}

// --- handlers ---

// HandlePoint handles POST /v1/analysis/point.
func (h *Handler) HandlePoint(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !h.decode(w, r, &req) {
		return
	}
	dates, enabled, err := req.parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.AnalyzePoint(r.Context(), req.point(), dates, enabled)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pointResponse{
		PointAnalysis: res,
		OverallRisk:   domain.OverallRisk(res.Result),
		SampleData:    sampleData(res.Provenance),
	})
}

// HandleArea handles POST /v1/analysis/area.
func (h *Handler) HandleArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if !h.decode(w, r, &req) {
		return
	}
	dates, enabled, err := req.parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.AnalyzeArea(r.Context(), req.shape(), req.Grid, dates, enabled)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, areaResponse{
		AreaAnalysis: res,
		OverallRisk:  domain.OverallRisk(res.Result),
		SampleData:   sampleData(res.Provenance),
	})
}

// HandleRoute handles POST /v1/analysis/route.
func (h *Handler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if !h.decode(w, r, &req) {
		return
	}
	dates, enabled, err := req.parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	plan, err := h.svc.PlanRoute(r.Context(), req.Start, req.End, dates, enabled)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{RoutePlan: plan, SampleData: sampleData(plan.Provenance)})
}

// HandleAlternatives handles POST /v1/alternatives.
func (h *Handler) HandleAlternatives(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !h.decode(w, r, &req) {
		return
	}
	dates, enabled, err := req.parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	alts, err := h.svc.FindAlternatives(r.Context(), req.point(), dates, enabled)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if alts == nil {
		alts = []analysis.AlternativeCandidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alternatives": alts})
}

// HandleLatest handles GET /v1/analysis/latest.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Latest()
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: no analysis has completed yet", domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		Snapshot:    snap,
		OverallRisk: domain.OverallRisk(snap.Analysis),
		SampleData:  sampleData(snap.Provenance),
	})
}

// HandleExport handles GET /v1/analysis/latest/export?format=csv|json.
// The body is rendered before any header is written so a failed export
// still produces a clean error response.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = domain.FormatJSON
	}
	snap, ok := h.svc.Latest()
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: nothing to export, run an analysis first", domain.ErrNotFound))
		return
	}

	var buf bytes.Buffer
	if err := domain.Export(&buf, snap, format); err != nil {
		h.writeError(w, r, err)
		return
	}

	contentType := "application/json"
	if format == domain.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", domain.ExportFilename(format, snap.Timestamp)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleAssistant handles POST /v1/assistant.
func (h *Handler) HandleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if !h.decode(w, r, &req) {
		return
	}
	dates, enabled, err := req.parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reply, err := h.svc.Reply(r.Context(), req.Message, dates, enabled)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = "request body too large"
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		}
		h.writeError(w, r, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, msg, err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidInput, describeValidation(err)))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
