package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"

	"github.com/kiesman99/quadfuse/internal/api"
	"github.com/kiesman99/quadfuse/internal/overlay"
	"github.com/kiesman99/quadfuse/internal/pseudo"
	"github.com/kiesman99/quadfuse/pkg/raster"
	"github.com/kiesman99/quadfuse/pkg/tile"
)

// DefaultMaxUpload bounds the multipart body of one request.
const DefaultMaxUpload = 64 << 20

// Server serves the compositing pipeline over HTTP. It keeps no per-request
// state: every call decodes its own inputs and builds its own parameters.
type Server struct {
	startTime time.Time
	version   string
	maxUpload int64
	defaults  overlay.Params
}

// Option customises a Server.
type Option func(*Server)

// WithMaxUpload sets the multipart body limit in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithDefaults sets the parameters used for unset query values.
func WithDefaults(p overlay.Params) Option {
	return func(s *Server) { s.defaults = p }
}

// NewServer creates a new server instance
func NewServer(version string, opts ...Option) *Server {
	s := &Server{
		startTime: time.Now(),
		version:   version,
		maxUpload: DefaultMaxUpload,
		defaults:  overlay.DefaultParams(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}
	s.writeJSON(w, http.StatusOK, response)
}

// GetParameters returns the default composite controls and their ranges.
func (s *Server) GetParameters(w http.ResponseWriter, r *http.Request) {
	d := s.defaults
	factor := api.Range{Min: overlay.MinFactor, Max: overlay.MaxFactor}
	response := api.ParametersResponse{
		Defaults: api.OverlayParameters{
			Alpha:      d.Alpha,
			Brightness: d.Brightness,
			Contrast:   d.Contrast,
			Saturation: d.Saturation,
			Threshold:  d.Threshold,
		},
		Ranges: map[string]api.Range{
			"brightness": factor,
			"contrast":   factor,
			"saturation": factor,
			"threshold":  {Min: 0, Max: 255},
		},
	}
	s.writeJSON(w, http.StatusOK, response)
}

// Reassemble stitches the multipart fields lu, ru, ld and rd into one frame.
func (s *Server) Reassemble(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var params api.ReassembleParams
	if err := runtime.BindQueryParameter("form", true, false, "preview", r.URL.Query(), &params.Preview); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrValidation, err.Error(), &requestID, nil)
		return
	}
	form, ok := s.parseMultipart(w, r, requestID)
	if !ok {
		return
	}

	g := tile.NewGroup("upload")
	for _, c := range tile.Corners {
		field := lowerCorner(c)
		if _, present := form.File[field]; !present {
			continue
		}
		img, err := decodeField(form, field)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, api.ErrInvalidImage,
				fmt.Sprintf("field %q: %v", field, err), &requestID, nil)
			return
		}
		g.Set(c, img)
	}

	frame, err := tile.Reassemble(g)
	if err != nil {
		s.handlePipelineError(w, err, &requestID)
		return
	}
	s.writeImage(w, requestID, preview(frame, params.Preview))
}

// Pseudo maps the multipart field image onto the channel query parameter.
func (s *Server) Pseudo(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var params api.PseudoParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "channel", q, &params.Channel); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrValidation, err.Error(), &requestID, nil)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "preview", q, &params.Preview); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrValidation, err.Error(), &requestID, nil)
		return
	}
	channel, err := pseudo.ParseChannel(params.Channel)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrValidation, err.Error(), &requestID, nil)
		return
	}

	form, ok := s.parseMultipart(w, r, requestID)
	if !ok {
		return
	}
	src, err := decodeField(form, "image")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrInvalidImage, err.Error(), &requestID, nil)
		return
	}
	out, err := pseudo.Map(src, channel)
	if err != nil {
		s.handlePipelineError(w, err, &requestID)
		return
	}
	s.writeImage(w, requestID, preview(out, params.Preview))
}

// Composite blends the already pseudo-colored fields primary and secondary.
func (s *Server) Composite(w http.ResponseWriter, r *http.Request) {
	s.composite(w, r, "primary", "secondary", false)
}

// Overlay maps the raw fields red and green onto their channels and then
// composites them.
func (s *Server) Overlay(w http.ResponseWriter, r *http.Request) {
	s.composite(w, r, "red", "green", true)
}

func (s *Server) composite(w http.ResponseWriter, r *http.Request, primaryField, secondaryField string, mapFirst bool) {
	requestID := requestIDFrom(r)

	params, err := s.bindCompositeParams(r)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrValidation, err.Error(), &requestID, nil)
		return
	}
	p := s.overlayParams(params)
	if err := p.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrValidation, err.Error(), &requestID, nil)
		return
	}

	form, ok := s.parseMultipart(w, r, requestID)
	if !ok {
		return
	}
	inputs := make([]*raster.Raster, 2)
	for i, field := range []string{primaryField, secondaryField} {
		img, err := decodeField(form, field)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, api.ErrInvalidImage,
				fmt.Sprintf("field %q: %v", field, err), &requestID, nil)
			return
		}
		inputs[i] = img
	}

	if mapFirst {
		for i, c := range []pseudo.Channel{overlay.PrimaryChannel, overlay.SecondaryChannel} {
			mapped, err := pseudo.Map(inputs[i], c)
			if err != nil {
				s.handlePipelineError(w, err, &requestID)
				return
			}
			inputs[i] = mapped
		}
	}

	res, err := overlay.Render(inputs[0], inputs[1], p)
	if err != nil {
		s.handlePipelineError(w, err, &requestID)
		return
	}
	log.Printf("[%s] composite %dx%d %s", requestID, res.Raster.Width, res.Raster.Height, res.Params)
	w.Header().Set("X-Overlay-Parameters", res.Params.String())
	s.writeImage(w, requestID, preview(res.Raster, params.Preview))
}

// bindCompositeParams reads the optional query controls.
func (s *Server) bindCompositeParams(r *http.Request) (*api.CompositeParams, error) {
	var params api.CompositeParams
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "alpha", q, &params.Alpha); err != nil {
		return nil, fmt.Errorf("invalid format for parameter alpha: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "brightness", q, &params.Brightness); err != nil {
		return nil, fmt.Errorf("invalid format for parameter brightness: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "contrast", q, &params.Contrast); err != nil {
		return nil, fmt.Errorf("invalid format for parameter contrast: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "saturation", q, &params.Saturation); err != nil {
		return nil, fmt.Errorf("invalid format for parameter saturation: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "threshold", q, &params.Threshold); err != nil {
		return nil, fmt.Errorf("invalid format for parameter threshold: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "preview", q, &params.Preview); err != nil {
		return nil, fmt.Errorf("invalid format for parameter preview: %w", err)
	}
	return &params, nil
}

// overlayParams builds a fresh snapshot from the defaults and the request.
func (s *Server) overlayParams(q *api.CompositeParams) overlay.Params {
	p := s.defaults
	if q.Alpha != nil {
		p.Alpha = *q.Alpha
	}
	if q.Brightness != nil {
		p.Brightness = *q.Brightness
	}
	if q.Contrast != nil {
		p.Contrast = *q.Contrast
	}
	if q.Saturation != nil {
		p.Saturation = *q.Saturation
	}
	if q.Threshold != nil {
		p.Threshold = *q.Threshold
	}
	return p
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, requestID string) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrInvalidMultipart,
			"Request body must be multipart/form-data", &requestID, map[string]interface{}{
				"reason": err.Error(),
			})
		return nil, false
	}
	return r.MultipartForm, true
}

func decodeField(form *multipart.Form, field string) (*raster.Raster, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, fmt.Errorf("missing file field %q", field)
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return raster.Decode(f)
}

func lowerCorner(c tile.Corner) string {
	switch c {
	case tile.TopLeft:
		return "lu"
	case tile.TopRight:
		return "ru"
	case tile.BottomLeft:
		return "ld"
	default:
		return "rd"
	}
}

func preview(r *raster.Raster, size *int) *raster.Raster {
	if size == nil || *size <= 0 {
		return r
	}
	return raster.Thumbnail(r, *size, *size)
}

// handlePipelineError maps pipeline failures to HTTP responses.
func (s *Server) handlePipelineError(w http.ResponseWriter, err error, requestID *string) {
	var dimErr *raster.DimensionError
	var tileErr *tile.MissingTileError

	switch {
	case errors.As(err, &tileErr):
		missing := make([]string, len(tileErr.Missing))
		for i, c := range tileErr.Missing {
			missing[i] = lowerCorner(c)
		}
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, api.ErrMissingTile,
			err.Error(), requestID, map[string]interface{}{"missing": missing})
	case errors.As(err, &dimErr):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, api.ErrDimensionMismatch,
			err.Error(), requestID, map[string]interface{}{
				"expected": []int{dimErr.Want.X, dimErr.Want.Y},
				"got":      []int{dimErr.Got.X, dimErr.Got.Y},
			})
	case errors.Is(err, raster.ErrDimensionMismatch):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, api.ErrDimensionMismatch, err.Error(), requestID, nil)
	case errors.Is(err, raster.ErrInvalidArgument):
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrValidation, err.Error(), requestID, nil)
	default:
		log.Printf("[%s] pipeline error: %v", *requestID, err)
		s.writeErrorResponse(w, http.StatusInternalServerError, api.ErrInternal,
			"Internal server error", requestID, nil)
	}
}

// writeImage encodes the raster as PNG and writes it.
func (s *Server) writeImage(w http.ResponseWriter, requestID string, img *raster.Raster) {
	data, err := raster.EncodePNG(img)
	if err != nil {
		log.Printf("[%s] Error encoding PNG: %v", requestID, err)
		s.writeErrorResponse(w, http.StatusInternalServerError, api.ErrInternal,
			"Internal server error", &requestID, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}
	s.writeJSON(w, statusCode, response)
}

// requestIDFrom prefers the id assigned by the RequestID middleware.
func requestIDFrom(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return generateRequestID()
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
