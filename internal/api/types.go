// Package api holds the JSON wire types of the quadfuse HTTP API.
package api

import (
	"time"
)

// Defines values for HealthResponseStatus.
const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrInvalidImage      = "INVALID_IMAGE"
	ErrInvalidMultipart  = "INVALID_MULTIPART"
	ErrValidation        = "VALIDATION_ERROR"
	ErrDimensionMismatch = "DIMENSION_MISMATCH"
	ErrMissingTile       = "MISSING_TILE"
	ErrInternal          = "INTERNAL_ERROR"
)

// HealthResponseStatus is the service state.
type HealthResponseStatus string

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// Range is the accepted interval of one control.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ParametersResponse lists the default composite controls and their ranges.
type ParametersResponse struct {
	Defaults OverlayParameters `json:"defaults"`
	Ranges   map[string]Range  `json:"ranges"`
}

// OverlayParameters defines model for OverlayParameters.
type OverlayParameters struct {
	Alpha      float64 `json:"alpha"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Threshold  int     `json:"threshold"`
}

// CompositeParams defines parameters for the composite and overlay endpoints.
// Unset fields fall back to the defaults.
type CompositeParams struct {
	Alpha      *float64 `form:"alpha,omitempty" json:"alpha,omitempty"`
	Brightness *float64 `form:"brightness,omitempty" json:"brightness,omitempty"`
	Contrast   *float64 `form:"contrast,omitempty" json:"contrast,omitempty"`
	Saturation *float64 `form:"saturation,omitempty" json:"saturation,omitempty"`
	Threshold  *int     `form:"threshold,omitempty" json:"threshold,omitempty"`
	// Preview, when set, downsizes the result to fit a Preview x Preview box.
	Preview *int `form:"preview,omitempty" json:"preview,omitempty"`
}

// PseudoParams defines parameters for the pseudo endpoint.
type PseudoParams struct {
	Channel string `form:"channel" json:"channel"`
	Preview *int   `form:"preview,omitempty" json:"preview,omitempty"`
}

// ReassembleParams defines parameters for the reassemble endpoint.
type ReassembleParams struct {
	Preview *int `form:"preview,omitempty" json:"preview,omitempty"`
}
