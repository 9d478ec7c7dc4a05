package server

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/quadfuse/internal/api"
	"github.com/kiesman99/quadfuse/internal/pseudo"
	"github.com/kiesman99/quadfuse/pkg/raster"
)

// Test server setup
func setupTestServer() *httptest.Server {
	return httptest.NewServer(NewRouter(NewServer("2.0.0-test"), 30*time.Second))
}

func grayPNG(t *testing.T, w, h int, v uint8) []byte {
	t.Helper()
	r := raster.New(w, h, raster.Gray)
	for i := range r.Pix {
		r.Pix[i] = v
	}
	data, err := raster.EncodePNG(r)
	require.NoError(t, err)
	return data
}

func pseudoPNG(t *testing.T, w, h int, v uint8, c pseudo.Channel) []byte {
	t.Helper()
	r := raster.New(w, h, raster.Gray)
	for i := range r.Pix {
		r.Pix[i] = v
	}
	mapped, err := pseudo.Map(r, c)
	require.NoError(t, err)
	data, err := raster.EncodePNG(mapped)
	require.NoError(t, err)
	return data
}

// postFiles uploads the given fields as a multipart form.
func postFiles(t *testing.T, url string, files map[string][]byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decodeImage(t *testing.T, resp *http.Response) *raster.Raster {
	t.Helper()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	img, err := raster.Decode(resp.Body)
	require.NoError(t, err)
	return img
}

func decodeError(t *testing.T, resp *http.Response, status int) api.ErrorResponse {
	t.Helper()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d. Body: %s", status, resp.StatusCode, string(body))
	}
	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	return errResp
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var healthResp api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))

	assert.Equal(t, api.Healthy, healthResp.Status)
	require.NotNil(t, healthResp.Version)
	assert.Equal(t, "2.0.0-test", *healthResp.Version)
	require.NotNil(t, healthResp.Uptime)
	assert.GreaterOrEqual(t, *healthResp.Uptime, 0)
	assert.WithinDuration(t, time.Now(), healthResp.Timestamp, time.Minute)
}

func TestLegacyHealthRedirect(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/api/v1/health", resp.Header.Get("Location"))
}

func TestParametersEndpoint(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/parameters")
	require.NoError(t, err)
	defer resp.Body.Close()

	var params api.ParametersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&params))

	assert.Equal(t, 0.3, params.Defaults.Alpha)
	assert.Equal(t, 0.47, params.Defaults.Brightness)
	assert.Equal(t, 2.4, params.Defaults.Contrast)
	assert.Equal(t, 2.33, params.Defaults.Saturation)
	assert.Equal(t, 30, params.Defaults.Threshold)
	assert.Equal(t, api.Range{Min: 0.1, Max: 3}, params.Ranges["contrast"])
	assert.Equal(t, api.Range{Min: 0, Max: 255}, params.Ranges["threshold"])
}

func TestReassembleEndpoint_Success(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/reassemble", map[string][]byte{
		"lu": grayPNG(t, 4, 3, 40),
		"ru": grayPNG(t, 4, 3, 80),
		"ld": grayPNG(t, 4, 3, 120),
		"rd": grayPNG(t, 4, 3, 160),
	})
	defer resp.Body.Close()

	img := decodeImage(t, resp)
	assert.Equal(t, image.Pt(8, 6), img.Size())
	assert.Equal(t, uint8(40), img.At(0, 0)[0])
	assert.Equal(t, uint8(80), img.At(7, 0)[0])
	assert.Equal(t, uint8(120), img.At(0, 5)[0])
	assert.Equal(t, uint8(160), img.At(7, 5)[0])
}

func TestReassembleEndpoint_Preview(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/reassemble?preview=300", map[string][]byte{
		"lu": grayPNG(t, 400, 200, 1),
		"ru": grayPNG(t, 400, 200, 2),
		"ld": grayPNG(t, 400, 200, 3),
		"rd": grayPNG(t, 400, 200, 4),
	})
	defer resp.Body.Close()

	img := decodeImage(t, resp)
	assert.Equal(t, image.Pt(300, 150), img.Size())
}

func TestReassembleEndpoint_MissingTile(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/reassemble", map[string][]byte{
		"lu": grayPNG(t, 4, 3, 40),
		"ru": grayPNG(t, 4, 3, 80),
	})
	defer resp.Body.Close()

	errResp := decodeError(t, resp, http.StatusUnprocessableEntity)
	assert.Equal(t, api.ErrMissingTile, errResp.Error)
	require.NotNil(t, errResp.Details)
	assert.Equal(t, []interface{}{"ld", "rd"}, (*errResp.Details)["missing"])
	assert.NotNil(t, errResp.RequestId)
}

func TestReassembleEndpoint_DimensionMismatch(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/reassemble", map[string][]byte{
		"lu": grayPNG(t, 4, 3, 40),
		"ru": grayPNG(t, 4, 3, 80),
		"ld": grayPNG(t, 4, 3, 120),
		"rd": grayPNG(t, 5, 3, 160),
	})
	defer resp.Body.Close()

	errResp := decodeError(t, resp, http.StatusUnprocessableEntity)
	assert.Equal(t, api.ErrDimensionMismatch, errResp.Error)
}

func TestReassembleEndpoint_InvalidImage(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/reassemble", map[string][]byte{
		"lu": []byte("not an image"),
	})
	defer resp.Body.Close()

	errResp := decodeError(t, resp, http.StatusBadRequest)
	assert.Equal(t, api.ErrInvalidImage, errResp.Error)
}

func TestPseudoEndpoint_Success(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/pseudo?channel=green", map[string][]byte{
		"image": grayPNG(t, 3, 3, 90),
	})
	defer resp.Body.Close()

	img := decodeImage(t, resp)
	assert.Equal(t, raster.RGB, img.Layout)
	assert.Equal(t, []uint8{0, 90, 0}, img.At(1, 1))
}

func TestPseudoEndpoint_ValidationErrors(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	for _, query := range []string{"", "?channel=blue", "?channel=red&preview=big"} {
		t.Run(query, func(t *testing.T) {
			resp := postFiles(t, server.URL+"/api/v1/pseudo"+query, map[string][]byte{
				"image": grayPNG(t, 2, 2, 1),
			})
			defer resp.Body.Close()

			errResp := decodeError(t, resp, http.StatusBadRequest)
			assert.Equal(t, api.ErrValidation, errResp.Error)
		})
	}
}

func TestCompositeEndpoint_Opaque(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/composite?brightness=1&contrast=1&saturation=1", map[string][]byte{
		"primary":   pseudoPNG(t, 4, 3, 200, pseudo.Red),
		"secondary": pseudoPNG(t, 4, 3, 10, pseudo.Green),
	})
	defer resp.Body.Close()

	img := decodeImage(t, resp)
	assert.Equal(t, image.Pt(4, 3), img.Size())
	assert.Equal(t, raster.RGB, img.Layout)
	assert.Equal(t, []uint8{41, 184, 0}, img.At(2, 1))
	assert.Equal(t, "brightness: 1.00, contrast: 1.00, saturation: 1.00, threshold: 30",
		resp.Header.Get("X-Overlay-Parameters"))
}

func TestCompositeEndpoint_Transparent(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/composite", map[string][]byte{
		"primary":   pseudoPNG(t, 4, 3, 250, pseudo.Red),
		"secondary": pseudoPNG(t, 4, 3, 250, pseudo.Green),
	})
	defer resp.Body.Close()

	img := decodeImage(t, resp)
	require.Equal(t, raster.RGBA, img.Layout)
	assert.Equal(t, uint8(0), img.At(0, 0)[3])
}

func TestCompositeEndpoint_ValidationErrors(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	testCases := []struct {
		name  string
		query string
	}{
		{name: "contrast too high", query: "?contrast=5"},
		{name: "brightness too low", query: "?brightness=0.05"},
		{name: "threshold out of range", query: "?threshold=300"},
		{name: "zero alpha", query: "?alpha=0"},
		{name: "malformed alpha", query: "?alpha=abc"},
		{name: "NaN brightness", query: "?brightness=NaN"},
		{name: "infinite alpha", query: "?alpha=Inf"},
		{name: "infinite saturation", query: "?saturation=%2BInf"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postFiles(t, server.URL+"/api/v1/composite"+tc.query, map[string][]byte{
				"primary":   pseudoPNG(t, 2, 2, 1, pseudo.Red),
				"secondary": pseudoPNG(t, 2, 2, 1, pseudo.Green),
			})
			defer resp.Body.Close()

			errResp := decodeError(t, resp, http.StatusBadRequest)
			assert.Equal(t, api.ErrValidation, errResp.Error)
		})
	}
}

func TestCompositeEndpoint_DimensionMismatch(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/composite", map[string][]byte{
		"primary":   pseudoPNG(t, 4, 3, 200, pseudo.Red),
		"secondary": pseudoPNG(t, 3, 3, 10, pseudo.Green),
	})
	defer resp.Body.Close()

	errResp := decodeError(t, resp, http.StatusUnprocessableEntity)
	assert.Equal(t, api.ErrDimensionMismatch, errResp.Error)
	require.NotNil(t, errResp.Details)
	assert.Equal(t, []interface{}{float64(4), float64(3)}, (*errResp.Details)["expected"])
}

func TestCompositeEndpoint_MissingField(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/composite", map[string][]byte{
		"primary": pseudoPNG(t, 2, 2, 1, pseudo.Red),
	})
	defer resp.Body.Close()

	errResp := decodeError(t, resp, http.StatusBadRequest)
	assert.Equal(t, api.ErrInvalidImage, errResp.Error)
	assert.Contains(t, errResp.Message, "secondary")
}

func TestCompositeEndpoint_NotMultipart(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/composite", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	errResp := decodeError(t, resp, http.StatusBadRequest)
	assert.Equal(t, api.ErrInvalidMultipart, errResp.Error)
}

func TestOverlayEndpoint_MapsRawFrames(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp := postFiles(t, server.URL+"/api/v1/overlay?brightness=1&contrast=1&saturation=1", map[string][]byte{
		"red":   grayPNG(t, 4, 3, 200),
		"green": grayPNG(t, 4, 3, 10),
	})
	defer resp.Body.Close()

	img := decodeImage(t, resp)
	assert.Equal(t, []uint8{41, 184, 0}, img.At(0, 0))
}

func TestCORSHeaders(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	req, err := http.NewRequest("OPTIONS", server.URL+"/api/v1/composite", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type")
}
