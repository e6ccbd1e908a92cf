package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	canvasService "github.com/zhouzirui/z-canvas/backend/internal/service/canvas"
)

func TestRouterHealthz(t *testing.T) {
	svc := canvasService.NewService(canvasService.DefaultOptions())
	_, err := svc.CreateSession(context.Background(), 10, 10)
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	NewRouter(svc, []string{"*"}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 1.0, body["sessions"])
}

func TestRouterScenario(t *testing.T) {
	router := NewRouter(canvasService.NewService(canvasService.DefaultOptions()), []string{"*"})

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Origin", "http://localhost:5173")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	resp := post("/api/canvas/init", `{"width":800,"height":600}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	assert.Equal(t, http.StatusOK, post("/api/canvas/"+created.ID+"/add/rectangle", `{"x":10,"y":10,"width":100,"height":50,"color":"#ff0000"}`).Code)
	assert.Equal(t, http.StatusOK, post("/api/canvas/"+created.ID+"/add/circle", `{"x":400,"y":300,"radius":50,"color":"blue","isFilled":false}`).Code)
	assert.Equal(t, http.StatusOK, post("/api/canvas/"+created.ID+"/add/text", `{"text":"Hi","x":400,"y":550,"fontSize":24,"align":"center"}`).Code)
	assert.Equal(t, http.StatusNotFound, post("/api/canvas/unknown/add/circle", `{"x":1,"y":1,"radius":1}`).Code)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/canvas/init", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	presp := httptest.NewRecorder()
	router.ServeHTTP(presp, preflight)
	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, presp.Code)
	assert.Equal(t, "*", presp.Header().Get("Access-Control-Allow-Origin"))

	pdf := httptest.NewRecorder()
	router.ServeHTTP(pdf, httptest.NewRequest(http.MethodGet, "/api/canvas/"+created.ID+"/export/pdf", nil))
	require.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, "attachment; filename=canvas.pdf", pdf.Header().Get("Content-Disposition"))
}

func TestRouterPanicBecomesGenericError(t *testing.T) {
	mux, ok := NewRouter(canvasService.NewService(canvasService.DefaultOptions()), []string{"*"}).(*chi.Mux)
	require.True(t, ok)
	mux.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("rasterizer state corrupted")
	})

	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal server error"}`, resp.Body.String())
	assert.NotContains(t, resp.Body.String(), "rasterizer")
}
