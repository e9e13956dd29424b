package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMonitorPageServed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterMonitorPage(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monitor", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /monitor = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Faculty Appraisal API") {
		t.Error("monitor page missing service title")
	}
}

func TestLogsRouteGuards(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterLogsRoute(router)

	// Unconfigured token disables the route entirely.
	t.Setenv("MONITOR_TOKEN", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured token: GET /logs = %d, want 503", w.Code)
	}

	t.Setenv("MONITOR_TOKEN", "tok")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs?token=wrong", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: GET /logs = %d, want 401", w.Code)
	}
}
