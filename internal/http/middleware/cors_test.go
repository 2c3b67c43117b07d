package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func preflight(t *testing.T, h gin.HandlerFunc, origin string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(h)
	r.OPTIONS("/api/generation-jobs", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodOptions, "/api/generation-jobs", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsLocalDevOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:5174"} {
		rec := preflight(t, CORS(nil), origin)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: status = %d", origin, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("%s: allow-origin = %q", origin, got)
		}
	}
}

func TestCORSConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := CORS([]string{" https://app.cyclecoach.example "})
	if got := preflight(t, h, "https://app.cyclecoach.example").Header().Get("Access-Control-Allow-Origin"); got != "https://app.cyclecoach.example" {
		t.Fatalf("allow-origin = %q", got)
	}
	if rec := preflight(t, h, "http://localhost:5173"); rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("dev origin should not be allowed once origins are configured")
	}
}
