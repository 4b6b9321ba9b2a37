package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"uuid", "recipient=0190c6d4-8a2b-7c3d-9e4f-0123456789ab", "recipient=[REDACTED:id]"},
		{"email", "to=Mom@Example.com", "to=[REDACTED:email]"},
		{"phone", "call 212-555-1212", "call [REDACTED:phone]"},
		{"token", "t=" + strings.Repeat("aB3_-", 9), "t=[REDACTED:token]"},
		{"plain", "page=2&page_size=20", "page=2&page_size=20"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Redact(tc.in); got != tc.want {
				t.Fatalf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRedactingLogger_ScrubsAndMasks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Identity(), RedactingLogger(RedactOptions{MaskHeaders: []string{" X-Cron-Key "}}))
	r.GET("/api/v1/recipients", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recipients?email=ben@example.com", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")
	req.Header.Set("X-Cron-Key", "abc")
	req.Header.Set(HeaderUserID, "0190c6d4-8a2b-7c3d-9e4f-0123456789ab")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leaked := range []string{"s3cr3t", "ben@example.com", "0190c6d4", `"abc"`} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q:\n%s", leaked, out)
		}
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &line); err != nil {
		t.Fatalf("bad log line: %v", err)
	}
	if line["authenticated"] != true || line["level"] != "info" || line["message"] != "http_request" {
		t.Fatalf("unexpected fields: %v", line)
	}
}

func TestRedactingLogger_UnmatchedPathIsScrubbed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))

	token := strings.Repeat("Zx9_", 11)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/"+token, nil))

	out := buf.String()
	if strings.Contains(out, token) {
		t.Fatalf("raw token leaked:\n%s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("404 should log at warn:\n%s", out)
	}
}

func TestRedactingLogger_ErrorLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("5xx should log at error:\n%s", buf.String())
	}
}
