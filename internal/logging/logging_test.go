package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskCookie(t *testing.T) {
	got := MaskCookie("gp_session=abcdef123456; theme=dark")
	if got != "gp_session=********3456; theme=dark" {
		t.Fatalf("MaskCookie = %q", got)
	}
	if got := MaskCookie("abc"); got != "***" {
		t.Fatalf("MaskCookie = %q", got)
	}
}

func TestMiddlewareLogsLevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/ok", "/missing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Cookie", "gp_session=secretvalue")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("levels = %v, %v", entries[0].Level, entries[1].Level)
	}
	fields := entries[1].ContextMap()
	if fields["status"] != int64(http.StatusNotFound) {
		t.Fatalf("status field = %v", fields["status"])
	}
	if fields["cookie"] != "gp_session=*******alue" {
		t.Fatalf("cookie field = %v", fields["cookie"])
	}
}

func TestNewPicksEncoding(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		logger, err := New(env)
		if err != nil {
			t.Fatalf("New(%q): %v", env, err)
		}
		_ = logger.Sync()
	}
}
