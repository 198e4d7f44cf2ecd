package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    []string
		notWant []string
	}{
		{
			name: "anonymous",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want:    []string{"level=WARN", "status=404", "path=/api/leads"},
			notWant: []string{"user_id="},
		},
		{
			name: "authenticated",
			handler: func(w http.ResponseWriter, r *http.Request) {
				setLoggedUser(r.Context(), "user-9")
				_, _ = w.Write([]byte("ok"))
			},
			want: []string{"level=INFO", "status=200", "user_id=user-9"},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.WriteHeader(http.StatusOK)
			},
			want: []string{"level=ERROR", "status=500"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
			Logger(tt.handler).ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("log line %q missing %q", out, s)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("log line %q contains %q", out, s)
				}
			}
		})
	}
}
