package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		configured string
		path       string
		key        string
		wantStatus int
	}{
		{"valid key", "secret-key", "/api/state", "secret-key", http.StatusOK},
		{"missing key", "secret-key", "/api/state", "", http.StatusUnauthorized},
		{"wrong key", "secret-key", "/api/state", "wrong-key", http.StatusUnauthorized},
		{"prefix of key", "secret-key", "/api/state", "secret", http.StatusUnauthorized},
		{"auth disabled", "", "/api/state", "", http.StatusOK},
		{"public path", "secret-key", "/api/health", "", http.StatusOK},
		{"public path is exact", "secret-key", "/api/health/deep", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := APIKeyAuth(tt.configured, "/api/health")(ok)

			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}
