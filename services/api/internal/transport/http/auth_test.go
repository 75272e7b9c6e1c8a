package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func bearerFor(t *testing.T, subject string) string {
	t.Helper()
	return "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(actor))
	})
	handler := Authenticate(testSecret)(echo)

	hour := time.Hour
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid", header: bearerFor(t, "agent-7"), status: http.StatusOK, body: "agent-7"},
		{name: "lowercase scheme", header: "bearer " + bearerFor(t, "agent-7")[len("Bearer "):], status: http.StatusOK, body: "agent-7"},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", status: http.StatusUnauthorized},
		{
			name: "wrong secret",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
				Subject: "agent-7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(hour)),
			}),
			status: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
				Subject: "agent-7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-hour)),
			}),
			status: http.StatusUnauthorized,
		},
		{
			name: "no expiry",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
				Subject: "agent-7",
			}),
			status: http.StatusUnauthorized,
		},
		{
			name: "no subject",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(hour)),
			}),
			status: http.StatusUnauthorized,
		},
		{
			name: "wrong algorithm",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, jwt.RegisteredClaims{
				Subject: "agent-7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(hour)),
			}),
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/listings/abc", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), codeUnauthenticated)
			}
		})
	}
}
