package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/ai-data-assistant/internal/httputil"
)

func TestMiddleware_RequireAuth(t *testing.T) {
	tokens, err := NewPasetoService(testKey)
	require.NoError(t, err)

	userID := uuid.New()
	valid, err := tokens.CreateToken(userID, "alice@x.com", time.Minute)
	require.NoError(t, err)
	expired, err := tokens.CreateToken(userID, "alice@x.com", -time.Minute)
	require.NoError(t, err)
	jwtTokens, err := NewJWTService(testKey)
	require.NoError(t, err)

	var gotID uuid.UUID
	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserIDFromContext(r.Context())
		gotEmail, _ = GetUserEmailFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewMiddleware(tokens).RequireAuth(next)

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantCode   string
	}{
		{name: "bearer", header: "Bearer " + valid, wantStatus: http.StatusNoContent},
		{name: "cookie", cookie: valid, wantStatus: http.StatusNoContent},
		{name: "missing", wantStatus: http.StatusUnauthorized, wantCode: httputil.CodeMissingAuth},
		{name: "bad scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: httputil.CodeInvalidAuthHeader},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized, wantCode: httputil.CodeTokenExpired},
		{name: "garbage", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: httputil.CodeInvalidToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotID, gotEmail = uuid.Nil, ""

			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, decodeError(t, rec).Code)
				return
			}
			assert.Equal(t, userID, gotID)
			assert.Equal(t, "alice@x.com", gotEmail)
		})
	}

	t.Run("token from other strategy", func(t *testing.T) {
		jwtToken, err := jwtTokens.CreateToken(userID, "alice@x.com", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+jwtToken)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidToken, decodeError(t, rec).Code)
	})
}

func TestShouldUseCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	assert.False(t, ShouldUseCookies(req))

	req.Header.Set("X-Client", "web")
	assert.True(t, ShouldUseCookies(req))

	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	assert.True(t, ShouldUseCookies(req))
}
