package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"docshare-backend/internal/reviewers"
	sharedauth "docshare-backend/internal/shared/auth"
)

type googleFixture struct {
	svc     *GoogleService
	router  *gin.Engine
	issuer  *sharedauth.Issuer
	revs    *reviewers.Service
	profile googleUserInfo
}

func newGoogleFixture(t *testing.T, allow ...string) *googleFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &googleFixture{}
	provider := http.NewServeMux()
	provider.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	provider.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.profile)
	})
	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)

	issuer, err := sharedauth.NewIssuer("google-test-secret", time.Hour)
	require.NoError(t, err)
	f.issuer = issuer
	f.revs = reviewers.NewService(reviewers.NewMemoryRepo())

	f.svc = NewGoogleService(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://api.test/api/v1/auth/google/callback",
		UIRedirect:   "http://ui.test/admin",
		AllowEmails:  allow,
	}, issuer, f.revs)
	f.svc.oauthConfig.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	f.svc.userInfoURL = srv.URL + "/userinfo"

	f.router = gin.New()
	f.svc.RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

func (f *googleFixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func (f *googleFixture) startState(t *testing.T) string {
	t.Helper()
	resp := f.do(t, http.MethodGet, "/api/v1/auth/google/start")
	require.Equal(t, http.StatusFound, resp.Code)
	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func findCookie(resp *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == sharedauth.CookieName {
			return c
		}
	}
	return nil
}

func TestCallbackIssuesCredentialForAllowListedReviewer(t *testing.T) {
	f := newGoogleFixture(t, "Reviewer@Example.com")
	f.profile = googleUserInfo{ID: "1", Email: "reviewer@example.com", VerifiedEmail: true, Name: "Rev"}

	state := f.startState(t)
	resp := f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state))

	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())
	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "ui.test", loc.Host)
	token := loc.Query().Get("token")
	require.NotEmpty(t, token)

	claims, err := f.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "reviewer@example.com", claims.Email)

	cookie := findCookie(resp)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	rev, err := f.revs.Get(context.Background(), "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Rev", rev.Name)
}

func TestCallbackRejectsUnlistedEmail(t *testing.T) {
	f := newGoogleFixture(t, "reviewer@example.com")
	f.profile = googleUserInfo{ID: "2", Email: "stranger@example.com", VerifiedEmail: true}

	state := f.startState(t)
	resp := f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state))

	require.Equal(t, http.StatusFound, resp.Code)
	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "unauthorized", loc.Query().Get("error"))
	assert.Empty(t, loc.Query().Get("token"))

	cookie := findCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)

	_, err = f.revs.Get(context.Background(), "stranger@example.com")
	assert.ErrorIs(t, err, reviewers.ErrNotFound)
}

func TestCallbackRejectsUnverifiedEmail(t *testing.T) {
	f := newGoogleFixture(t, "reviewer@example.com")
	f.profile = googleUserInfo{ID: "3", Email: "reviewer@example.com", VerifiedEmail: false}

	state := f.startState(t)
	resp := f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state))

	require.Equal(t, http.StatusFound, resp.Code)
	assert.Contains(t, resp.Header().Get("Location"), "error=unauthorized")
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	f := newGoogleFixture(t, "reviewer@example.com")
	resp := f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=abc&state=forged")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStateIsSingleUse(t *testing.T) {
	f := newGoogleFixture(t, "reviewer@example.com")
	f.profile = googleUserInfo{ID: "1", Email: "reviewer@example.com", VerifiedEmail: true}

	state := f.startState(t)
	first := f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusFound, first.Code)
	second := f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state))
	assert.Equal(t, http.StatusBadRequest, second.Code)
}

func TestStartRequiresConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer, err := sharedauth.NewIssuer("s", time.Hour)
	require.NoError(t, err)
	svc := NewGoogleService(GoogleConfig{}, issuer, nil)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newGoogleFixture(t)
	resp := f.do(t, http.MethodPost, "/api/v1/auth/logout")

	require.Equal(t, http.StatusOK, resp.Code)
	cookie := findCookie(resp)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestEmptyAllowListAdmitsNobody(t *testing.T) {
	issuer, err := sharedauth.NewIssuer("s", time.Hour)
	require.NoError(t, err)
	svc := NewGoogleService(GoogleConfig{AllowEmails: []string{" A@B.com "}}, issuer, nil)
	assert.True(t, svc.Allowed("a@b.com"))
	assert.False(t, svc.Allowed("c@b.com"))

	empty := NewGoogleService(GoogleConfig{}, issuer, nil)
	assert.False(t, empty.Allowed("a@b.com"))
}

func TestStateStoreExpires(t *testing.T) {
	s := newStateStore()
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	s.put("a", now.Add(time.Minute))
	now = now.Add(2 * time.Minute)
	assert.False(t, s.consume("a"))
}
