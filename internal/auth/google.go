package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"docshare-backend/internal/reviewers"
	sharedauth "docshare-backend/internal/shared/auth"
	"docshare-backend/internal/shared/server/respond"
	"docshare-backend/internal/shared/telemetry"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig carries the OAuth client settings and the reviewer allow-list.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
	AllowEmails  []string
	SecureCookie bool
}

// GoogleService handles Google OAuth flows for reviewers.
type GoogleService struct {
	oauthConfig  *oauth2.Config
	uiRedirect   string
	userInfoURL  string
	allow        map[string]struct{}
	issuer       *sharedauth.Issuer
	reviewers    *reviewers.Service
	secureCookie bool
	stateTTL     time.Duration
	stateStore   *stateStore
}

// NewGoogleService builds a GoogleService. An empty allow-list admits nobody.
func NewGoogleService(cfg GoogleConfig, issuer *sharedauth.Issuer, revs *reviewers.Service) *GoogleService {
	allow := make(map[string]struct{}, len(cfg.AllowEmails))
	for _, e := range cfg.AllowEmails {
		if e = normalizeEmail(e); e != "" {
			allow[e] = struct{}{}
		}
	}
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:   cfg.UIRedirect,
		userInfoURL:  defaultUserInfoURL,
		allow:        allow,
		issuer:       issuer,
		reviewers:    revs,
		secureCookie: cfg.SecureCookie,
		stateTTL:     5 * time.Minute,
		stateStore:   newStateStore(),
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
	rg.POST("/auth/logout", s.logout)
}

// Allowed reports whether email is on the reviewer allow-list.
func (s *GoogleService) Allowed(email string) bool {
	_, ok := s.allow[normalizeEmail(email)]
	return ok
}

func (s *GoogleService) start(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, time.Now().Add(s.stateTTL))

	url := s.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
	c.Redirect(http.StatusFound, url)
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	if !s.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	email := normalizeEmail(userInfo.Email)
	if email == "" || !userInfo.VerifiedEmail || !s.Allowed(email) {
		telemetry.Warn("reviewer.login_rejected", map[string]any{
			"email":    email,
			"verified": userInfo.VerifiedEmail,
		})
		sharedauth.ClearCookie(c.Writer, s.secureCookie)
		s.redirectWithError(c, "unauthorized")
		return
	}

	identity := sharedauth.Identity{Email: email, Name: userInfo.Name, Picture: userInfo.Picture}
	jwt, err := s.issuer.Sign(identity)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	if s.reviewers != nil {
		if _, err := s.reviewers.RecordLogin(ctx, email, userInfo.Name, userInfo.Picture); err != nil {
			telemetry.Error("reviewer.login_audit_failed", map[string]any{
				"email": email,
				"error": err.Error(),
			})
		}
	}

	redirectURL, err := appendQuery(s.uiRedirect, "token", jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	sharedauth.SetCookie(c.Writer, jwt, s.issuer.TTL(), s.secureCookie)
	telemetry.Info("reviewer.login", map[string]any{"email": email})
	c.Redirect(http.StatusFound, redirectURL)
}

func (s *GoogleService) logout(c *gin.Context) {
	sharedauth.ClearCookie(c.Writer, s.secureCookie)
	respond.OK(c, gin.H{"success": true})
}

func (s *GoogleService) redirectWithError(c *gin.Context, code string) {
	target, err := appendQuery(s.uiRedirect, "error", code)
	if err != nil {
		respond.Error(c, http.StatusForbidden, code, "reviewer not allowed", nil)
		return
	}
	c.Redirect(http.StatusFound, target)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	return info, nil
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
	now   func() time.Time
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time), now: time.Now}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.items {
		if now.After(v) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	return !s.now().After(exp)
}

func appendQuery(rawURL, key, value string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
