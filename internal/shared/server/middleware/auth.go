package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docshare-backend/internal/shared/auth"
	"docshare-backend/internal/shared/server/respond"
)

const (
	reviewerEmailKey   = "reviewerEmail"
	reviewerNameKey    = "reviewerName"
	reviewerPictureKey = "reviewerPicture"
)

// TokenVerifier validates a reviewer credential.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// RequireReviewer admits only requests carrying a valid reviewer credential, read from the
// Authorization header or the credential cookie. Any failure clears the cookie and answers 401.
func RequireReviewer(v TokenVerifier, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := credentialFromRequest(c)
		if token == "" {
			reject(c, secureCookie)
			return
		}
		claims, err := v.Verify(token)
		if err != nil {
			reject(c, secureCookie)
			return
		}

		c.Set(reviewerEmailKey, claims.Email)
		if claims.Name != "" {
			c.Set(reviewerNameKey, claims.Name)
		}
		if claims.Picture != "" {
			c.Set(reviewerPictureKey, claims.Picture)
		}
		c.Next()
	}
}

func reject(c *gin.Context, secureCookie bool) {
	auth.ClearCookie(c.Writer, secureCookie)
	respond.Error(c, http.StatusUnauthorized, "unauthenticated", "missing or invalid credential", nil)
}

func credentialFromRequest(c *gin.Context) string {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(auth.CookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// ReviewerFromContext returns the identity stored by RequireReviewer.
func ReviewerFromContext(c *gin.Context) auth.Identity {
	if c == nil {
		return auth.Identity{}
	}
	return auth.Identity{
		Email:   c.GetString(reviewerEmailKey),
		Name:    c.GetString(reviewerNameKey),
		Picture: c.GetString(reviewerPictureKey),
	}
}
