package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"leave-service/internal/apperr"
	"leave-service/internal/config"
	"leave-service/internal/httputil"
	"leave-service/internal/user"

	"github.com/gin-gonic/gin"
)

const CookieName = "token"

var (
	ErrAuthRequired = fmt.Errorf("Authentication required: %w", apperr.ErrUnauthenticated)
	ErrAccessDenied = fmt.Errorf("Access denied: %w", apperr.ErrForbidden)
)

// Middleware validates the JWT from the token cookie or a Bearer header and
// puts the Actor on the request context.
func Middleware(tokens *TokenManager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c.Request)
		if raw == "" {
			logger.DebugContext(c.Request.Context(), "no auth token found", "path", c.Request.URL.Path)
			httputil.Abort(c, ErrAuthRequired)
			return
		}

		actor, err := tokens.Parse(raw)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "invalid token", "error", err)
			httputil.Abort(c, ErrInvalidToken)
			return
		}

		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole is a coarse route gate; per-record checks stay in the services.
func RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c.Request.Context())
		if !ok {
			httputil.Abort(c, ErrAuthRequired)
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		httputil.Abort(c, ErrAccessDenied)
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// SetAuthCookie stores the access token in an HttpOnly cookie.
func SetAuthCookie(w http.ResponseWriter, cfg config.AuthConfig, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: sameSite(cfg.CookieSameSite),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearAuthCookie removes the auth cookie
func ClearAuthCookie(w http.ResponseWriter, cfg config.AuthConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: sameSite(cfg.CookieSameSite),
		Path:     "/",
		MaxAge:   -1,
	})
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
