package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/internal/auth"
	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
)

// claimsKey stores the verified *auth.Claims in the gin context.
const claimsKey = "plantdiaries_claims"

var (
	errMissingToken  = errors.New("access token required")
	errAdminRequired = errors.New("admin access required")
	errThrottled     = errors.New("too many attempts, try again later")
	errRouteNotFound = errors.New("route not found")
)

// requestLogger writes one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if claims := currentClaims(c); claims != nil {
			attrs = append(attrs, "user_id", claims.UserID)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

// recovery turns a panic into a 500 JSON error.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		logger.Error("panic serving request", "path", c.Request.URL.Path, "panic", fmt.Sprint(rec))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// observe records request counts and latency by route template.
func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// bodyLimit caps the request body at n bytes.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAuth rejects requests without a valid access token: 401 when the
// token is missing, 403 when it does not verify.
func requireAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortError(c, errMissingToken)
			return
		}
		claims, err := issuer.VerifyAccess(token)
		if err != nil {
			abortError(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// requireAdmin lets only administrators through. It must follow requireAuth.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || !claims.IsAdmin {
			abortError(c, errAdminRequired)
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// userID returns the authenticated user. Routes calling it sit behind
// requireAuth.
func userID(c *gin.Context) int64 {
	if claims := currentClaims(c); claims != nil {
		return claims.UserID
	}
	return 0
}
