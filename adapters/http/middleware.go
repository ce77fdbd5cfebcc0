package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/user"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/auth"
	"github.com/khoahotran/filmila/pkg/logger"
)

const (
	GinContextKeyViewerID = "viewerID"
	GinContextKeyRole     = "role"
	GinContextKeyClaims   = "claims"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

// AuthMiddleware rejects requests without a valid, unrevoked bearer token.
func AuthMiddleware(jwtSvc *auth.JWTService, revocations service.RevocationStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Error(apperror.NewUnauthorized("Authorization header must carry a bearer token", nil))
			c.Abort()
			return
		}

		claims, err := authenticate(c, jwtSvc, revocations, tokenString)
		if err != nil {
			if !errors.Is(err, apperror.ErrUnauthorized) {
				log.Error("Token revocation check failed", err)
			}
			c.Error(err)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a token is present and
// lets anonymous requests through.
func OptionalAuthMiddleware(jwtSvc *auth.JWTService, revocations service.RevocationStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		claims, err := authenticate(c, jwtSvc, revocations, tokenString)
		if err != nil {
			log.Debug("Ignoring unusable token on public route", zap.Error(err))
			c.Next()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

func authenticate(c *gin.Context, jwtSvc *auth.JWTService, revocations service.RevocationStore, tokenString string) (*auth.CustomClaims, error) {
	claims, err := jwtSvc.ValidateToken(tokenString)
	if err != nil {
		return nil, apperror.NewUnauthorized("Invalid or expired token", err)
	}

	issuedAt := claims.IssuedAt
	if issuedAt == nil {
		return nil, apperror.NewUnauthorized("token has no issue time", nil)
	}
	revoked, err := revocations.IsRevoked(c.Request.Context(), claims.TokenID(), claims.ViewerID, issuedAt.Time)
	if err != nil {
		return nil, apperror.NewUpstreamUnavailable("revocation store", err)
	}
	if revoked {
		return nil, apperror.NewUnauthorized("token has been revoked", nil)
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims *auth.CustomClaims) {
	c.Set(GinContextKeyViewerID, claims.ViewerID)
	c.Set(GinContextKeyRole, user.Role(claims.Role))
	c.Set(GinContextKeyClaims, claims)
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got, ok := GetRoleFromGinContext(c); !ok || got != role {
			c.Error(apperror.NewPermissionDenied("requires role " + string(role)))
			c.Abort()
			return
		}
		c.Next()
	}
}

func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		l := logger.FromContext(c.Request.Context(), log)

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			l.Error("Unhandled error", err)
			appErr = apperror.NewInternal("unexpected error", err)
		}

		status := apperror.ToHTTPStatus(appErr)
		if status >= http.StatusInternalServerError {
			l.Error("Request failed", appErr, zap.Int("status", status))
		}
		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, appErr.ToJSON())
	}
}

// RateLimitMiddleware throttles callers by client IP.
func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "too many requests",
				"message": "Rate limit exceeded, try again later",
			})
			return
		}
		c.Next()
	}
}

func GetViewerIDFromGinContext(c *gin.Context) (uuid.UUID, bool) {
	viewerID, ok := c.Get(GinContextKeyViewerID)
	if !ok {
		return uuid.Nil, false
	}
	viewerUUID, ok := viewerID.(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}
	return viewerUUID, true
}

func GetRoleFromGinContext(c *gin.Context) (user.Role, bool) {
	role, ok := c.Get(GinContextKeyRole)
	if !ok {
		return "", false
	}
	r, ok := role.(user.Role)
	return r, ok
}

func GetClaimsFromGinContext(c *gin.Context) (*auth.CustomClaims, bool) {
	claims, ok := c.Get(GinContextKeyClaims)
	if !ok {
		return nil, false
	}
	cc, ok := claims.(*auth.CustomClaims)
	return cc, ok
}
