package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"order-management-service/internal/apperr"
	"order-management-service/internal/auth"
	"order-management-service/pkg/ctxmanage"
	"order-management-service/pkg/logkey"
)

type Mid struct {
	keys    *auth.Keys
	revoker auth.Revoker
}

func NewMid(keys *auth.Keys, revoker auth.Revoker) (*Mid, error) {
	if keys == nil {
		return nil, errors.New("keys cannot be nil")
	}
	if revoker == nil {
		return nil, errors.New("revoker cannot be nil")
	}
	return &Mid{keys: keys, revoker: revoker}, nil
}

func abort(c *gin.Context, kind apperr.Kind, msg string) {
	c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{"error": kind.String(), "message": msg})
}

// Authentication validates the bearer token and puts the resulting session in
// the request context.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		parts := strings.Split(c.GetHeader("Authorization"), " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			slog.Error("expected authorization header format: Bearer <token>", slog.String(logkey.TraceID, traceId))
			abort(c, apperr.KindAuthentication, "No token, authorization denied.")
			return
		}

		claims, err := m.keys.ValidateToken(parts[1])
		if err != nil {
			slog.Error("token validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			abort(c, apperr.KindAuthentication, "Token is not valid.")
			return
		}

		revoked, err := m.revoker.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			slog.Error("checking token revocation", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			abort(c, apperr.KindInternal, "Server error")
			return
		}
		if revoked {
			abort(c, apperr.KindAuthentication, "Token has been revoked.")
			return
		}

		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), claims.Session()))
		c.Next()
	}
}

// Authorize wraps next so it only runs for sessions holding one of roles.
func (m *Mid) Authorize(next gin.HandlerFunc, roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		s, ok := auth.SessionFrom(c.Request.Context())
		if !ok {
			slog.Error("no session in request context", slog.String(logkey.TraceID, traceId))
			abort(c, apperr.KindAuthentication, "No token, authorization denied.")
			return
		}
		if !s.Role.In(roles...) {
			slog.Error("role not permitted", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.UserID, s.UserID), slog.String("Role", s.Role.String()))
			abort(c, apperr.KindAuthorization, "Access denied.")
			return
		}
		next(c)
	}
}

// Session is a shortcut for handlers that run behind Authentication.
func Session(c *gin.Context) (auth.Session, bool) {
	return auth.SessionFrom(c.Request.Context())
}
