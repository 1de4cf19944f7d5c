package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/authtokens/internal/errors"
	"github.com/allisson/authtokens/internal/httputil"
	tokenUseCase "github.com/allisson/authtokens/internal/token/usecase"
)

// AuthenticationMiddleware authenticates API callers via Bearer token in the
// Authorization header.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive)
// 2. Validates the plaintext through TokenUseCase.Validate
// 3. Stores the validated token record in the request context
// 4. Allows downstream handlers to access it via GetCallerToken()
//
// Error handling:
//   - Missing/malformed Authorization header → 401 Unauthorized
//   - Invalid/expired/revoked token → 401 Unauthorized (uniform result)
//   - Other errors → 500 Internal Server Error
func AuthenticationMiddleware(
	useCase tokenUseCase.TokenUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		// Parse Bearer token (case-insensitive)
		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainToken := authHeader[len(bearerPrefix):]
		if plainToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		token, err := useCase.Validate(c.Request.Context(), plainToken)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithCallerToken(c.Request.Context(), token)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireScope authorizes the authenticated caller against a scope.
//
// MUST be used after AuthenticationMiddleware. Returns 403 Forbidden when the
// caller token does not carry the required scope. A token validated for
// authorization checks always has a non-empty scope set; "no capabilities"
// tokens fail every scope check.
func RequireScope(scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := GetCallerToken(c.Request.Context())
		if !ok || token == nil {
			// Should never happen - authentication middleware runs first
			logger.Error("scope check: no authenticated token in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		for _, s := range token.Scopes {
			if s == scope {
				c.Next()
				return
			}
		}

		logger.Debug("scope check failed",
			slog.String("token_id", token.ID.String()),
			slog.String("required_scope", scope),
		)
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
		c.Abort()
	}
}
