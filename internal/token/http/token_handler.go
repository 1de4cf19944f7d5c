package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/authtokens/internal/errors"
	"github.com/allisson/authtokens/internal/httputil"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	"github.com/allisson/authtokens/internal/token/http/dto"
	tokenUseCase "github.com/allisson/authtokens/internal/token/usecase"
	customValidation "github.com/allisson/authtokens/internal/validation"
)

// TokenHandler handles HTTP requests for token lifecycle operations.
type TokenHandler struct {
	useCase tokenUseCase.TokenUseCase
	logger  *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(useCase tokenUseCase.TokenUseCase, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// CreateHandler issues a new token.
// POST /v1/tokens - Rate limited, no bearer authentication.
// Returns 201 Created with the plaintext token (shown exactly once).
func (h *TokenHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateTokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := &tokenDomain.CreateTokenInput{
		Type:          tokenDomain.TokenType(req.Type),
		Scopes:        req.Scopes,
		ClientIP:      c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
		Metadata:      req.Metadata,
		CorrelationID: req.CorrelationID,
	}
	if input.CorrelationID == "" {
		input.CorrelationID = requestid.Get(c)
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				apperrors.Wrap(apperrors.ErrInvalidInput, "user_id must be a valid UUID"),
				h.logger)
			return
		}
		input.UserID = &userID
	}
	if req.LifetimeSeconds != nil {
		lifetime := time.Duration(*req.LifetimeSeconds) * time.Second
		input.Lifetime = &lifetime
	}

	output, err := h.useCase.Create(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCreateOutputToResponse(output))
}

// RotateHandler rotates an active token into a chained replacement.
// POST /v1/tokens/:id/rotate - Requires the "api" scope.
// Returns 201 Created with the new plaintext token; the parent stays valid
// until its own expiry or an explicit revocation.
func (h *TokenHandler) RotateHandler(c *gin.Context) {
	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "token id must be a valid UUID"),
			h.logger)
		return
	}

	var req dto.RotateTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		if err := req.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}
	}

	input := &tokenDomain.RotateTokenInput{
		Scopes:        req.Scopes,
		ClientIP:      c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
		CorrelationID: req.CorrelationID,
	}
	if input.CorrelationID == "" {
		input.CorrelationID = requestid.Get(c)
	}
	if req.LifetimeSeconds != nil {
		lifetime := time.Duration(*req.LifetimeSeconds) * time.Second
		input.Lifetime = &lifetime
	}

	output, err := h.useCase.Rotate(c.Request.Context(), tokenID, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCreateOutputToResponse(output))
}

// RevokeHandler permanently invalidates a token.
// DELETE /v1/tokens/:id - Requires the "api" scope.
// Idempotent: revoking an already-revoked token returns 204 as well.
func (h *TokenHandler) RevokeHandler(c *gin.Context) {
	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "token id must be a valid UUID"),
			h.logger)
		return
	}

	var req dto.RevokeTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		if err := req.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}
	}

	if err := h.useCase.Revoke(c.Request.Context(), tokenID, req.Reason); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// RevokeUserTokensHandler revokes all active tokens of a user.
// DELETE /v1/users/:user_id/tokens - Requires the "api" scope.
// Returns 200 with the number of tokens revoked. Used for "logout
// everywhere" and compromise response.
func (h *TokenHandler) RevokeUserTokensHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "user id must be a valid UUID"),
			h.logger)
		return
	}

	var req dto.RevokeUserTokensRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		if err := req.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}
	}

	var tokenType *tokenDomain.TokenType
	if req.TokenType != "" {
		parsed := tokenDomain.TokenType(req.TokenType)
		tokenType = &parsed
	}

	count, err := h.useCase.RevokeAllForUser(c.Request.Context(), userID, tokenType, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RevokeCountResponse{Count: count})
}

// ListUserTokensHandler lists a user's tokens as non-secret summaries.
// GET /v1/users/:user_id/tokens - Requires the "api" scope.
func (h *TokenHandler) ListUserTokensHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "user id must be a valid UUID"),
			h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, err.Error()),
			h.logger)
		return
	}

	summaries, err := h.useCase.ListForUser(c.Request.Context(), userID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSummariesToResponse(summaries))
}
