package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/allisson/authtokens/internal/app"
	"github.com/allisson/authtokens/internal/config"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	tokenUsecase "github.com/allisson/authtokens/internal/token/usecase"
)

// RunRevokeUserTokens revokes every active token of a user, optionally
// narrowed by token type. Used for "logout everywhere" and compromise
// response from the command line.
//
// Requirements: Database must be migrated and accessible.
func RunRevokeUserTokens(
	ctx context.Context,
	userID string,
	tokenType string,
	reason string,
	format string,
) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	useCase, err := container.TokenUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize token use case: %w", err)
	}

	return revokeUserTokens(ctx, useCase, logger, os.Stdout, userID, tokenType, reason, format)
}

// revokeUserTokens contains the testable command logic with injected dependencies.
func revokeUserTokens(
	ctx context.Context,
	useCase tokenUsecase.TokenUseCase,
	logger *slog.Logger,
	w io.Writer,
	userID string,
	tokenType string,
	reason string,
	format string,
) error {
	parsedUserID, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %s", userID)
	}

	var typeFilter *tokenDomain.TokenType
	if tokenType != "" {
		parsedType, err := parseTokenType(tokenType)
		if err != nil {
			return err
		}
		typeFilter = &parsedType
	}

	logger.Info("revoking user tokens",
		slog.String("user_id", userID),
		slog.String("token_type", tokenType),
		slog.String("reason", reason),
	)

	count, err := useCase.RevokeAllForUser(ctx, parsedUserID, typeFilter, reason)
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	if format == "json" {
		outputRevokeUserTokensJSON(w, count, userID, tokenType)
	} else {
		fmt.Fprintf(w, "Revoked %d token(s) for user %s\n", count, parsedUserID)
	}

	logger.Info("user tokens revoked",
		slog.String("user_id", userID),
		slog.Int64("count", count),
	)
	return nil
}

// outputRevokeUserTokensJSON outputs the result in JSON format for machine consumption.
func outputRevokeUserTokensJSON(w io.Writer, count int64, userID, tokenType string) {
	result := map[string]interface{}{
		"revoked_count": count,
		"user_id":       userID,
	}
	if tokenType != "" {
		result["token_type"] = tokenType
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
