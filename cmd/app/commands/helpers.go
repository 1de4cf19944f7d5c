// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"

	"github.com/allisson/authtokens/internal/app"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
)

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// parseTokenType converts a token type string to tokenDomain.TokenType.
// Returns an error if the token type string is invalid.
func parseTokenType(tokenType string) (tokenDomain.TokenType, error) {
	parsed := tokenDomain.TokenType(tokenType)
	if !parsed.IsValid() {
		return "", fmt.Errorf(
			"invalid token type: %s (valid options: access, refresh, api_key, reset_password, email_verification)",
			tokenType,
		)
	}
	return parsed, nil
}

// parseOptionalUserID parses a UUID string, treating empty as absent.
func parseOptionalUserID(userID string) (*uuid.UUID, error) {
	if userID == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %s", userID)
	}
	return &parsed, nil
}

// parseScopes splits a comma-separated scope list, trimming whitespace.
// Returns nil for an empty input so policy defaults apply.
func parseScopes(scopes string) []string {
	if scopes == "" {
		return nil
	}

	parts := strings.Split(scopes, ",")
	parsed := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parsed = append(parsed, trimmed)
		}
	}

	if len(parsed) == 0 {
		return nil
	}
	return parsed
}
