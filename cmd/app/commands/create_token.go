package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/allisson/authtokens/internal/app"
	"github.com/allisson/authtokens/internal/config"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	tokenUsecase "github.com/allisson/authtokens/internal/token/usecase"
)

// RunCreateToken issues a new token from the command line. Primarily used to
// bootstrap the first API key so the HTTP management surface can be called.
// The plaintext is printed exactly once and never stored.
//
// Requirements: Database must be migrated and accessible.
func RunCreateToken(
	ctx context.Context,
	tokenType string,
	userID string,
	ttlSeconds int64,
	scopes string,
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

	return createToken(ctx, useCase, logger, os.Stdout, tokenType, userID, ttlSeconds, scopes, format)
}

// createToken contains the testable command logic with injected dependencies.
func createToken(
	ctx context.Context,
	useCase tokenUsecase.TokenUseCase,
	logger *slog.Logger,
	w io.Writer,
	tokenType string,
	userID string,
	ttlSeconds int64,
	scopes string,
	format string,
) error {
	parsedType, err := parseTokenType(tokenType)
	if err != nil {
		return err
	}

	parsedUserID, err := parseOptionalUserID(userID)
	if err != nil {
		return err
	}

	input := &tokenDomain.CreateTokenInput{
		Type:   parsedType,
		UserID: parsedUserID,
		Scopes: parseScopes(scopes),
	}
	if ttlSeconds > 0 {
		lifetime := time.Duration(ttlSeconds) * time.Second
		input.Lifetime = &lifetime
	}

	logger.Info("creating token",
		slog.String("token_type", tokenType),
		slog.String("user_id", userID),
	)

	output, err := useCase.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	if format == "json" {
		outputCreateTokenJSON(w, output)
	} else {
		outputCreateTokenText(w, output)
	}

	logger.Info("token created", slog.String("token_id", output.Token.ID.String()))
	return nil
}

// outputCreateTokenText outputs the result in human-readable text format.
func outputCreateTokenText(w io.Writer, output *tokenDomain.CreateTokenOutput) {
	fmt.Fprintf(w, "Token created successfully!\n")
	fmt.Fprintf(w, "ID:         %s\n", output.Token.ID)
	fmt.Fprintf(w, "Type:       %s\n", output.Token.Type)
	fmt.Fprintf(w, "Expires At: %s\n", output.Token.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Scopes:     %v\n", output.Token.Scopes)
	fmt.Fprintf(w, "\nToken (save this, it will not be shown again):\n%s\n", output.PlainToken)
}

// outputCreateTokenJSON outputs the result in JSON format for machine consumption.
func outputCreateTokenJSON(w io.Writer, output *tokenDomain.CreateTokenOutput) {
	result := map[string]interface{}{
		"id":         output.Token.ID.String(),
		"token_type": string(output.Token.Type),
		"expires_at": output.Token.ExpiresAt.Format(time.RFC3339),
		"scopes":     output.Token.Scopes,
		"token":      output.PlainToken,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
