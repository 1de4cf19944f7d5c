package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/allisson/authtokens/internal/app"
	"github.com/allisson/authtokens/internal/config"
	tokenUsecase "github.com/allisson/authtokens/internal/token/usecase"
)

// RunRevokeToken permanently invalidates a single token by ID.
// Revocation is idempotent: revoking an already-revoked token succeeds.
//
// Requirements: Database must be migrated and accessible.
func RunRevokeToken(ctx context.Context, tokenID string, reason string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	useCase, err := container.TokenUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize token use case: %w", err)
	}

	return revokeToken(ctx, useCase, logger, os.Stdout, tokenID, reason)
}

// revokeToken contains the testable command logic with injected dependencies.
func revokeToken(
	ctx context.Context,
	useCase tokenUsecase.TokenUseCase,
	logger *slog.Logger,
	w io.Writer,
	tokenID string,
	reason string,
) error {
	parsedID, err := uuid.Parse(tokenID)
	if err != nil {
		return fmt.Errorf("invalid token id: %s", tokenID)
	}

	logger.Info("revoking token",
		slog.String("token_id", tokenID),
		slog.String("reason", reason),
	)

	if err := useCase.Revoke(ctx, parsedID, reason); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	fmt.Fprintf(w, "Token %s revoked\n", parsedID)
	return nil
}
