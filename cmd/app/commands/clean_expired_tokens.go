package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/allisson/authtokens/internal/app"
	"github.com/allisson/authtokens/internal/config"
	tokenUsecase "github.com/allisson/authtokens/internal/token/usecase"
)

// RunCleanExpiredTokens runs a single cleanup cycle: stale active tokens are
// transitioned to expired and terminal records older than the configured
// retention window are purged. The same operation the background worker runs
// periodically, exposed for cron-style scheduling.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(ctx context.Context, format string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	useCase, err := container.TokenUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize token use case: %w", err)
	}

	return cleanExpiredTokens(ctx, useCase, logger, os.Stdout, format)
}

// cleanExpiredTokens contains the testable command logic with injected dependencies.
func cleanExpiredTokens(
	ctx context.Context,
	useCase tokenUsecase.TokenUseCase,
	logger *slog.Logger,
	w io.Writer,
	format string,
) error {
	logger.Info("cleaning expired tokens")

	count, err := useCase.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	if format == "json" {
		outputCleanExpiredJSON(w, count)
	} else {
		fmt.Fprintf(w, "Transitioned %d expired token(s)\n", count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))
	return nil
}

// outputCleanExpiredJSON outputs the result in JSON format for machine consumption.
func outputCleanExpiredJSON(w io.Writer, count int64) {
	result := map[string]interface{}{
		"expired_count": count,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
