// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/authtokens/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "authtokens",
		Usage:   "Auth token lifecycle and rotation service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server with background workers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-token",
				Usage: "Issue a new token (e.g., bootstrap the first API key)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Value:   "api_key",
						Usage:   "Token type: access, refresh, api_key, reset_password, email_verification",
					},
					&cli.StringFlag{
						Name:    "user-id",
						Aliases: []string{"u"},
						Usage:   "Subject user ID (UUID, omit for system API keys)",
					},
					&cli.Int64Flag{
						Name:  "ttl",
						Usage: "Lifetime in seconds (omit for the type's policy default)",
					},
					&cli.StringFlag{
						Name:    "scopes",
						Aliases: []string{"s"},
						Usage:   "Comma-separated scope list (omit for the type's policy defaults)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateToken(
						ctx,
						cmd.String("type"),
						cmd.String("user-id"),
						cmd.Int64("ttl"),
						cmd.String("scopes"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "revoke-token",
				Usage: "Permanently invalidate a single token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Token ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "reason",
						Aliases: []string{"r"},
						Usage:   "Revocation reason recorded in token metadata",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRevokeToken(ctx, cmd.String("id"), cmd.String("reason"))
				},
			},
			{
				Name:  "revoke-user-tokens",
				Usage: "Revoke every active token of a user (logout everywhere)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user-id",
						Aliases:  []string{"u"},
						Required: true,
						Usage:    "User ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Restrict revocation to a single token type",
					},
					&cli.StringFlag{
						Name:    "reason",
						Aliases: []string{"r"},
						Usage:   "Revocation reason recorded in token metadata",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRevokeUserTokens(
						ctx,
						cmd.String("user-id"),
						cmd.String("type"),
						cmd.String("reason"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "clean-expired-tokens",
				Usage: "Run a single expiry sweep and retention purge",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanExpiredTokens(ctx, cmd.String("format"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
