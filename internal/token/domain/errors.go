package domain

import (
	"github.com/allisson/authtokens/internal/errors"
)

// Token lifecycle errors.
var (
	// ErrTokenNotFound indicates a token with the specified ID was not found.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrInvalidToken is the uniform validation failure. Not-found, expired,
	// and revoked tokens all surface as this error so that validation cannot
	// be used as an oracle for token existence or status.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrTokenNotActive indicates an operation that requires an active token,
	// such as rotation, was attempted on an expired or revoked one.
	ErrTokenNotActive = errors.Wrap(errors.ErrForbidden, "cannot operate on a non-active token")

	// ErrHashCollision indicates token generation produced a hash that already
	// exists after exhausting the retry budget. This signals a broken RNG or a
	// capacity problem and should page.
	ErrHashCollision = errors.Wrap(errors.ErrConflict, "token hash collision after retries")
)
