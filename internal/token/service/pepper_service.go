package service

import (
	"context"
	"encoding/base64"

	"gocloud.dev/secrets"

	apperrors "github.com/allisson/authtokens/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// PepperService loads the token hash pepper from configuration.
// The pepper is supplied base64-encoded; when a KMS key URI is configured the
// decoded value is treated as KMS ciphertext and unwrapped through a
// gocloud.dev secrets keeper, so the plaintext pepper never rests on disk.
type PepperService interface {
	// LoadPepper decodes (and, when kmsKeyURI is set, decrypts) the pepper.
	LoadPepper(ctx context.Context, encodedPepper string, kmsKeyURI string) ([]byte, error)
}

// pepperService implements PepperService using gocloud.dev/secrets.
type pepperService struct{}

// NewPepperService creates a new PepperService instance.
func NewPepperService() PepperService {
	return &pepperService{}
}

// LoadPepper decodes the base64 pepper and unwraps it via the configured KMS
// provider when kmsKeyURI is non-empty.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func (p *pepperService) LoadPepper(
	ctx context.Context,
	encodedPepper string,
	kmsKeyURI string,
) ([]byte, error) {
	if encodedPepper == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "token hash pepper is not configured")
	}

	raw, err := base64.StdEncoding.DecodeString(encodedPepper)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decode token hash pepper")
	}

	if kmsKeyURI == "" {
		return raw, nil
	}

	keeper, err := secrets.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open KMS keeper")
	}
	defer keeper.Close() //nolint:errcheck

	pepper, err := keeper.Decrypt(ctx, raw)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decrypt token hash pepper")
	}

	return pepper, nil
}
