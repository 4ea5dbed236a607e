package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// PRSESSION_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set PRSESSION_SECRET_KEY")

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer owns encryption; this interface operates on plaintext
// values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the credential for the given service.
	// Returns ErrEncryptionKeyNotSet if the adapter has no encryption key.
	Set(ctx context.Context, service, plaintext string) error

	// Get retrieves the plaintext credential for the given service.
	// Returns ("", nil) if no credential exists for that service.
	Get(ctx context.Context, service string) (string, error)

	// Delete removes the credential for the given service.
	Delete(ctx context.Context, service string) error
}
