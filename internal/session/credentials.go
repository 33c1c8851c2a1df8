package session

import (
	"context"

	"netpilot/internal/domain"
)

// CredentialSource resolves the secrets for a device at connect time
type CredentialSource interface {
	Resolve(ctx context.Context, device domain.Device) (domain.Credentials, error)
}

// CredentialFunc adapts a function to CredentialSource
type CredentialFunc func(ctx context.Context, device domain.Device) (domain.Credentials, error)

// Resolve calls f
func (f CredentialFunc) Resolve(ctx context.Context, device domain.Device) (domain.Credentials, error) {
	return f(ctx, device)
}

// StaticCredentials returns the same credentials for every device. Discovery
// uses it for the shared credential pair of a sweep.
type StaticCredentials domain.Credentials

// Resolve returns the static credentials
func (s StaticCredentials) Resolve(context.Context, domain.Device) (domain.Credentials, error) {
	return domain.Credentials(s), nil
}
