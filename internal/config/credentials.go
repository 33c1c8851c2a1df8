package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"netpilot/internal/domain"
)

// ErrUnknownProfile is returned when a device names a credential profile
// that is not defined
var ErrUnknownProfile = errors.New("unknown credential profile")

// CredentialResolver turns credential profiles into secrets at connect time.
// It satisfies session.CredentialSource.
type CredentialResolver struct {
	profiles map[string]CredentialProfile
	fallback string
	getenv   func(string) string
	readFile func(string) ([]byte, error)
}

// NewCredentialResolver builds a resolver over the config's profiles
func NewCredentialResolver(cfg *Config) *CredentialResolver {
	return &CredentialResolver{
		profiles: cfg.Credentials,
		fallback: cfg.DefaultCredential,
		getenv:   os.Getenv,
		readFile: os.ReadFile,
	}
}

// Resolve returns the credentials of the device's profile, or of the
// default profile when the device names none
func (r *CredentialResolver) Resolve(_ context.Context, device domain.Device) (domain.Credentials, error) {
	name := device.CredentialRef
	if name == "" {
		name = r.fallback
	}
	if name == "" {
		return domain.Credentials{}, fmt.Errorf("%w: %s has no credential_ref and no default is set", ErrUnknownProfile, device.Label())
	}
	return r.Profile(name)
}

// Profile loads the secrets of one named profile
func (r *CredentialResolver) Profile(name string) (domain.Credentials, error) {
	p, ok := r.profiles[name]
	if !ok {
		return domain.Credentials{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}

	creds := domain.Credentials{Username: p.Username, UseAgent: p.UseAgent}
	if p.UsernameEnv != "" {
		if v := r.getenv(p.UsernameEnv); v != "" {
			creds.Username = v
		}
	}
	if p.PasswordEnv != "" {
		creds.Password = r.getenv(p.PasswordEnv)
	}
	if p.PassphraseEnv != "" {
		creds.Passphrase = r.getenv(p.PassphraseEnv)
	}
	if p.KeyFile != "" {
		key, err := r.readFile(expandHome(p.KeyFile))
		if err != nil {
			return domain.Credentials{}, fmt.Errorf("read key for profile %q: %w", name, err)
		}
		creds.PrivateKey = key
	}

	if creds.Username == "" {
		return domain.Credentials{}, fmt.Errorf("profile %q resolves to an empty username", name)
	}
	if !creds.HasSecret() {
		return domain.Credentials{}, fmt.Errorf("profile %q has no password, key, or agent", name)
	}
	return creds, nil
}

// Names lists the defined profile names
func (r *CredentialResolver) Names() []string {
	return sortedKeys(r.profiles)
}

func expandHome(path string) string {
	if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

func sortedKeys(m map[string]CredentialProfile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
