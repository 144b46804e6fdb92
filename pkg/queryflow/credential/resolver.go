package credential

import (
	"context"
	"log/slog"
)

// Resolver turns (user, key name) into a usable secret or nothing.
// Absence is a normal, representable outcome: Resolve never returns an
// error for a missing key, and callers degrade per their own policy.
type Resolver struct {
	store  Store
	cipher Cipher
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger for lookup and decrypt failures.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a resolver over a credential store and cipher.
func NewResolver(store Store, cipher Cipher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		cipher: cipher,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the decrypted secret for (user, key name), or
// ("", false) when none is stored or decryption fails. Failures are
// logged at low severity; they are degradation, not errors.
func (r *Resolver) Resolve(ctx context.Context, userID, keyName string) (string, bool) {
	if r.store == nil {
		return "", false
	}

	ciphertext, err := r.store.Get(ctx, userID, keyName)
	if err != nil {
		if err != ErrNotFound {
			r.logger.Debug("credential lookup failed",
				slog.String("key_name", keyName),
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}

	secret, err := r.cipher.Decrypt(ciphertext)
	if err != nil {
		r.logger.Warn("credential decrypt failed",
			slog.String("key_name", keyName),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	return secret, true
}

// ResolveChain applies the fallback chain every node handler shares:
// an explicit per-node value wins, then the stored credential for the
// provider name, then nothing.
func (r *Resolver) ResolveChain(ctx context.Context, explicit, provider, userID string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	return r.Resolve(ctx, userID, provider)
}

// Put encrypts and stores a secret for (user, key name).
func (r *Resolver) Put(ctx context.Context, userID, keyName, secret string) error {
	ciphertext, err := r.cipher.Encrypt(secret)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, userID, keyName, ciphertext)
}
