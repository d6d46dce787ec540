// Package credentials resolves API tokens by identifier. Secrets are never
// logged here; only identifiers are.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/duke-git/lancet/v2/strutil"
	"go.uber.org/zap"
)

var (
	// ErrCredentialMissing means no identifier was configured at all.
	ErrCredentialMissing = errors.New("credential id is missing")

	// ErrCredentialNotFound means the identifier did not resolve to a secret.
	ErrCredentialNotFound = errors.New("credential not found")
)

// Store is the lookup-by-identifier capability of an external secret store.
type Store interface {
	Lookup(ctx context.Context, id string) (secret string, found bool, err error)
}

// Resolver looks up secrets in a Store.
type Resolver struct {
	store Store
	log   *zap.Logger
}

func NewResolver(store Store, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: store, log: log.Named("credentials")}
}

// Resolve returns the secret for id. A blank id fails with
// ErrCredentialMissing; an id the store does not know, or a store error,
// fails with ErrCredentialNotFound.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	if strutil.IsBlank(id) {
		return "", ErrCredentialMissing
	}
	if r.store == nil {
		return "", fmt.Errorf("%w: %s (no credential store configured)", ErrCredentialNotFound, id)
	}
	secret, found, err := r.store.Lookup(ctx, id)
	if err != nil {
		r.log.Warn("credential lookup failed", zap.String("credentials_id", id), zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", ErrCredentialNotFound, id, err)
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	r.log.Debug("credential resolved", zap.String("credentials_id", id))
	return secret, nil
}
