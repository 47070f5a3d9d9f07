// Package middleware wraps a ports.SessionStore with cross-cutting persistence
// behavior: encryption at rest and masking of personal data in transcripts.
package middleware

import "github.com/aretw0/coach/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies mws so that the first one sees each call first.
// Chain(pii, enc)(store) masks, then encrypts, then stores.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
