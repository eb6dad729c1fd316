// Package middleware wraps result stores with extra behavior.
package middleware

import "github.com/aretw0/solsim/pkg/ports"

// Middleware wraps a ResultStore.
type Middleware func(ports.ResultStore) ports.ResultStore

// Chain applies middlewares so the first one is the outermost.
func Chain(store ports.ResultStore, mws ...Middleware) ports.ResultStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
