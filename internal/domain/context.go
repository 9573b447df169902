package domain

import "context"

type freshFetchKey struct{}

// WithFreshFetch marks ctx so cached archive sources re-read from upstream
// instead of serving a retained copy. The result still refreshes the cache.
func WithFreshFetch(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshFetchKey{}, true)
}

// IsFreshFetch reports whether ctx was marked by WithFreshFetch.
func IsFreshFetch(ctx context.Context) bool {
	fresh, _ := ctx.Value(freshFetchKey{}).(bool)
	return fresh
}
