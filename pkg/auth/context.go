// Package auth carries the identity of the caller making an ActionRequest
// through a context.Context, the way request-scoped identity is threaded
// through call chains across the rest of this codebase.
//
// There is exactly one caller today: Core, over the single IPC
// connection, always reporting source "core". The type stays a plain
// string rather than a richer principal because nothing downstream needs
// roles or permissions — rate-limit and anomaly decisions are keyed on
// this string alone — but carrying it as a first-class value now means a
// second local client would not require a signing or pipeline change.
package auth

import (
	"context"
	"errors"
)

type contextKey string

const sourceKey contextKey = "source"

// ErrNoSource is returned by SourceFromContext when no identity has been
// attached to the context.
var ErrNoSource = errors.New("auth: no source in context")

// WithSource attaches the caller identity to ctx.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext retrieves the caller identity attached by WithSource.
func SourceFromContext(ctx context.Context) (string, error) {
	s, ok := ctx.Value(sourceKey).(string)
	if !ok || s == "" {
		return "", ErrNoSource
	}
	return s, nil
}

// MustSourceFromContext panics if no identity is attached. Only safe to
// call from code reachable exclusively through the gateway's transport
// handler, which attaches one before running the pipeline.
func MustSourceFromContext(ctx context.Context) string {
	s, err := SourceFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
