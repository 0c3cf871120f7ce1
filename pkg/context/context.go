// Package context carries request-scoped values that outlive the HTTP layer,
// so services and CLI commands read them the same way.
package context

import "context"

type key int

const (
	requestIDKey key = iota
	reviewerKey
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// SetReviewer stores who is acting on the review queue. Free text, not authenticated.
func SetReviewer(ctx context.Context, reviewer string) context.Context {
	return context.WithValue(ctx, reviewerKey, reviewer)
}

// GetReviewer returns the reviewer, or "" when none was given
func GetReviewer(ctx context.Context) string {
	reviewer, _ := ctx.Value(reviewerKey).(string)
	return reviewer
}
