package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetReviewer(ctx))

	ctx = SetRequestID(ctx, "req-1")
	ctx = SetReviewer(ctx, "scout@example.com")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "scout@example.com", GetReviewer(ctx))
}
