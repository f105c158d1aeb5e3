package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker(16, time.Hour)

	revoked, err := r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "abc", time.Now().Add(time.Minute)))
	revoked, _ = r.IsRevoked(ctx, "abc")
	assert.True(t, revoked)

	require.NoError(t, r.Revoke(ctx, "stale", time.Now().Add(-time.Minute)))
	revoked, _ = r.IsRevoked(ctx, "stale")
	assert.False(t, revoked, "already expired tokens need no entry")
}
