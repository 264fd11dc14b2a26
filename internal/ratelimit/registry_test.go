package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Check(t *testing.T) {
	registry := NewRegistry(nil, nil, Tier{Name: "tiny", Requests: 2, Window: time.Minute})
	defer registry.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := registry.Check(ctx, "1.2.3.4", "tiny")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := registry.Check(ctx, "1.2.3.4", "tiny")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// A different caller key has an independent budget.
	result, err = registry.Check(ctx, "5.6.7.8", "tiny")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRegistry_UnknownTier(t *testing.T) {
	registry := NewRegistry(nil, nil)
	defer registry.Close()

	_, err := registry.Check(context.Background(), "1.2.3.4", "nonexistent")
	assert.Error(t, err)
}

func TestRegistry_DefaultTiers(t *testing.T) {
	registry := NewRegistry(nil, nil)
	defer registry.Close()

	for _, name := range []string{"general", "login", "signup", "password_reset", "task_create"} {
		tier, ok := registry.Tier(name)
		require.True(t, ok, "tier %s should be registered", name)
		assert.Greater(t, tier.Requests, 0)
		assert.Greater(t, tier.Window, time.Duration(0))
	}

	login, _ := registry.Tier("login")
	assert.Equal(t, 5, login.Requests)
	assert.Equal(t, 15*time.Minute, login.Window)
}

func TestRegistry_Reset(t *testing.T) {
	registry := NewRegistry(nil, nil, Tier{Name: "tiny", Requests: 1, Window: time.Minute})
	defer registry.Close()
	ctx := context.Background()

	result, err := registry.Check(ctx, "1.2.3.4", "tiny")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	require.NoError(t, registry.Reset(ctx, "1.2.3.4", "tiny"))

	result, err = registry.Check(ctx, "1.2.3.4", "tiny")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	assert.Error(t, registry.Reset(ctx, "1.2.3.4", "nonexistent"))
}

func TestRegistry_CloseIdempotent(t *testing.T) {
	registry := NewRegistry(nil, nil)
	registry.Close()
	registry.Close()
}
