package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sensor-endpoint/internal/threshold"
)

var defaults = threshold.Config{LowAlarm: -10, LowWarn: 0, HighWarn: 80, HighAlarm: 100}

func TestConfigStore_FreshDatabaseUsesDefaults(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	cs, err := NewConfigStore(ctx, s, defaults, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, defaults, cs.Read())
	assert.True(t, cs.Modified(), "defaults must be written back")

	require.NoError(t, cs.PersistIfModified(ctx))
	assert.False(t, cs.Modified())

	persisted, err := s.LoadThresholds(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, persisted)
}

func TestConfigStore_ApplyMarksModified(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveThresholds(ctx, defaults))

	cs, err := NewConfigStore(ctx, s, defaults, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, cs.Modified())

	assert.Error(t, cs.Apply(threshold.HighWarn, -5))
	assert.False(t, cs.Modified(), "rejected change must not schedule a write")

	require.NoError(t, cs.Apply(threshold.HighWarn, 90))
	assert.True(t, cs.Modified())
	require.NoError(t, cs.PersistIfModified(ctx))

	reloaded, err := NewConfigStore(ctx, s, defaults, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 90, reloaded.Read().HighWarn)
}

func TestConfigStore_InvalidPersistedConfigFallsBack(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveThresholds(ctx, threshold.Config{LowAlarm: 10, LowWarn: 0, HighWarn: 80, HighAlarm: 100}))

	cs, err := NewConfigStore(ctx, s, defaults, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, defaults, cs.Read())
	assert.True(t, cs.Modified())
}
