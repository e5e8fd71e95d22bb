package threshold

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{LowAlarm: -10, LowWarn: 0, HighWarn: 80, HighAlarm: 100}
}

func TestApply(t *testing.T) {
	testCases := []struct {
		name      string
		kind      Kind
		value     int
		expectErr error
		expected  Config
	}{
		{name: "high alarm accepted", kind: HighAlarm, value: 200, expected: Config{LowAlarm: -10, LowWarn: 0, HighWarn: 80, HighAlarm: 200}},
		{name: "high alarm equal to high warn", kind: HighAlarm, value: 80, expectErr: ErrOutOfOrder},
		{name: "high alarm at ceiling", kind: HighAlarm, value: Ceiling, expectErr: ErrAboveCeiling},
		{name: "high alarm just below ceiling", kind: HighAlarm, value: Ceiling - 1, expected: Config{LowAlarm: -10, LowWarn: 0, HighWarn: 80, HighAlarm: Ceiling - 1}},
		{name: "high warn accepted", kind: HighWarn, value: 90, expected: Config{LowAlarm: -10, LowWarn: 0, HighWarn: 90, HighAlarm: 100}},
		{name: "high warn below low warn", kind: HighWarn, value: -5, expectErr: ErrOutOfOrder},
		{name: "high warn equal to high alarm", kind: HighWarn, value: 100, expectErr: ErrOutOfOrder},
		{name: "high warn equal to low warn", kind: HighWarn, value: 0, expectErr: ErrOutOfOrder},
		{name: "low warn accepted", kind: LowWarn, value: 5, expected: Config{LowAlarm: -10, LowWarn: 5, HighWarn: 80, HighAlarm: 100}},
		{name: "low warn equal to low alarm", kind: LowWarn, value: -10, expectErr: ErrOutOfOrder},
		{name: "low warn equal to high warn", kind: LowWarn, value: 80, expectErr: ErrOutOfOrder},
		{name: "low alarm accepted", kind: LowAlarm, value: -20, expected: Config{LowAlarm: -20, LowWarn: 0, HighWarn: 80, HighAlarm: 100}},
		{name: "low alarm has no floor", kind: LowAlarm, value: -100000, expected: Config{LowAlarm: -100000, LowWarn: 0, HighWarn: 80, HighAlarm: 100}},
		{name: "low alarm equal to low warn", kind: LowAlarm, value: 0, expectErr: ErrOutOfOrder},
		{name: "unknown kind", kind: Kind(42), value: 1, expectErr: ErrUnknownKind},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			err := Apply(&cfg, tc.kind, tc.value)

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Equal(t, baseConfig(), cfg, "rejected value must not mutate config")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cfg)
			assert.True(t, cfg.Valid())
		})
	}
}

func TestApply_ChecksPreMutationConfig(t *testing.T) {
	cfg := baseConfig()

	// Raising high warn first makes the previously valid low warn window wider.
	require.NoError(t, Apply(&cfg, HighWarn, 95))
	require.NoError(t, Apply(&cfg, LowWarn, 90))
	assert.Equal(t, Config{LowAlarm: -10, LowWarn: 90, HighWarn: 95, HighAlarm: 100}, cfg)
}

func TestGuard_ConcurrentApplyKeepsOrdering(t *testing.T) {
	g := NewGuard(baseConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			_ = g.Apply(HighWarn, v)
		}(i + 1)
		go func(v int) {
			defer wg.Done()
			_ = g.Apply(LowWarn, v)
		}(i)
	}
	wg.Wait()

	assert.True(t, g.Read().Valid())
}

func TestKind_Key(t *testing.T) {
	assert.Equal(t, "tcrit_hi", HighAlarm.Key())
	assert.Equal(t, "twarn_hi", HighWarn.Key())
	assert.Equal(t, "tcrit_lo", LowAlarm.Key())
	assert.Equal(t, "twarn_lo", LowWarn.Key())
	assert.Equal(t, 80, baseConfig().Get(HighWarn))
}
