package batchfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPolicy(t *testing.T) {
	defaults := PolicyDefaults{
		SkipHours:         24,
		InstagramDelayMin: 5.0,
		InstagramDelayMax: 10.0,
	}

	t.Run("configuration defaults", func(t *testing.T) {
		policy := SnapshotPolicy(defaults, false)

		assert.Equal(t, 24, policy.SkipHours)
		assert.Equal(t, 5.0, policy.InstagramDelayMin)
		assert.Equal(t, 10.0, policy.InstagramDelayMax)
		assert.False(t, policy.Force)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv(EnvSkipHours, "6")
		t.Setenv(EnvInstagramDelayMin, "1.5")
		t.Setenv(EnvInstagramDelayMax, "3.0")

		policy := SnapshotPolicy(defaults, true)

		assert.Equal(t, 6, policy.SkipHours)
		assert.Equal(t, 1.5, policy.InstagramDelayMin)
		assert.Equal(t, 3.0, policy.InstagramDelayMax)
		assert.True(t, policy.Force)
	})

	t.Run("unparseable environment values are ignored", func(t *testing.T) {
		t.Setenv(EnvSkipHours, "soon")
		t.Setenv(EnvInstagramDelayMin, "slow")

		policy := SnapshotPolicy(defaults, false)

		assert.Equal(t, 24, policy.SkipHours)
		assert.Equal(t, 5.0, policy.InstagramDelayMin)
	})

	t.Run("negative values floor at zero", func(t *testing.T) {
		t.Setenv(EnvSkipHours, "-5")
		t.Setenv(EnvInstagramDelayMin, "-2")
		t.Setenv(EnvInstagramDelayMax, "-1")

		policy := SnapshotPolicy(defaults, false)

		assert.Equal(t, 0, policy.SkipHours)
		assert.Equal(t, 0.0, policy.InstagramDelayMin)
		assert.Equal(t, 0.0, policy.InstagramDelayMax)
	})

	t.Run("inverted delay bounds are swapped", func(t *testing.T) {
		t.Setenv(EnvInstagramDelayMin, "12")
		t.Setenv(EnvInstagramDelayMax, "4")

		policy := SnapshotPolicy(defaults, false)

		assert.Equal(t, 4.0, policy.InstagramDelayMin)
		assert.Equal(t, 12.0, policy.InstagramDelayMax)
	})
}

func TestParsePolicy(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		policy, err := ParsePolicy(`{"skip_hours":12,"instagram_delay_min_seconds":2,"instagram_delay_max_seconds":4,"force":true}`)
		require.NoError(t, err)

		assert.Equal(t, 12, policy.SkipHours)
		assert.Equal(t, 2.0, policy.InstagramDelayMin)
		assert.Equal(t, 4.0, policy.InstagramDelayMax)
		assert.True(t, policy.Force)
	})

	t.Run("corrupt snapshot yields built-in defaults and the error", func(t *testing.T) {
		policy, err := ParsePolicy("{nope")
		require.Error(t, err)

		assert.Equal(t, DefaultSkipHours, policy.SkipHours)
		assert.Equal(t, DefaultInstagramDelayMin, policy.InstagramDelayMin)
		assert.Equal(t, DefaultInstagramDelayMax, policy.InstagramDelayMax)
		assert.False(t, policy.Force)
	})

	t.Run("stored values are normalized", func(t *testing.T) {
		policy, err := ParsePolicy(`{"skip_hours":-3,"instagram_delay_min_seconds":9,"instagram_delay_max_seconds":3}`)
		require.NoError(t, err)

		assert.Equal(t, 0, policy.SkipHours)
		assert.Equal(t, 3.0, policy.InstagramDelayMin)
		assert.Equal(t, 9.0, policy.InstagramDelayMax)
	})
}
