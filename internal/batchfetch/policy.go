package batchfetch

import (
	"encoding/json"
	"os"
	"strconv"
)

// Run policy defaults, applied when neither configuration nor environment
// provides a value
const (
	DefaultSkipHours         = 24
	DefaultInstagramDelayMin = 5.0
	DefaultInstagramDelayMax = 10.0
)

// Environment overrides consulted at job-creation time
const (
	EnvSkipHours         = "BATCH_FETCH_SKIP_HOURS"
	EnvInstagramDelayMin = "INSTAGRAM_FETCH_DELAY_MIN_SECONDS"
	EnvInstagramDelayMax = "INSTAGRAM_FETCH_DELAY_MAX_SECONDS"
)

// RunPolicy is the immutable per-run configuration snapshot stored in the
// job's config_json at creation. Execution reads only this snapshot, never
// live configuration.
type RunPolicy struct {
	SkipHours         int     `json:"skip_hours"`
	InstagramDelayMin float64 `json:"instagram_delay_min_seconds"`
	InstagramDelayMax float64 `json:"instagram_delay_max_seconds"`
	Force             bool    `json:"force"`
}

// PolicyDefaults are the configuration-file fallbacks for the snapshot
type PolicyDefaults struct {
	SkipHours         int
	InstagramDelayMin float64
	InstagramDelayMax float64
}

// SnapshotPolicy computes the run policy for a new job: configuration
// defaults, overridden by environment where set and parseable, then
// normalized (non-negative values, min/max swapped when inverted).
func SnapshotPolicy(defaults PolicyDefaults, force bool) RunPolicy {
	policy := RunPolicy{
		SkipHours:         defaults.SkipHours,
		InstagramDelayMin: defaults.InstagramDelayMin,
		InstagramDelayMax: defaults.InstagramDelayMax,
		Force:             force,
	}

	if raw := os.Getenv(EnvSkipHours); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			policy.SkipHours = value
		}
	}
	if raw := os.Getenv(EnvInstagramDelayMin); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			policy.InstagramDelayMin = value
		}
	}
	if raw := os.Getenv(EnvInstagramDelayMax); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			policy.InstagramDelayMax = value
		}
	}

	return normalizePolicy(policy)
}

// ParsePolicy decodes a job's config_json snapshot. A snapshot that cannot
// be decoded yields the built-in defaults and the decode error.
func ParsePolicy(configJSON string) (RunPolicy, error) {
	var policy RunPolicy
	if err := json.Unmarshal([]byte(configJSON), &policy); err != nil {
		return normalizePolicy(RunPolicy{
			SkipHours:         DefaultSkipHours,
			InstagramDelayMin: DefaultInstagramDelayMin,
			InstagramDelayMax: DefaultInstagramDelayMax,
		}), err
	}
	return normalizePolicy(policy), nil
}

func normalizePolicy(policy RunPolicy) RunPolicy {
	if policy.SkipHours < 0 {
		policy.SkipHours = 0
	}
	if policy.InstagramDelayMin < 0 {
		policy.InstagramDelayMin = 0
	}
	if policy.InstagramDelayMax < 0 {
		policy.InstagramDelayMax = 0
	}
	if policy.InstagramDelayMax < policy.InstagramDelayMin {
		policy.InstagramDelayMin, policy.InstagramDelayMax = policy.InstagramDelayMax, policy.InstagramDelayMin
	}
	return policy
}
