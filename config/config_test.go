package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, 2, cfg.Scoring.PenaltyPerLateDay)
	assert.Equal(t, 2, cfg.Scoring.ReminderLeadDays)
	assert.Equal(t, 3, cfg.Scoring.DefaultReadingDays)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.Features.IsEnabled(FeatureAutoAdvance))
}

func TestLoad_ScoringOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SCORING_PENALTY_PER_LATE_DAY", "5")
	t.Setenv("FEATURE_SCORING_AUTO_ADVANCE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Scoring.PenaltyPerLateDay)
	assert.False(t, cfg.Features.IsEnabled(FeatureAutoAdvance))
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: DriverPostgres},
		HTTP:     HTTPConfig{Port: 0},
		Scoring:  ScoringConfig{PenaltyPerLateDay: -1, DefaultReadingDays: 3},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "HTTP_PORT")
	assert.Contains(t, err.Error(), "SCORING_PENALTY_PER_LATE_DAY")
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		HTTP:     HTTPConfig{Port: 8080},
		Scoring:  ScoringConfig{DefaultReadingDays: 3},
	}
	assert.Error(t, cfg.Validate())
}

func TestFeatureFlags(t *testing.T) {
	ff := NewFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureXLSXExport))
	assert.False(t, ff.IsEnabled("unknown.flag"))

	require.NoError(t, ff.Set(FeatureXLSXExport, false))
	assert.False(t, ff.IsEnabled(FeatureXLSXExport))
	assert.ErrorIs(t, ff.Set("unknown.flag", true), ErrFeatureNotFound)

	var nilFlags *FeatureFlags
	assert.False(t, nilFlags.IsEnabled(FeatureAutoAdvance))

	assert.Equal(t, "FEATURE_SCORING_AUTO_ADVANCE", featureNameToEnvKey(FeatureAutoAdvance))
	assert.Len(t, ff.Names(), 4)
}
