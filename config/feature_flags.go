package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages runtime toggles for optional behaviour.
// Every flag can be overridden with FEATURE_<NAME>=true|false.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

// Predefined feature flag names.
const (
	// Move a member to the next stage as soon as the current one is finished.
	FeatureAutoAdvance = "scoring.auto_advance"

	// Scheduled reminder notifications before due dates.
	FeatureDueReminders = "notify.due_reminders"

	// Keep the Redis sorted-set leaderboard in sync with the ledger.
	FeatureLeaderboardCache = "leaderboard.cache"

	// Allow spreadsheet export of rankings.
	FeatureXLSXExport = "export.xlsx"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the defaults without reading the environment.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureAutoAdvance] = &Feature{
		Name:        FeatureAutoAdvance,
		Description: "Advance members to the next stage after their last book is returned",
		Enabled:     true,
	}

	ff.features[FeatureDueReminders] = &Feature{
		Name:        FeatureDueReminders,
		Description: "Send due-date reminder notifications",
		Enabled:     true,
	}

	ff.features[FeatureLeaderboardCache] = &Feature{
		Name:        FeatureLeaderboardCache,
		Description: "Mirror the leaderboard into Redis sorted sets",
		Enabled:     true,
	}

	ff.features[FeatureXLSXExport] = &Feature{
		Name:        FeatureXLSXExport,
		Description: "Rankings export as an Excel workbook",
		Enabled:     true,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Example: FEATURE_SCORING_AUTO_ADVANCE=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		if val := os.Getenv(featureNameToEnvKey(name)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "scoring.auto_advance" -> "FEATURE_SCORING_AUTO_ADVANCE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a feature is on. A nil receiver or an unknown
// feature is off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	if ff == nil {
		return false
	}
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	return ok && feature.Enabled
}

// Set flips a feature at runtime.
func (ff *FeatureFlags) Set(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// Names returns all known feature names, sorted.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Errors ---

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
