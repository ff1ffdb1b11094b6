// Package config carries the engine's single immutable configuration
// value. There is no global mutable state beyond the store and the
// audit sink (spec.md §6); every constructor in this module takes a
// Config value explicitly, the way the teacher injects *sql.DB and
// repository handles rather than reaching for package-level globals.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/schedcu/residency-engine/internal/entity"
)

// TierWeights are the Tier-3 objective weights from spec.md §4.C:
// α·Gini(hours) + β·Gini(calls) + γ·handoff_count + δ·fragmentation +
// ε·preference_deficit + ζ·utilization_overshoot.
type TierWeights struct {
	WorkloadEquity       float64 // α
	CallEquity           float64 // β
	Continuity           float64 // γ
	Efficiency           float64 // δ
	Preference           float64 // ε
	UtilizationOvershoot float64 // ζ
}

// DefaultTierWeights are sane starting weights; externally tunable per
// spec.md §4.C ("Default weights are part of the configuration and must
// be externally tunable").
func DefaultTierWeights() TierWeights {
	return TierWeights{
		WorkloadEquity:       1.0,
		CallEquity:           1.0,
		Continuity:           0.5,
		Efficiency:           0.25,
		Preference:           0.75,
		UtilizationOvershoot: 1.5,
	}
}

// UtilizationThresholds map a live coverage rate to the five
// defense-in-depth levels (spec.md §4.E, §9: "should be treated as
// defaults and made configurable").
type UtilizationThresholds struct {
	Yellow float64 // ≤ Green, > Yellow boundary
	Orange float64
	Red    float64
	Black  float64
}

// DefaultUtilizationThresholds are the spec's documented defaults.
func DefaultUtilizationThresholds() UtilizationThresholds {
	return UtilizationThresholds{Yellow: 0.70, Orange: 0.80, Red: 0.85, Black: 0.95}
}

// Config is the engine's single configuration value.
type Config struct {
	TierWeights           TierWeights
	UtilizationThresholds UtilizationThresholds

	// RotationHourWeights supplies duty-hour weights per rotation
	// category, since spec.md §9 leaves the table as a configuration
	// input rather than an authoritative constant.
	RotationHourWeights map[entity.RotationCategory]float64

	RollbackWindow    time.Duration
	DefaultTimeout    time.Duration
	HeartbeatPeriod   time.Duration
	ResilienceWorkers int
	AutoDetectDelay   time.Duration

	PostgresDSN string
	RedisAddr   string
}

// Default returns a Config with the spec's documented defaults.
func Default() Config {
	return Config{
		TierWeights:           DefaultTierWeights(),
		UtilizationThresholds: DefaultUtilizationThresholds(),
		RotationHourWeights: map[entity.RotationCategory]float64{
			entity.CategoryInpatient:  12,
			entity.CategoryClinic:     8,
			entity.CategoryNightFloat: 12,
			entity.CategoryCall:       14,
			entity.CategoryProcedures: 10,
			entity.CategoryEmergency:  12,
		},
		RollbackWindow:    24 * time.Hour,
		DefaultTimeout:    30 * time.Second,
		HeartbeatPeriod:   1 * time.Second,
		ResilienceWorkers: 8,
		AutoDetectDelay:   5 * time.Minute,
	}
}

// FromEnv overlays environment variables onto Default(), following the
// teacher's os.Getenv-with-default style in cmd/server/main.go.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("RESIDENCY_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("RESIDENCY_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	} else {
		cfg.RedisAddr = "localhost:6379"
	}
	if v := os.Getenv("RESIDENCY_ROLLBACK_WINDOW_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			cfg.RollbackWindow = time.Duration(hours) * time.Hour
		}
	}
	if v := os.Getenv("RESIDENCY_DEFAULT_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.DefaultTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("RESIDENCY_RESILIENCE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ResilienceWorkers = n
		}
	}

	return cfg
}
