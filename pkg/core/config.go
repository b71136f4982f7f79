package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/brainkit/tieredmem-go/pkg/scoring"
)

// Config contains the complete configuration for a tiered cache.
//
// Example:
//
//	cfg := core.DefaultConfig()
//	cfg.Hot.Capacity = 10000
//	cache, err := core.NewCache(cfg)
type Config struct {
	// Hot configures the fastest, smallest tier.
	Hot HotTierConfig `json:"hot"`

	// Warm configures the larger, coarser-search tier.
	Warm WarmTierConfig `json:"warm"`

	// Cold configures the archival tier.
	Cold ColdTierConfig `json:"cold"`

	// Dedup configures admission-time duplicate detection.
	Dedup DedupConfig `json:"dedup"`

	// Decay configures importance decay.
	Decay DecayConfig `json:"decay"`

	// Retrieval configures query routing.
	Retrieval RetrievalConfig `json:"retrieval"`

	// ConsolidationThreshold is the minimum importance Consolidate requires
	// before admitting an item. Must be within [0, 1].
	ConsolidationThreshold float64 `json:"consolidation_threshold"`

	// PromotionPolicies is the set of enabled promotion score terms.
	// Defaults to all terms.
	PromotionPolicies []scoring.PromotionPolicy `json:"promotion_policies,omitempty"`

	// DemotionPolicies is the set of enabled demotion score terms.
	// Defaults to all terms.
	DemotionPolicies []scoring.DemotionPolicy `json:"demotion_policies,omitempty"`
}

// HotTierConfig configures the hot tier.
type HotTierConfig struct {
	// Capacity is the maximum number of items the facade keeps in the hot
	// tier. Must be >= 1.
	Capacity int `json:"capacity"`
}

// WarmTierConfig configures the warm tier.
type WarmTierConfig struct {
	// Capacity is the maximum number of items in the warm tier. Must be
	// >= Hot.Capacity.
	Capacity int `json:"capacity"`

	// QualityDiscount multiplies warm-tier similarity scores, modeling the
	// recall loss of a coarser index. Must be within (0, 1].
	QualityDiscount float64 `json:"quality_discount"`
}

// ColdTierConfig configures the cold tier.
type ColdTierConfig struct {
	// Capacity is the maximum number of items in the cold tier. Must be
	// >= Warm.Capacity. When cold overflows, the lowest-scoring item is
	// purged.
	Capacity int `json:"capacity"`
}

// DedupConfig configures admission-time duplicate detection.
type DedupConfig struct {
	// NumHashes is the number of MinHash functions. Must be >= 2; the
	// signature uses the first 2.
	NumHashes int `json:"num_hashes"`

	// SimilarityThreshold is the signature similarity at or above which an
	// item is blocked as a duplicate. Must be within [0.8, 1.0].
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// DecayConfig configures importance decay.
type DecayConfig struct {
	// HalfLifeDays is the time for importance to halve under temporal
	// decay. Must be > 0.
	HalfLifeDays float64 `json:"half_life_days"`

	// EnableTemporalDecay enables the age-based multiplier.
	EnableTemporalDecay bool `json:"enable_temporal_decay"`

	// EnableUsageDecay enables the time-since-access multiplier.
	EnableUsageDecay bool `json:"enable_usage_decay"`
}

// RetrievalConfig configures query routing.
type RetrievalConfig struct {
	// HotK caps how many results the hot tier may contribute to a single
	// query before the warm tier backfills the remainder. Must be >= 1.
	HotK int `json:"hot_k"`
}

// DefaultConfig returns the configuration used when nothing is overridden:
// 50k/300k/2M tier capacities, 128 dedup hashes at a 0.95 threshold, a
// 30-day half-life with both decay modes enabled, a 0.7 consolidation
// threshold, a 0.97 warm quality discount, and a hot budget of 50.
func DefaultConfig() *Config {
	return &Config{
		Hot:  HotTierConfig{Capacity: 50000},
		Warm: WarmTierConfig{Capacity: 300000, QualityDiscount: 0.97},
		Cold: ColdTierConfig{Capacity: 2000000},
		Dedup: DedupConfig{
			NumHashes:           128,
			SimilarityThreshold: 0.95,
		},
		Decay: DecayConfig{
			HalfLifeDays:        30,
			EnableTemporalDecay: true,
			EnableUsageDecay:    true,
		},
		Retrieval:              RetrievalConfig{HotK: 50},
		ConsolidationThreshold: 0.7,
		PromotionPolicies:      scoring.DefaultPromotionPolicies(),
		DemotionPolicies:       scoring.DefaultDemotionPolicies(),
	}
}

// Validate checks the configuration and fails fast on the first violation.
//
// Checks:
//   - Hot.Capacity >= 1
//   - Warm.Capacity >= Hot.Capacity, Cold.Capacity >= Warm.Capacity
//   - Dedup.NumHashes >= 2, SimilarityThreshold within [0.8, 1.0]
//   - Decay.HalfLifeDays > 0
//   - ConsolidationThreshold within [0, 1]
//   - Retrieval.HotK >= 1
//   - Warm.QualityDiscount within (0, 1]
func (c *Config) Validate() error {
	if c.Hot.Capacity < 1 {
		return fmt.Errorf("%w: hot capacity must be >= 1", ErrInvalidConfig)
	}
	if c.Warm.Capacity < c.Hot.Capacity {
		return fmt.Errorf("%w: warm capacity must be >= hot capacity", ErrInvalidConfig)
	}
	if c.Cold.Capacity < c.Warm.Capacity {
		return fmt.Errorf("%w: cold capacity must be >= warm capacity", ErrInvalidConfig)
	}
	if c.Dedup.NumHashes < 2 {
		return fmt.Errorf("%w: dedup num_hashes must be >= 2", ErrInvalidConfig)
	}
	if c.Dedup.SimilarityThreshold < 0.8 || c.Dedup.SimilarityThreshold > 1.0 {
		return fmt.Errorf("%w: dedup similarity_threshold must be within [0.8, 1.0]", ErrInvalidConfig)
	}
	if c.Decay.HalfLifeDays <= 0 {
		return fmt.Errorf("%w: decay half_life_days must be > 0", ErrInvalidConfig)
	}
	if c.ConsolidationThreshold < 0 || c.ConsolidationThreshold > 1 {
		return fmt.Errorf("%w: consolidation_threshold must be within [0, 1]", ErrInvalidConfig)
	}
	if c.Retrieval.HotK < 1 {
		return fmt.Errorf("%w: retrieval hot_k must be >= 1", ErrInvalidConfig)
	}
	if c.Warm.QualityDiscount <= 0 || c.Warm.QualityDiscount > 1 {
		return fmt.Errorf("%w: warm quality_discount must be within (0, 1]", ErrInvalidConfig)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables,
// starting from DefaultConfig.
//
// The function searches for a .env file (up to 5 directory levels up) and
// loads it before reading the environment.
//
// Supported environment variables:
//   - TIEREDMEM_HOT_CAPACITY, TIEREDMEM_WARM_CAPACITY, TIEREDMEM_COLD_CAPACITY
//   - TIEREDMEM_WARM_QUALITY_DISCOUNT
//   - TIEREDMEM_DEDUP_NUM_HASHES, TIEREDMEM_DEDUP_THRESHOLD
//   - TIEREDMEM_HALF_LIFE_DAYS, TIEREDMEM_TEMPORAL_DECAY, TIEREDMEM_USAGE_DECAY
//   - TIEREDMEM_CONSOLIDATION_THRESHOLD
//   - TIEREDMEM_RETRIEVAL_HOT_K
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	cfg.Hot.Capacity = getEnvInt("TIEREDMEM_HOT_CAPACITY", cfg.Hot.Capacity)
	cfg.Warm.Capacity = getEnvInt("TIEREDMEM_WARM_CAPACITY", cfg.Warm.Capacity)
	cfg.Cold.Capacity = getEnvInt("TIEREDMEM_COLD_CAPACITY", cfg.Cold.Capacity)
	cfg.Warm.QualityDiscount = getEnvFloat("TIEREDMEM_WARM_QUALITY_DISCOUNT", cfg.Warm.QualityDiscount)

	cfg.Dedup.NumHashes = getEnvInt("TIEREDMEM_DEDUP_NUM_HASHES", cfg.Dedup.NumHashes)
	cfg.Dedup.SimilarityThreshold = getEnvFloat("TIEREDMEM_DEDUP_THRESHOLD", cfg.Dedup.SimilarityThreshold)

	cfg.Decay.HalfLifeDays = getEnvFloat("TIEREDMEM_HALF_LIFE_DAYS", cfg.Decay.HalfLifeDays)
	cfg.Decay.EnableTemporalDecay = getEnvBool("TIEREDMEM_TEMPORAL_DECAY", cfg.Decay.EnableTemporalDecay)
	cfg.Decay.EnableUsageDecay = getEnvBool("TIEREDMEM_USAGE_DECAY", cfg.Decay.EnableUsageDecay)

	cfg.ConsolidationThreshold = getEnvFloat("TIEREDMEM_CONSOLIDATION_THRESHOLD", cfg.ConsolidationThreshold)
	cfg.Retrieval.HotK = getEnvInt("TIEREDMEM_RETRIEVAL_HOT_K", cfg.Retrieval.HotK)

	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file. Fields absent
// from the file keep their default values.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewCacheError("LoadConfigFromJSON", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, NewCacheError("LoadConfigFromJSON", err)
	}

	return cfg, nil
}

// FindEnvFile searches for a .env or .env.example file, checking the
// current directory and then up to 5 directory levels up.
//
// Returns the path of the first file found and whether one was found.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
