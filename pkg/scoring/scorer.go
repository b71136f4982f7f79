// Package scoring computes the promotion, demotion, and decay arithmetic
// that drives eviction choice and tier rebalancing.
package scoring

import (
	"math"
	"time"

	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// PromotionPolicy names one enabled term of the promotion score.
type PromotionPolicy string

const (
	// PromoteRecentUse favors items accessed recently.
	PromoteRecentUse PromotionPolicy = "recent_use"

	// PromoteTaskReward favors items with high task reward.
	PromoteTaskReward PromotionPolicy = "task_reward"

	// PromoteNovelty favors items with high importance.
	PromoteNovelty PromotionPolicy = "novelty"
)

// DemotionPolicy names one enabled term of the demotion score.
type DemotionPolicy string

const (
	// DemoteStale favors demoting old items.
	DemoteStale DemotionPolicy = "stale"

	// DemoteLowReward favors demoting low-reward items.
	DemoteLowReward DemotionPolicy = "low_reward"

	// DemoteRedundant favors demoting low-importance items.
	DemoteRedundant DemotionPolicy = "redundant"
)

// DefaultPromotionPolicies enables every promotion term.
func DefaultPromotionPolicies() []PromotionPolicy {
	return []PromotionPolicy{PromoteRecentUse, PromoteTaskReward, PromoteNovelty}
}

// DefaultDemotionPolicies enables every demotion term.
func DefaultDemotionPolicies() []DemotionPolicy {
	return []DemotionPolicy{DemoteStale, DemoteLowReward, DemoteRedundant}
}

const secondsPerDay = 86400.0

// Scorer computes promotion and demotion scores for memory items.
//
// Promotion favors recency, reward, and novelty; demotion favors staleness,
// low reward, and redundancy. Both are modulated by provenance trust and
// access frequency. The same promotion score orders eviction: the
// lowest-scoring item leaves a full tier first.
type Scorer struct {
	// PromotionPolicies is the set of enabled promotion terms.
	PromotionPolicies []PromotionPolicy

	// DemotionPolicies is the set of enabled demotion terms.
	DemotionPolicies []DemotionPolicy

	// HalfLifeDays normalizes the staleness term of the demotion score.
	HalfLifeDays float64
}

// NewScorer creates a scorer with all policies enabled and the given
// half-life.
func NewScorer(halfLifeDays float64) *Scorer {
	return &Scorer{
		PromotionPolicies: DefaultPromotionPolicies(),
		DemotionPolicies:  DefaultDemotionPolicies(),
		HalfLifeDays:      halfLifeDays,
	}
}

// PromotionScore computes how strongly the item deserves a faster tier
// at the given instant.
//
// Enabled terms:
//   - recent use: exp(-days_since_access) * 0.4 (one-day decay constant)
//   - task reward: reward * 0.3
//   - novelty: importance * 0.3
//
// The weighted sum is multiplied by the provenance score and boosted by
// access frequency via (1 + ln(1 + access_count)).
func (s *Scorer) PromotionScore(item *memory.Item, now time.Time) float64 {
	score := 0.0

	for _, policy := range s.PromotionPolicies {
		switch policy {
		case PromoteRecentUse:
			sinceAccess := now.Sub(item.LastAccess).Seconds() / secondsPerDay
			score += math.Exp(-sinceAccess) * 0.4
		case PromoteTaskReward:
			score += item.Reward * 0.3
		case PromoteNovelty:
			score += item.Importance * 0.3
		}
	}

	score *= item.ProvenanceScore
	score *= 1.0 + math.Log1p(float64(item.AccessCount))
	return score
}

// DemotionScore computes how strongly the item deserves a slower tier
// at the given instant. Higher means more demotable.
//
// Enabled terms:
//   - stale: (age_days / half_life_days) * 0.4
//   - low reward: (1 - reward) * 0.3
//   - redundant: (1 - importance) * 0.3
//
// The weighted sum is multiplied by (2 - provenance_score) and divided by
// (1 + ln(1 + access_count)), so trusted, frequently-used items resist
// demotion.
func (s *Scorer) DemotionScore(item *memory.Item, now time.Time) float64 {
	score := 0.0

	for _, policy := range s.DemotionPolicies {
		switch policy {
		case DemoteStale:
			ageDays := now.Sub(item.CreatedAt).Seconds() / secondsPerDay
			score += ageDays / s.HalfLifeDays * 0.4
		case DemoteLowReward:
			score += (1.0 - item.Reward) * 0.3
		case DemoteRedundant:
			score += (1.0 - item.Importance) * 0.3
		}
	}

	score *= 2.0 - item.ProvenanceScore
	score /= 1.0 + math.Log1p(float64(item.AccessCount))
	return score
}
