package scoring

import (
	"math"
	"time"

	"github.com/brainkit/tieredmem-go/pkg/memory"
)

// decayFloor keeps the combined multiplier from collapsing importance to
// exactly zero.
const decayFloor = 0.01

// Decay shrinks item importance by temporal age and by lack of use.
//
// Importance is monotonically non-increasing under decay: the combined
// multiplier never exceeds 1, so repeated application only further
// decreases importance or holds it at the floor. Only an explicit
// consolidation can raise it again.
type Decay struct {
	// HalfLifeDays is the time for importance to halve under temporal decay.
	HalfLifeDays float64

	// Temporal enables the age-based multiplier.
	Temporal bool

	// Usage enables the time-since-access multiplier.
	Usage bool
}

// NewDecay creates a decay engine with both multipliers enabled.
func NewDecay(halfLifeDays float64) *Decay {
	return &Decay{
		HalfLifeDays: halfLifeDays,
		Temporal:     true,
		Usage:        true,
	}
}

// Enabled reports whether any decay multiplier is active.
func (d *Decay) Enabled() bool {
	return d.Temporal || d.Usage
}

// Multiplier computes the combined decay multiplier for the item at the
// given instant, floored at 0.01.
//
//   - temporal: 0.5 ^ (age_days / half_life_days)
//   - usage: exp(-days_since_last_access / (2 * half_life_days))
func (d *Decay) Multiplier(item *memory.Item, now time.Time) float64 {
	mult := 1.0

	if d.Temporal {
		ageDays := now.Sub(item.CreatedAt).Seconds() / secondsPerDay
		mult *= math.Pow(0.5, ageDays/d.HalfLifeDays)
	}

	if d.Usage {
		sinceAccess := now.Sub(item.LastAccess).Seconds() / secondsPerDay
		mult *= math.Exp(-sinceAccess / (d.HalfLifeDays * 2))
	}

	if mult < decayFloor {
		mult = decayFloor
	}
	// Clock skew could make age negative; decay must never raise importance.
	if mult > 1.0 {
		mult = 1.0
	}
	return mult
}

// Apply multiplies the item's importance by the decay multiplier in place.
func (d *Decay) Apply(item *memory.Item, now time.Time) {
	item.Importance *= d.Multiplier(item, now)
}
