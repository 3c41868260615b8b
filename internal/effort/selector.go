package effort

import (
	"github.com/samuelfaj/claudiomiro-sub004/internal/blueprint"
	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// Overrides are user-supplied tier choices. Empty values mean no override.
type Overrides struct {
	Global string            // Applies to every step
	Steps  map[string]string // Keyed by step name
}

// Inputs are the signals available when resolving a step.
type Inputs struct {
	Attempts  int
	Record    *models.ExecutionRecord // May be nil
	Blueprint string                  // Raw TASK.md text
}

// Decision is a resolved tier and the rule that produced it.
type Decision struct {
	Tier   Tier
	Source string // escalation, global, step, difficulty, heuristic, table, floor
}

// Selector resolves tiers for steps.
type Selector struct {
	Overrides           Overrides
	EscalationThreshold int
}

// NewSelector creates a Selector. A threshold below 1 uses the default.
func NewSelector(overrides Overrides, threshold int) *Selector {
	if threshold < 1 {
		threshold = DefaultEscalationThreshold
	}
	return &Selector{Overrides: overrides, EscalationThreshold: threshold}
}

// Resolve returns the tier for step.
func (s *Selector) Resolve(step string, in Inputs) Tier {
	return s.Decide(step, in).Tier
}

// Decide resolves the tier for step and reports which rule decided it.
//
// For the dynamic step the precedence is: attempts at or past the threshold
// force Hard, then the global override, the per-step override, the
// TASK.md @difficulty tag, the heuristic score, and finally Fast.
// Other steps use the global override, the per-step override and then the
// static table; escalation steps move from Fast to Hard once a retry happens.
func (s *Selector) Decide(step string, in Inputs) Decision {
	def := StepDefaults[step]
	if def == Dynamic {
		return s.decideDynamic(step, in)
	}

	if t, ok := s.override(step); ok {
		return t
	}

	switch {
	case def == Escalation:
		return Decision{Tier: s.escalate(in.Attempts), Source: "escalation"}
	case ValidTier(def):
		return Decision{Tier: Tier(def), Source: "table"}
	default:
		return Decision{Tier: Fast, Source: "floor"}
	}
}

func (s *Selector) decideDynamic(step string, in Inputs) Decision {
	if in.Attempts >= s.threshold() {
		return Decision{Tier: Hard, Source: "escalation"}
	}
	if t, ok := s.override(step); ok {
		return t
	}
	if tag, ok := blueprint.ParseDifficulty(in.Blueprint); ok {
		return Decision{Tier: Tier(tag), Source: "difficulty"}
	}
	if in.Record != nil || in.Blueprint != "" || in.Attempts > 0 {
		return Decision{Tier: Bucket(Score(in)), Source: "heuristic"}
	}
	return Decision{Tier: Fast, Source: "floor"}
}

// override applies the global then the per-step override. A "dynamic" or
// "escalation" marker in an override defers to the normal rules.
func (s *Selector) override(step string) (Decision, bool) {
	if ValidTier(s.Overrides.Global) {
		return Decision{Tier: Tier(s.Overrides.Global), Source: "global"}, true
	}
	if v := s.Overrides.Steps[step]; ValidTier(v) {
		return Decision{Tier: Tier(v), Source: "step"}, true
	}
	return Decision{}, false
}

func (s *Selector) escalate(attempts int) Tier {
	if attempts > 0 {
		return EscalationSequence[len(EscalationSequence)-1]
	}
	return EscalationSequence[0]
}

func (s *Selector) threshold() int {
	if s.EscalationThreshold < 1 {
		return DefaultEscalationThreshold
	}
	return s.EscalationThreshold
}

// Score is the complexity heuristic for the dynamic step.
func Score(in Inputs) int {
	score := 0
	if rec := in.Record; rec != nil {
		switch n := len(rec.Phases); {
		case n > 5:
			score += 2
		case n > 3:
			score++
		}
		switch n := len(rec.Artifacts); {
		case n > 10:
			score += 2
		case n > 5:
			score++
		}
		if rec.HasUnresolvedUncertainties() {
			score++
			for _, u := range rec.Uncertainties {
				if u.Confidence == models.ConfidenceLow && (u.Resolution == nil || *u.Resolution == "") {
					score++
					break
				}
			}
		}
	}
	if in.Attempts >= 1 {
		score++
	}
	switch n := len(in.Blueprint); {
	case n > 4000:
		score += 2
	case n > 1500:
		score++
	}
	return score
}

// Bucket maps a heuristic score to a tier.
func Bucket(score int) Tier {
	switch {
	case score <= 1:
		return Fast
	case score <= 3:
		return Medium
	default:
		return Hard
	}
}
