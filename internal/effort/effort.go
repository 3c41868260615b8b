// Package effort decides which model tier runs each step of a task.
package effort

import (
	"fmt"
	"sort"
	"strings"
)

// Tier is a model capability level. Tiers are ordered fast < medium < hard.
type Tier string

const (
	Fast   Tier = "fast"
	Medium Tier = "medium"
	Hard   Tier = "hard"
)

// Step markers that are resolved at run time instead of naming a tier.
const (
	Dynamic    = "dynamic"
	Escalation = "escalation"
)

// DefaultEscalationThreshold is the attempt count that forces the hardest tier.
const DefaultEscalationThreshold = 3

// Tiers lists every tier from lightest to heaviest.
var Tiers = []Tier{Fast, Medium, Hard}

// ExecutionStep is the main execution step, resolved dynamically.
const ExecutionStep = "step5"

// StepDefaults is the static per-step table.
var StepDefaults = map[string]string{
	"step0": string(Medium), // task intake
	"step1": string(Hard),   // decomposition
	"step2": string(Hard),   // dependency planning
	"step3": string(Medium), // research
	"step4": string(Hard),   // execution strategy
	"step5": Dynamic,        // main execution
	"step6": Escalation,     // review
	"step7": Escalation,     // bug sweep
	"step8": string(Fast),   // commit and cleanup
}

// EscalationSequence is the order escalation steps try tiers in.
var EscalationSequence = []Tier{Fast, Hard}

// Steps returns the known step names in order.
func Steps() []string {
	steps := make([]string, 0, len(StepDefaults))
	for s := range StepDefaults {
		steps = append(steps, s)
	}
	sort.Strings(steps)
	return steps
}

// Rank orders tiers; unknown tiers rank below fast.
func (t Tier) Rank() int {
	switch t {
	case Fast:
		return 1
	case Medium:
		return 2
	case Hard:
		return 3
	default:
		return 0
	}
}

// ParseTier parses a tier name case-insensitively.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !ValidTier(string(t)) {
		return "", fmt.Errorf("invalid tier %q: must be one of fast, medium, hard", s)
	}
	return t, nil
}

// ValidTier reports whether s is exactly a tier name.
func ValidTier(s string) bool {
	for _, t := range Tiers {
		if string(t) == s {
			return true
		}
	}
	return false
}

// ValidStepValue reports whether value may be configured for step: any tier,
// plus the marker the step carries in the static table.
func ValidStepValue(step, value string) bool {
	if ValidTier(value) {
		return true
	}
	def, ok := StepDefaults[step]
	return ok && (def == Dynamic || def == Escalation) && value == def
}

// IsEscalationStep reports whether step escalates through EscalationSequence.
// Overrides are ignored.
func IsEscalationStep(step string) bool {
	return StepDefaults[step] == Escalation
}

// DefaultModel returns the static table entry for step. Overrides are ignored.
func DefaultModel(step string) string {
	return StepDefaults[step]
}
