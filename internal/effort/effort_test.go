package effort

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

func TestStaticTable(t *testing.T) {
	assert.Equal(t, Dynamic, DefaultModel("step5"))
	assert.Equal(t, "fast", DefaultModel("step8"))
	assert.Equal(t, "hard", DefaultModel("step1"))
	assert.Empty(t, DefaultModel("step42"))

	assert.True(t, IsEscalationStep("step6"))
	assert.True(t, IsEscalationStep("step7"))
	assert.False(t, IsEscalationStep("step5"))
	assert.False(t, IsEscalationStep("step42"))

	assert.Len(t, Steps(), 9)
	assert.Equal(t, "step0", Steps()[0])
}

func TestStaticTableIgnoresOverrides(t *testing.T) {
	s := NewSelector(Overrides{Global: "fast", Steps: map[string]string{"step1": "fast"}}, 3)
	assert.Equal(t, Fast, s.Resolve("step1", Inputs{}))
	assert.Equal(t, "hard", DefaultModel("step1"))
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" HARD ")
	require.NoError(t, err)
	assert.Equal(t, Hard, tier)

	_, err = ParseTier("opus")
	assert.Error(t, err)

	assert.True(t, Hard.Rank() > Medium.Rank())
	assert.True(t, Medium.Rank() > Fast.Rank())
	assert.Zero(t, Tier("x").Rank())
}

func TestValidStepValue(t *testing.T) {
	assert.True(t, ValidStepValue("step1", "medium"))
	assert.True(t, ValidStepValue("step5", "dynamic"))
	assert.True(t, ValidStepValue("step6", "escalation"))
	assert.False(t, ValidStepValue("step1", "dynamic"))
	assert.False(t, ValidStepValue("step5", "escalation"))
	assert.False(t, ValidStepValue("step5", "opus"))
}

func TestResolve_DynamicPrecedence(t *testing.T) {
	bigRecord := &models.ExecutionRecord{Phases: make([]models.Phase, 6), Artifacts: make([]models.Artifact, 11)}

	tests := []struct {
		name      string
		overrides Overrides
		in        Inputs
		want      Tier
		source    string
	}{
		{
			name: "floor with no signals",
			want: Fast, source: "floor",
		},
		{
			name:      "global override",
			overrides: Overrides{Global: "medium", Steps: map[string]string{"step5": "fast"}},
			in:        Inputs{Blueprint: "@difficulty hard"},
			want:      Medium, source: "global",
		},
		{
			name:      "step override beats difficulty tag",
			overrides: Overrides{Steps: map[string]string{"step5": "fast"}},
			in:        Inputs{Blueprint: "@difficulty hard"},
			want:      Fast, source: "step",
		},
		{
			name:      "dynamic step override defers",
			overrides: Overrides{Steps: map[string]string{"step5": "dynamic"}},
			in:        Inputs{Blueprint: "@difficulty medium"},
			want:      Medium, source: "difficulty",
		},
		{
			name: "difficulty tag beats heuristic",
			in:   Inputs{Record: bigRecord, Blueprint: "@difficulty fast"},
			want: Fast, source: "difficulty",
		},
		{
			name: "heuristic",
			in:   Inputs{Record: bigRecord},
			want: Hard, source: "heuristic",
		},
		{
			name:      "escalation beats everything",
			overrides: Overrides{Global: "fast", Steps: map[string]string{"step5": "fast"}},
			in:        Inputs{Attempts: 3, Blueprint: "@difficulty fast"},
			want:      Hard, source: "escalation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(tt.overrides, 3)
			d := s.Decide(ExecutionStep, tt.in)
			assert.Equal(t, tt.want, d.Tier)
			assert.Equal(t, tt.source, d.Source)
		})
	}
}

func TestResolve_EscalationThresholdAlwaysHardest(t *testing.T) {
	overrides := []Overrides{
		{},
		{Global: "fast"},
		{Steps: map[string]string{"step5": "medium"}},
		{Global: "fast", Steps: map[string]string{"step5": "fast"}},
	}
	blueprints := []string{"", "@difficulty fast", "@difficulty medium"}

	for _, o := range overrides {
		for _, bp := range blueprints {
			for attempts := 3; attempts <= 6; attempts++ {
				s := NewSelector(o, 3)
				assert.Equal(t, Hard, s.Resolve(ExecutionStep, Inputs{Attempts: attempts, Blueprint: bp}))
			}
		}
	}
}

func TestResolve_StaticAndEscalationSteps(t *testing.T) {
	s := NewSelector(Overrides{}, 3)
	assert.Equal(t, Medium, s.Resolve("step0", Inputs{}))
	assert.Equal(t, Fast, s.Resolve("step8", Inputs{Attempts: 5}))
	assert.Equal(t, Fast, s.Resolve("step6", Inputs{}))
	assert.Equal(t, Hard, s.Resolve("step6", Inputs{Attempts: 1}))
	assert.Equal(t, Fast, s.Resolve("unknown", Inputs{}))

	s = NewSelector(Overrides{Steps: map[string]string{"step6": "medium"}}, 3)
	assert.Equal(t, Medium, s.Resolve("step6", Inputs{Attempts: 2}))
}

func TestNewSelector_DefaultThreshold(t *testing.T) {
	s := NewSelector(Overrides{}, 0)
	assert.Equal(t, DefaultEscalationThreshold, s.EscalationThreshold)
}

func TestScoreAndBucket(t *testing.T) {
	rec := &models.ExecutionRecord{
		Phases:        make([]models.Phase, 4),
		Artifacts:     make([]models.Artifact, 6),
		Uncertainties: []models.Uncertainty{{ID: "U1", Confidence: models.ConfidenceLow}},
	}

	tests := []struct {
		name string
		in   Inputs
		want int
	}{
		{"empty", Inputs{}, 0},
		{"attempt", Inputs{Attempts: 1}, 1},
		{"medium blueprint", Inputs{Blueprint: strings.Repeat("x", 1501)}, 1},
		{"long blueprint", Inputs{Blueprint: strings.Repeat("x", 4001)}, 2},
		{"record signals", Inputs{Record: rec}, 4},
		{"everything", Inputs{Record: rec, Attempts: 2, Blueprint: strings.Repeat("x", 4001)}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.in))
		})
	}

	assert.Equal(t, Fast, Bucket(0))
	assert.Equal(t, Fast, Bucket(1))
	assert.Equal(t, Medium, Bucket(2))
	assert.Equal(t, Medium, Bucket(3))
	assert.Equal(t, Hard, Bucket(4))
}
