package nowcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscope/earnscope/internal/domain"
)

func healthyInputs() GuardInputs {
	return GuardInputs{
		Smoothed:  0.8,
		ATMVolume: domain.Int64(500),
		SpreadPct: domain.Float(3.0),
		IVBumpPct: domain.Float(0.40),
	}
}

func callScore() *domain.DirectionalScore {
	return &domain.DirectionalScore{
		Symbol:     "AAPL",
		Score:      0.8,
		Decision:   domain.DecisionCall,
		Direction:  domain.DecisionCall,
		Structure:  domain.StructureNaked,
		Conviction: domain.ConvictionHigh,
		SizeFactor: 1.0,
	}
}

func TestApplyGuards_CleanPass(t *testing.T) {
	score := callScore()
	results := ApplyGuards(score, healthyInputs(), DefaultGuardConfig())

	for _, r := range results {
		assert.False(t, r.Fired, r.Name)
	}
	assert.Equal(t, domain.DecisionCall, score.Decision)
	assert.Equal(t, 1.0, score.SizeFactor)
	assert.Empty(t, score.Notes)
}

func TestWhipsawGuard_HalvesSize(t *testing.T) {
	score := callScore()
	in := healthyInputs()
	in.PrevSmoothed = domain.Float(0.2)
	in.Smoothed = 0.8 // swing of 0.6 > 0.4

	results := ApplyGuards(score, in, DefaultGuardConfig())
	require.True(t, results[0].Fired)
	assert.Equal(t, 0.5, score.SizeFactor)
	// Decision itself stands; only sizing shrinks.
	assert.Equal(t, domain.DecisionCall, score.Decision)
	assert.Contains(t, score.Notes, "whipsaw")
}

func TestWhipsawGuard_NoPriorNoFire(t *testing.T) {
	score := callScore()
	in := healthyInputs()
	in.PrevSmoothed = nil

	results := ApplyGuards(score, in, DefaultGuardConfig())
	assert.False(t, results[0].Fired)
	assert.Equal(t, 1.0, score.SizeFactor)
}

func TestLiquidityGuard_ForcesPass(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*GuardInputs)
	}{
		{"thin volume", func(in *GuardInputs) { in.ATMVolume = domain.Int64(5) }},
		{"missing volume", func(in *GuardInputs) { in.ATMVolume = nil }},
		{"wide spread", func(in *GuardInputs) { in.SpreadPct = domain.Float(12.0) }},
		{"missing spread", func(in *GuardInputs) { in.SpreadPct = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score := callScore()
			in := healthyInputs()
			tc.mutate(&in)

			results := ApplyGuards(score, in, DefaultGuardConfig())
			require.True(t, results[1].Fired)
			assert.Equal(t, domain.DecisionPass, score.Decision)
			assert.Equal(t, domain.StructureSkip, score.Structure)
			assert.Equal(t, 0.0, score.SizeFactor)
		})
	}
}

func TestCostGuard_CapsStructure(t *testing.T) {
	score := callScore()
	in := healthyInputs()
	in.IVBumpPct = domain.Float(0.85)

	results := ApplyGuards(score, in, DefaultGuardConfig())
	require.True(t, results[2].Fired)
	assert.Equal(t, domain.StructureVertical, score.Structure)
	// Decision and size are untouched by the cost guard.
	assert.Equal(t, domain.DecisionCall, score.Decision)
	assert.Equal(t, 1.0, score.SizeFactor)
}

func TestCostGuard_NoFireOnVertical(t *testing.T) {
	score := callScore()
	score.Structure = domain.StructureVertical
	in := healthyInputs()
	in.IVBumpPct = domain.Float(0.90)

	results := ApplyGuards(score, in, DefaultGuardConfig())
	assert.False(t, results[2].Fired)
}
