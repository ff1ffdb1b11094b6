package constraint

import (
	"testing"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRelaxTier3ProgressivelyLoosens(t *testing.T) {
	weights := config.DefaultTierWeights()
	r := NewRelaxer(weights)
	steps := r.RelaxTier3()
	a := assert.New(t)
	a.Len(steps, 2)
	a.Less(steps[0].TierWeights.Preference, weights.Preference)
	a.Less(steps[1].TierWeights.WorkloadEquity, weights.WorkloadEquity)
	a.Less(steps[1].TierWeights.CallEquity, weights.CallEquity)
}

func TestRelaxTier2NeverNamesTier1(t *testing.T) {
	r := NewRelaxer(config.DefaultTierWeights())
	ids := r.RelaxTier2()
	assert.NotEmpty(t, ids)
	tier1IDs := map[string]bool{
		"ACGME_80_HOUR": true, "ACGME_ONE_IN_SEVEN": true, "PGY1_SUPERVISION": true,
		"DUTY_PERIOD_LIMIT": true, "NF_CONSECUTIVE_NIGHTS": true, "CALL_FREQUENCY": true,
		"DEPLOYMENT_BLOCKING": true, "QUALIFICATION_MATCH": true,
	}
	for _, id := range ids {
		assert.False(t, tier1IDs[id], "relaxation must never name a Tier-1 rule: %s", id)
	}
}
