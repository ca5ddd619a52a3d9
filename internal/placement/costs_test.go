package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFranchiseCost(t *testing.T) {
	s := DefaultCostSchedule()

	tests := []struct {
		name       string
		population int
		known      bool
		want       int
	}{
		{"small town", 50_000, true, 200},
		{"quarter million", 250_000, true, 1000},
		{"big city capped", 2_000_000, true, 1000},
		{"rounds to nearest", 62_500, true, 250},
		{"unknown population charges cap", 0, false, 1000},
		{"zero population", 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.FranchiseCost(tt.population, tt.known))
		})
	}
}

func TestDistributionCenterCost(t *testing.T) {
	s := DefaultCostSchedule()

	assert.Equal(t, 0, s.DistributionCenterCost(0), "first center is free")
	assert.Equal(t, 1000, s.DistributionCenterCost(1))
	assert.Equal(t, 2500, s.DistributionCenterCost(2))
	assert.Equal(t, 5000, s.DistributionCenterCost(3))
	assert.Equal(t, 10000, s.DistributionCenterCost(4))
	assert.Equal(t, 10000, s.DistributionCenterCost(9), "last entry repeats")
}

func TestDistributionCenterCostEmptySchedule(t *testing.T) {
	assert.Equal(t, 0, CostSchedule{}.DistributionCenterCost(3))
}
