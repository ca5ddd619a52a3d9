package placement

import "math"

// CostSchedule holds the pricing rules for placements.
type CostSchedule struct {
	// FranchiseCap is the maximum franchise price in dollars.
	FranchiseCap int `yaml:"franchise_cap"`
	// FranchisePopulationBasis is the population that buys one cap's worth:
	// cost = population / basis * cap, capped.
	FranchisePopulationBasis int `yaml:"franchise_population_basis"`
	// DistributionCenterCosts is indexed by the ordinal count of the
	// player's existing centers; the first entry is expected to be 0 (first
	// center free) and the last entry repeats for all later centers.
	DistributionCenterCosts []int `yaml:"distribution_center_costs"`
}

// DefaultCostSchedule matches the shipped game rules.
func DefaultCostSchedule() CostSchedule {
	return CostSchedule{
		FranchiseCap:             1000,
		FranchisePopulationBasis: 250000,
		DistributionCenterCosts:  []int{0, 1000, 2500, 5000, 10000},
	}
}

// FranchiseCost prices a franchise from destination population: linear in
// population, capped. Unknown population (geocoding unavailable) charges the
// cap so placement never blocks on the collaborator.
func (s CostSchedule) FranchiseCost(population int, populationKnown bool) int {
	if !populationKnown || population < 0 {
		return s.FranchiseCap
	}
	cost := int(math.Round(float64(population) / float64(s.FranchisePopulationBasis) * float64(s.FranchiseCap)))
	if cost > s.FranchiseCap {
		return s.FranchiseCap
	}
	return cost
}

// DistributionCenterCost prices the player's next center from how many they
// already own. The schedule's last entry applies to every later center.
func (s CostSchedule) DistributionCenterCost(ownedCenters int) int {
	if len(s.DistributionCenterCosts) == 0 {
		return 0
	}
	if ownedCenters >= len(s.DistributionCenterCosts) {
		return s.DistributionCenterCosts[len(s.DistributionCenterCosts)-1]
	}
	if ownedCenters < 0 {
		ownedCenters = 0
	}
	return s.DistributionCenterCosts[ownedCenters]
}
