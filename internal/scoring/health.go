package scoring

import (
	"math"
	"time"

	"github.com/fedlens/intel-pipeline/internal/models"
)

// Weights of the composite score
const (
	weightVelocity        = 0.35
	weightGrantSuccess    = 0.20
	weightDensity         = 0.25
	weightDiversification = 0.20
)

// Metrics holds the inputs the pure calculator needs about an entity
type Metrics struct {
	ContractCount      int
	GrantCount         int
	TotalContractValue float64
	TotalGrantValue    float64
	NaicsCodeCount     int
	BusinessTypeCount  int

	RelationshipCount      int
	RecentTransactionCount int
}

// Compute turns aggregate entity statistics into a composite health score.
// Pure: identical inputs always yield identical output.
func Compute(m Metrics) models.HealthScore {
	velocity := clamp(5*m.ContractCount + contractValueBonus(m.TotalContractValue) + 10*m.RecentTransactionCount)
	grantSuccess := clamp(8*m.GrantCount + grantValueBonus(m.TotalGrantValue))
	density := clamp(10 * m.RelationshipCount)
	diversification := clamp(15*m.NaicsCodeCount + 10*m.BusinessTypeCount)

	overall := int(math.Round(
		weightVelocity*float64(velocity) +
			weightGrantSuccess*float64(grantSuccess) +
			weightDensity*float64(density) +
			weightDiversification*float64(diversification),
	))

	return models.HealthScore{
		OverallScore:          overall,
		ContractVelocity:      velocity,
		GrantSuccess:          grantSuccess,
		RelationshipDensity:   density,
		MarketDiversification: diversification,
		TrendDirection:        trend(m.RecentTransactionCount, m.ContractCount),
		CalculatedAt:          time.Now(),
	}
}

// MetricsFromEntity builds calculator inputs from an entity record plus the
// two externally fetched counts
func MetricsFromEntity(entity *models.Entity, relationshipCount, recentTransactionCount int) Metrics {
	return Metrics{
		ContractCount:          entity.ContractCount,
		GrantCount:             entity.GrantCount,
		TotalContractValue:     entity.TotalContractValue,
		TotalGrantValue:        entity.TotalGrantValue,
		NaicsCodeCount:         len(entity.NaicsCodes),
		BusinessTypeCount:      len(entity.BusinessTypes),
		RelationshipCount:      relationshipCount,
		RecentTransactionCount: recentTransactionCount,
	}
}

// contractValueBonus is a step function of total contract value
func contractValueBonus(totalValue float64) int {
	switch {
	case totalValue > 100_000_000:
		return 30
	case totalValue > 10_000_000:
		return 20
	case totalValue > 1_000_000:
		return 10
	default:
		return 0
	}
}

// grantValueBonus uses lower thresholds than contracts
func grantValueBonus(totalValue float64) int {
	switch {
	case totalValue > 10_000_000:
		return 30
	case totalValue > 1_000_000:
		return 20
	case totalValue > 100_000:
		return 10
	default:
		return 0
	}
}

// trend labels the entity's direction from its recent activity. An entity
// with real history but zero recent transactions is trending down.
func trend(recentTransactionCount, contractCount int) string {
	switch {
	case recentTransactionCount >= 3:
		return models.TrendUp
	case recentTransactionCount == 0 && contractCount > 5:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

func clamp(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
