package scoring

import (
	"testing"

	"github.com/fedlens/intel-pipeline/internal/models"
)

func TestComputeZeroEntity(t *testing.T) {
	score := Compute(Metrics{})

	if score.OverallScore != 0 {
		t.Errorf("OverallScore = %d, want 0", score.OverallScore)
	}
	if score.TrendDirection != models.TrendStable {
		t.Errorf("TrendDirection = %q, want %q", score.TrendDirection, models.TrendStable)
	}
}

func TestComputeSubScores(t *testing.T) {
	tests := []struct {
		name        string
		metrics     Metrics
		wantScore   int
		wantOverall int
		check       func(models.HealthScore) int
	}{
		{
			name:      "velocity from contracts and value bonus",
			metrics:   Metrics{ContractCount: 4, TotalContractValue: 2_000_000},
			wantScore: 30, // 5*4 + 10
			check:     func(s models.HealthScore) int { return s.ContractVelocity },
		},
		{
			name:      "velocity includes recent activity",
			metrics:   Metrics{ContractCount: 2, RecentTransactionCount: 3},
			wantScore: 40, // 5*2 + 10*3
			check:     func(s models.HealthScore) int { return s.ContractVelocity },
		},
		{
			name:      "velocity clamps at 100",
			metrics:   Metrics{ContractCount: 50, TotalContractValue: 200_000_000},
			wantScore: 100,
			check:     func(s models.HealthScore) int { return s.ContractVelocity },
		},
		{
			name:      "grant success from count and value",
			metrics:   Metrics{GrantCount: 3, TotalGrantValue: 5_000_000},
			wantScore: 44, // 8*3 + 20
			check:     func(s models.HealthScore) int { return s.GrantSuccess },
		},
		{
			name:      "density from relationships",
			metrics:   Metrics{RelationshipCount: 7},
			wantScore: 70,
			check:     func(s models.HealthScore) int { return s.RelationshipDensity },
		},
		{
			name:      "diversification from codes and types",
			metrics:   Metrics{NaicsCodeCount: 3, BusinessTypeCount: 2},
			wantScore: 65, // 15*3 + 10*2
			check:     func(s models.HealthScore) int { return s.MarketDiversification },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Compute(tt.metrics)
			if got := tt.check(score); got != tt.wantScore {
				t.Errorf("sub-score = %d, want %d", got, tt.wantScore)
			}
		})
	}
}

func TestComputeOverallWeighting(t *testing.T) {
	// All sub-scores land exactly at 100; weights sum to 1
	metrics := Metrics{
		ContractCount:          20,
		GrantCount:             13, // 104, clamped to 100
		TotalGrantValue:        20_000_000,
		RelationshipCount:      10,
		NaicsCodeCount:         6,
		BusinessTypeCount:      1,
		RecentTransactionCount: 0,
	}

	score := Compute(metrics)
	if score.OverallScore != 100 {
		t.Errorf("OverallScore = %d, want 100", score.OverallScore)
	}
}

func TestComputeIsPure(t *testing.T) {
	metrics := Metrics{
		ContractCount:          8,
		GrantCount:             2,
		TotalContractValue:     15_000_000,
		TotalGrantValue:        500_000,
		NaicsCodeCount:         2,
		BusinessTypeCount:      3,
		RelationshipCount:      4,
		RecentTransactionCount: 1,
	}

	first := Compute(metrics)
	for i := 0; i < 5; i++ {
		again := Compute(metrics)
		if again.OverallScore != first.OverallScore ||
			again.ContractVelocity != first.ContractVelocity ||
			again.GrantSuccess != first.GrantSuccess ||
			again.RelationshipDensity != first.RelationshipDensity ||
			again.MarketDiversification != first.MarketDiversification ||
			again.TrendDirection != first.TrendDirection {
			t.Fatalf("Compute is not deterministic: %+v vs %+v", again, first)
		}
	}
}

func TestTrendDirection(t *testing.T) {
	tests := []struct {
		name    string
		metrics Metrics
		want    string
	}{
		{"active entity trends up", Metrics{ContractCount: 10, RecentTransactionCount: 3}, models.TrendUp},
		{"history without recent activity trends down", Metrics{ContractCount: 6}, models.TrendDown},
		{"small entity stays stable", Metrics{ContractCount: 2}, models.TrendStable},
		{"moderate recent activity stays stable", Metrics{ContractCount: 10, RecentTransactionCount: 1}, models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.metrics).TrendDirection; got != tt.want {
				t.Errorf("TrendDirection = %q, want %q", got, tt.want)
			}
		})
	}
}
