package riskpredictor

import "testing"

func TestPredictHealthyBankScoresLow(t *testing.T) {
	r := Predict(Features{
		BorrowerCapitalRatio: 0.6,
		BorrowerLeverage:     1.5,
		BorrowerLiquidity:    0.5,
		BorrowerEquity:       100,
		BorrowerPastDefaults: 0,
		BorrowerRiskAppetite: 0.7,
		MarketVolatility:     0.2,
		LenderStrength:       0.8,
		Centrality:           0.1,
		UpstreamBurden:       0.1,
	})
	if r.DefaultProbability > 0.3 {
		t.Fatalf("DefaultProbability=%v for healthy bank, want low", r.DefaultProbability)
	}
	if r.RiskLevel != RiskVeryLow && r.RiskLevel != RiskLow {
		t.Fatalf("RiskLevel=%v for healthy bank, want VERY_LOW or LOW", r.RiskLevel)
	}
}

func TestPredictDistressedBankScoresHigh(t *testing.T) {
	r := Predict(Features{
		BorrowerCapitalRatio: 0.02,
		BorrowerLeverage:     9,
		BorrowerLiquidity:    0.05,
		BorrowerEquity:       1,
		BorrowerPastDefaults: 3,
		BorrowerRiskAppetite: 0.1,
		MarketVolatility:     0.8,
		LenderStrength:       0.3,
		Centrality:           0.9,
		UpstreamBurden:       0.9,
	})
	if r.DefaultProbability < 0.5 {
		t.Fatalf("DefaultProbability=%v for distressed bank, want high", r.DefaultProbability)
	}
	if r.RiskLevel != RiskHigh && r.RiskLevel != RiskVeryHigh {
		t.Fatalf("RiskLevel=%v for distressed bank, want HIGH or VERY_HIGH", r.RiskLevel)
	}
	if r.Recommendation != RecommendReject && r.Recommendation != RecommendReduceExposure {
		t.Fatalf("Recommendation=%v, want REJECT or REDUCE_EXPOSURE", r.Recommendation)
	}
}

func TestDefaultProbabilityStaysWithinBounds(t *testing.T) {
	extremes := []Features{
		{BorrowerCapitalRatio: -5, BorrowerLeverage: 100, MarketVolatility: 5, Centrality: 5},
		{BorrowerCapitalRatio: 5, BorrowerRiskAppetite: 5, LenderStrength: 5},
	}
	for _, f := range extremes {
		r := Predict(f)
		if r.DefaultProbability < 0.02 || r.DefaultProbability > 0.95 {
			t.Fatalf("DefaultProbability=%v out of [0.02, 0.95]", r.DefaultProbability)
		}
	}
}
