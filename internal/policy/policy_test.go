package policy

import (
	"testing"

	"banksim/internal/bank"
)

// alwaysTrue/alwaysFalse let tests pin the Bernoulli outcome deterministically
// without depending on *rng.Source's actual sequence.
type alwaysTrue struct{}

func (alwaysTrue) Bernoulli(float64) bool { return true }
func (alwaysTrue) Float64() float64       { return 0.99 }

type alwaysFalse struct{}

func (alwaysFalse) Bernoulli(float64) bool { return false }
func (alwaysFalse) Float64() float64       { return 0.01 }

func TestProfitTakingUrgeFiresOnHighReturn(t *testing.T) {
	obs := bank.Observation{TotalInvested: 10, BestMarketReturn: 0.2, RiskAppetite: 0.5, LiquidityRatio: 0.5}
	d := Decide(obs, bank.PriorityProfit, 0.1, true, alwaysTrue{})
	if d.Action != bank.ActionDivestMarket {
		t.Fatalf("Decide()=%v, want DIVEST_MARKET from profit-taking urge", d.Action)
	}
}

func TestProfitTakingUrgeSkippedBelowThreshold(t *testing.T) {
	obs := bank.Observation{Cash: 100, Equity: 100, TotalInvested: 10, BestMarketReturn: 0.01, RiskAppetite: 0.5, LiquidityRatio: 0.5, HasMarkets: true}
	d := Decide(obs, bank.PriorityProfit, 0.1, false, alwaysFalse{})
	if d.Action == bank.ActionDivestMarket {
		t.Fatalf("Decide()=%v, profit-taking urge should not fire below threshold", d.Action)
	}
}

func TestHeuristicEmergencyDivestsWhenHoldingPositions(t *testing.T) {
	obs := bank.Observation{Cash: 5, Equity: 50, LiquidityRatio: 0.5, CapitalRatio: 0.2, TotalInvested: 20}
	d := Decide(obs, bank.PriorityStability, 0.1, false, alwaysFalse{})
	if d.Action != bank.ActionDivestMarket {
		t.Fatalf("Decide()=%v, want DIVEST_MARKET under emergency cash floor", d.Action)
	}
}

func TestHeuristicFallsBackToHoardCash(t *testing.T) {
	obs := bank.Observation{Cash: 100, Equity: 50, LiquidityRatio: 0.8, CapitalRatio: 0.5, HasMarkets: false, LoansGiven: 0}
	d := Decide(obs, bank.PriorityStability, 0.0, false, alwaysFalse{})
	if d.Action != bank.ActionHoardCash {
		t.Fatalf("Decide()=%v, want HOARD_CASH epilogue", d.Action)
	}
}

func TestGameTheoreticDistressedFavorsHoardSide(t *testing.T) {
	obs := bank.Observation{
		LocalStress: 0.9, LiquidityRatio: 0.05, Leverage: 5,
		TotalInvested: 0, LoansGiven: 0,
	}
	d := Decide(obs, bank.PriorityStability, 0.9, true, alwaysFalse{})
	if d.Action != bank.ActionHoardCash && d.Action != bank.ActionDecreaseLending && d.Action != bank.ActionDivestMarket {
		t.Fatalf("Decide()=%v, want a retrenchment action under extreme distress", d.Action)
	}
}
