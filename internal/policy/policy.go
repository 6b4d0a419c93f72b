// Package policy implements the PolicyEngine: given an
// observation, an optional strategic priority, the network-wide default
// rate, and a branch selector, it returns a discrete action and a
// human-readable reason. Two branches share a profit-taking prologue and a
// HOARD_CASH epilogue.
package policy

import (
	"banksim/internal/bank"
	"banksim/internal/rng"
)

// Decision is the policy engine's output: the chosen action plus why.
type Decision struct {
	Action bank.Action
	Reason string
}

// Source is the randomness the policy engine needs: a Bernoulli sampler
// and a uniform [0,1) draw. Satisfied by *rng.Source.
type Source interface {
	Bernoulli(p float64) bool
	Float64() float64
}

var _ Source = (*rng.Source)(nil)

// Decide runs the profit-taking prologue, then the selected branch, falling
// back to HOARD_CASH if nothing fires.
func Decide(obs bank.Observation, priority bank.Priority, networkDefaultRate float64, useGameTheory bool, src Source) Decision {
	if d, ok := profitTakingUrge(obs, priority, useGameTheory, src); ok {
		return d
	}
	if useGameTheory {
		return gameTheoreticBranch(obs, priority, networkDefaultRate, src)
	}
	return heuristicBranch(obs, priority, src)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// profitTakingUrge applies in both branches: a bank with meaningful market
// exposure and an attractive best return may divest opportunistically
// before the rest of the policy runs.
func profitTakingUrge(obs bank.Observation, priority bank.Priority, useGameTheory bool, src Source) (Decision, bool) {
	theta := 0.03
	a, b := 0.1, 1.2
	if useGameTheory {
		theta = 0.05
	}
	if obs.TotalInvested <= 5 || obs.BestMarketReturn <= theta {
		return Decision{}, false
	}

	p := a + b*obs.BestMarketReturn
	if obs.RiskAppetite < 0.4 {
		p += 0.15 // conservative
	} else if obs.RiskAppetite > 0.6 {
		p -= 0.15 // aggressive
	}
	if obs.LocalStress > 0.2 {
		p += 0.25
	}
	if obs.LiquidityRatio < 0.2 {
		p += 0.2
	}
	switch priority {
	case bank.PriorityProfit:
		p += 0.15
	case bank.PriorityLiquidity:
		p += 0.1
	}
	p = clamp(p, 0.1, 0.9)

	if src.Bernoulli(p) {
		return Decision{Action: bank.ActionDivestMarket, Reason: "Profit-taking urge"}, true
	}
	return Decision{}, false
}

// payoff holds the four cells of the 2x2 {LEND,HOARD}x{LEND,HOARD} matrix.
type payoff struct {
	lendLend, lendHoard, hoardLend, hoardHoard float64
}

func buildPayoff(obs bank.Observation, distressed bool) payoff {
	lendingReturn := 0.05
	hoardingCost := 0.01
	defaultRisk := 0.02 + 0.10*obs.LocalStress

	if distressed {
		defaultRisk *= 2.5
		lendingReturn *= 0.7
		hoardingCost *= 0.5
	}

	coordinationBonus := 0.01

	pf := payoff{
		lendLend:  lendingReturn + coordinationBonus - defaultRisk,
		lendHoard: 0.7*lendingReturn - 1.3*defaultRisk,
		hoardLend: -0.5 * hoardingCost,
		hoardHoard: -1.5 * hoardingCost,
	}

	if obs.LiquidityRatio < 0.2 {
		pf.lendLend *= 0.5
		pf.lendHoard *= 0.3
		pf.hoardLend *= 1.2
		pf.hoardHoard *= 1.1
	}
	if obs.Leverage > 3 {
		pf.lendLend *= 0.6
		pf.lendHoard *= 0.4
	}

	equityScale := obs.Investments + obs.LoansGiven + obs.Borrowed
	if equityScale <= 0 {
		equityScale = 1
	}
	pf.lendLend *= equityScale
	pf.lendHoard *= equityScale
	pf.hoardLend *= equityScale
	pf.hoardHoard *= equityScale

	return pf
}

func gameTheoreticBranch(obs bank.Observation, priority bank.Priority, networkDefaultRate float64, src Source) Decision {
	distressScore := 0.5*obs.LocalStress + 0.3*networkDefaultRate + 0.2*(1-obs.LiquidityRatio)
	distressed := distressScore > 0.4

	pf := buildPayoff(obs, distressed)

	opponentLend := 0.7
	if distressed {
		opponentLend = 0.3
	}
	opponentLend = clamp(opponentLend*(1-0.5*obs.LocalStress), 0.1, 0.9)

	expectedLend := opponentLend*pf.lendLend + (1-opponentLend)*pf.lendHoard
	expectedHoard := opponentLend*pf.hoardLend + (1-opponentLend)*pf.hoardHoard

	if expectedLend >= expectedHoard {
		return lendResponse(obs, priority, src)
	}
	return hoardResponse(obs, src)
}

func lendResponse(obs bank.Observation, priority bank.Priority, src Source) Decision {
	const minCash = 5.0
	if !hasCash(obs, minCash) {
		return Decision{Action: bank.ActionHoardCash, Reason: "Insufficient cash for LEND response"}
	}
	if !obs.HasMarkets {
		return Decision{Action: bank.ActionIncreaseLending, Reason: "Game-theoretic LEND response, no markets"}
	}

	p := 0.20 + 0.65*obs.RiskAppetite
	switch priority {
	case bank.PriorityProfit:
		p *= 1.3
	case bank.PriorityLiquidity:
		p *= 0.5
	case bank.PriorityStability:
		p *= 0.3
	}
	if obs.LiquidityRatio > 0.6 {
		p *= 1.4
	}
	if obs.LocalStress > 0.3 {
		p *= 0.4
	}
	if obs.MarketExposure > 0.5 {
		p *= 0.5
	}
	p = clamp(p, 0, 0.95)

	if src.Bernoulli(p) {
		return Decision{Action: bank.ActionInvestMarket, Reason: "Game-theoretic LEND response via markets"}
	}
	return Decision{Action: bank.ActionIncreaseLending, Reason: "Game-theoretic LEND response"}
}

func hoardResponse(obs bank.Observation, src Source) Decision {
	if obs.TotalInvested > 0 && src.Bernoulli(0.5) {
		return Decision{Action: bank.ActionDivestMarket, Reason: "Game-theoretic HOARD response, unwinding positions"}
	}
	if obs.LoansGiven > 0 {
		return Decision{Action: bank.ActionDecreaseLending, Reason: "Game-theoretic HOARD response, recalling loans"}
	}
	return Decision{Action: bank.ActionHoardCash, Reason: "Game-theoretic HOARD response"}
}

func hasCash(obs bank.Observation, min float64) bool {
	return obs.Cash > min
}

func heuristicBranch(obs bank.Observation, priority bank.Priority, src Source) Decision {
	// Emergency: thin absolute cash or equity cushion forces retrenchment.
	if obs.Cash < 10 || obs.Equity < 5 {
		if obs.TotalInvested > 0 {
			return Decision{Action: bank.ActionDivestMarket, Reason: "Emergency divestment"}
		}
		if obs.LoansGiven > 0 {
			return Decision{Action: bank.ActionDecreaseLending, Reason: "Emergency loan recall"}
		}
	}

	// Severe stress: combined local stress and thin liquidity.
	if obs.LocalStress > 0.5 && obs.LiquidityRatio < 0.2 {
		if obs.TotalInvested > 0 {
			return Decision{Action: bank.ActionDivestMarket, Reason: "Severe stress divestment"}
		}
		return Decision{Action: bank.ActionDecreaseLending, Reason: "Severe stress loan recall"}
	}

	// Productive deployment.
	if obs.HasMarkets && obs.MarketExposure < 0.55 && hasCash(obs, 15) {
		p := clamp(0.25+0.55*obs.RiskAppetite, 0.05, 0.95)
		p *= priorityModifier(priority)
		if distressed(obs) {
			p *= 0.5
		}
		p = clamp(p, 0, 1)
		if src.Bernoulli(p) {
			return Decision{Action: bank.ActionInvestMarket, Reason: "Heuristic productive deployment"}
		}
		return Decision{Action: bank.ActionIncreaseLending, Reason: "Heuristic lending deployment"}
	}

	return Decision{Action: bank.ActionHoardCash, Reason: "Heuristic fallback"}
}

func distressed(obs bank.Observation) bool {
	return obs.LocalStress > 0.2
}

func priorityModifier(priority bank.Priority) float64 {
	switch priority {
	case bank.PriorityProfit:
		return 1.0
	case bank.PriorityLiquidity:
		return 0.5
	case bank.PriorityStability:
		return 0.28
	default:
		return 1.0
	}
}
