package kernel

import "banksim/internal/events"

const (
	shockPriceHaircutPct   = 0.20
	shockLiquidityDrainPct = 0.15
	shockRiskAppetiteSpike = 0.10
)

// Shock applies a manual system-wide crisis: a price haircut across every
// market, a liquidity drain on every solvent bank's cash, and a
// risk-appetite spike reflecting system-wide fear. It is a sibling of
// trigger_default that does not target a single bank (see
// StatefulSimulation.trigger_financial_crisis in the originating system).
func (k *Kernel) Shock(step int) events.Event {
	for _, id := range k.Markets.IDs() {
		k.Markets.Get(id).Haircut(shockPriceHaircutPct)
	}

	solvent := k.solventBanks()
	for _, b := range solvent {
		drain := b.Balance.Cash * shockLiquidityDrainPct
		b.Balance.Cash -= drain
		b.RiskAppetite = clamp(b.RiskAppetite+shockRiskAppetiteSpike, 0, 1)
	}

	return events.Event{Type: events.TypeShock, Payload: events.PayloadShock{
		Step: step, PriceHaircutPct: shockPriceHaircutPct,
		LiquidityDrainPct: shockLiquidityDrainPct, BanksAffected: len(solvent),
	}}
}
