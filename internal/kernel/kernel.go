// Package kernel implements the nine-phase step executor: the
// deterministic core that, once per tick, drives every solvent bank through
// observation, strategy selection, action execution, market price
// formation, margin/settlement, contagion, and risk-appetite update.
package kernel

import (
	"context"
	"sort"

	"banksim/internal/bank"
	"banksim/internal/events"
	"banksim/internal/ledger"
	"banksim/internal/market"
	"banksim/internal/oracle"
	"banksim/internal/rng"
)

// Priority is the interface the kernel consults for strategic priority,
// consulting the fallback itself on any error.
type Priority interface {
	Priority(ctx context.Context, obs bank.Observation) bank.Priority
}

var _ Priority = (*oracle.CachingOracle)(nil)

// Kernel drives one session's step loop. It owns no goroutines itself —
// the session worker calls Step once per tick.
type Kernel struct {
	Banks   []*bank.Bank // stable ascending id order
	Markets *market.System
	Ledger  *ledger.Ledger
	RNG     *rng.Source
	Oracle  Priority

	UseGameTheory bool

	TotalDefaults int

	marginCalls   map[int]float64
	deferredFlows map[string]float64
	cascadeSeeds  []int
}

// QueueCascadeSeed marks id for inclusion in the next step's initial
// contagion round, even though it was already forced into default by a
// control command rather than tripping the predicate organically.
func (k *Kernel) QueueCascadeSeed(id int) {
	k.cascadeSeeds = append(k.cascadeSeeds, id)
}

func (k *Kernel) drainCascadeSeeds() []int {
	out := k.cascadeSeeds
	k.cascadeSeeds = nil
	return out
}

// New builds a Kernel over the given banks and markets. Banks are sorted
// ascending by id so phase iteration order is stable and deterministic.
func New(banks []*bank.Bank, markets *market.System, l *ledger.Ledger, src *rng.Source, o Priority, useGameTheory bool) *Kernel {
	sorted := append([]*bank.Bank(nil), banks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Kernel{
		Banks:         sorted,
		Markets:       markets,
		Ledger:        l,
		RNG:           src,
		Oracle:        o,
		UseGameTheory: useGameTheory,
		marginCalls:   make(map[int]float64),
		deferredFlows: make(map[string]float64),
	}
}

// BankByID returns the bank with the given id, or nil.
func (k *Kernel) BankByID(id int) *bank.Bank {
	for _, b := range k.Banks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// defaultedSet returns the set of currently defaulted bank ids.
func (k *Kernel) defaultedSet() map[int]bool {
	out := make(map[int]bool, len(k.Banks))
	for _, b := range k.Banks {
		if b.IsDefaulted {
			out[b.ID] = true
		}
	}
	return out
}

// solventBanks returns non-defaulted banks in stable id order.
func (k *Kernel) solventBanks() []*bank.Bank {
	out := make([]*bank.Bank, 0, len(k.Banks))
	for _, b := range k.Banks {
		if !b.IsDefaulted {
			out = append(out, b)
		}
	}
	return out
}

// marketsByID returns the full market set as a policy-friendly summary map.
func (k *Kernel) marketsByID() bank.MarketsSummary {
	out := make(bank.MarketsSummary, k.Markets.Len())
	for _, id := range k.Markets.IDs() {
		out[id] = k.Markets.Get(id)
	}
	return out
}

func (k *Kernel) networkDefaultRate() float64 {
	if len(k.Banks) == 0 {
		return 0
	}
	defaults := 0
	for _, b := range k.Banks {
		if b.IsDefaulted {
			defaults++
		}
	}
	return float64(defaults) / float64(len(k.Banks))
}

// Step runs all nine phases for the given step number and returns the
// events emitted. The caller (the session worker) is responsible for
// publishing them to the bus, checking termination, and respecting
// pause/stop between steps.
func (k *Kernel) Step(ctx context.Context, step int) []events.Event {
	var out []events.Event

	out = append(out, k.phaseStepStart(step)...)
	neighborDefaults := k.phaseInformationUpdate()
	decisions := k.phaseStrategySelection(ctx, step, neighborDefaults)
	out = append(out, k.phaseActionExecution(step, decisions, neighborDefaults)...)
	out = append(out, k.phaseMarginAndConstraints(step)...)
	out = append(out, k.phaseSettlementAndClearing(step)...)
	out = append(out, k.phaseMarketUpdate(step)...)
	out = append(out, k.phaseContagionCheck(step)...)
	out = append(out, k.phaseStepEnd(step, neighborDefaults)...)

	return out
}

// AllBanksDefaulted reports whether every bank in the session has
// defaulted. The caller also terminates when currentStep reaches
// totalSteps, a comparison it owns since Kernel doesn't track totalSteps.
func (k *Kernel) AllBanksDefaulted() bool {
	if len(k.Banks) == 0 {
		return false
	}
	for _, b := range k.Banks {
		if !b.IsDefaulted {
			return false
		}
	}
	return true
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

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
