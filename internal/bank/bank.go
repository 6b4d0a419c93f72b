// Package bank implements the per-bank entity: identity, targets, risk
// appetite, and the action dispatch table that mutates its BalanceSheet and
// appends to the Ledger.
package bank

import (
	"banksim/internal/balancesheet"
	"banksim/internal/ledger"
	"banksim/internal/market"
)

// Action is one of the discrete actions the PolicyEngine may pick.
type Action string

const (
	ActionIncreaseLending Action = "INCREASE_LENDING"
	ActionDecreaseLending Action = "DECREASE_LENDING"
	ActionInvestMarket    Action = "INVEST_MARKET"
	ActionDivestMarket    Action = "DIVEST_MARKET"
	ActionHoardCash       Action = "HOARD_CASH"
)

// Priority is the strategic priority returned by the PriorityOracle.
type Priority string

const (
	PriorityProfit    Priority = "PROFIT"
	PriorityLiquidity Priority = "LIQUIDITY"
	PriorityStability Priority = "STABILITY"
)

// Targets are a bank's steady-state ratio goals, used to compute gaps that
// feed the policy engine's observation.
type Targets struct {
	Leverage       float64
	LiquidityRatio float64
	MarketExposure float64
}

// Bank is one participant in the interbank network.
type Bank struct {
	ID      int
	Name    string
	Balance *balancesheet.BalanceSheet
	Targets Targets

	RiskAppetite float64

	IsDefaulted  bool
	DefaultStep  *int
	pastDefaults int

	LastAction   Action
	LastPriority Priority
}

// New creates a solvent bank with the given starting cash and risk
// appetite.
func New(id int, name string, startingCash float64, targets Targets, riskAppetite float64) *Bank {
	b := &Bank{
		ID:           id,
		Name:         name,
		Balance:      balancesheet.New(),
		Targets:      targets,
		RiskAppetite: riskAppetite,
	}
	b.Balance.Cash = startingCash
	return b
}

// Observation is the pure snapshot a Bank exposes to the PolicyEngine. It
// never mutates the bank.
type Observation struct {
	Leverage       float64
	LiquidityRatio float64
	MarketExposure float64
	CapitalRatio   float64
	LoanExposure   float64

	LeverageGap float64
	LiquidityGap float64
	ExposureGap  float64

	LocalStress  float64
	RiskAppetite float64

	Cash        float64
	Equity      float64
	Investments float64
	LoansGiven  float64
	Borrowed    float64

	HasMarkets        bool
	BestMarketReturn  float64
	BestMarketPosition string
	TotalInvested     float64
}

// MarketsSummary is the minimal per-market info the bank needs to evaluate
// its held positions without reaching into the market system directly.
type MarketsSummary map[string]*market.Market

// ObserveLocalState builds the pure observation consumed by the policy
// engine.
func (b *Bank) ObserveLocalState(neighborDefaults int, markets MarketsSummary) Observation {
	bs := b.Balance
	obs := Observation{
		Leverage:       bs.Leverage(),
		LiquidityRatio: bs.LiquidityRatio(),
		MarketExposure: bs.MarketExposure(),
		CapitalRatio:   bs.CapitalRatio(),
		LoanExposure:   bs.LoanExposure(),
		LocalStress:    min1(float64(neighborDefaults) / 5),
		RiskAppetite:   b.RiskAppetite,
		Cash:           bs.Cash,
		Equity:         bs.Equity(),
		Investments:    bs.Investments,
		LoansGiven:     bs.LoansGiven,
		Borrowed:       bs.Borrowed,
		TotalInvested:  bs.SumInvestmentPositions(),
	}
	obs.LeverageGap = obs.Leverage - b.Targets.Leverage
	obs.LiquidityGap = b.Targets.LiquidityRatio - obs.LiquidityRatio
	obs.ExposureGap = obs.MarketExposure - b.Targets.MarketExposure

	obs.HasMarkets = len(markets) > 0
	bestReturn := 0.0
	bestPos := ""
	havePosition := false
	for id, amt := range bs.InvestmentPositions {
		if amt <= 0 {
			continue
		}
		m, ok := markets[id]
		if !ok {
			continue
		}
		r := m.Return()
		if !havePosition || r > bestReturn {
			bestReturn = r
			bestPos = id
			havePosition = true
		}
	}
	obs.BestMarketReturn = bestReturn
	obs.BestMarketPosition = bestPos
	return obs
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// ExecuteAction applies one action against the balance sheet and ledger.
// ExecuteAction clamps amount to [0, cash*0.5] before applying it,
// whatever range the caller used. No-ops for a defaulted bank.
func (b *Bank) ExecuteAction(l *ledger.Ledger, action Action, step int, counterpartyID *int, counterpartyName string, marketID string, amount float64, reason string) {
	if b.IsDefaulted {
		return
	}
	amount = clamp(amount, 0, b.Balance.Cash*0.5)
	bs := b.Balance

	switch action {
	case ActionIncreaseLending:
		if counterpartyID == nil || amount <= 0 {
			return
		}
		bs.Cash -= amount
		bs.LoansGiven += amount
		bs.LoanPositions[*counterpartyID] += amount
		l.Append(ledger.Transaction{
			TimeStep: step, InitiatorID: b.ID, CounterpartyID: counterpartyID,
			CounterpartyTyp: ledger.CounterpartyBank, CounterpartyNm: counterpartyName,
			Type: ledger.TxLoan, Amount: amount, Reason: reason,
		})

	case ActionDecreaseLending:
		if counterpartyID == nil {
			return
		}
		reduce := minf(amount, bs.LoanPositions[*counterpartyID])
		bs.Cash += reduce
		bs.LoansGiven -= reduce
		bs.LoanPositions[*counterpartyID] -= reduce
		l.Append(ledger.Transaction{
			TimeStep: step, InitiatorID: b.ID, CounterpartyID: counterpartyID,
			CounterpartyTyp: ledger.CounterpartyBank, CounterpartyNm: counterpartyName,
			Type: ledger.TxRepay, Amount: reduce, Reason: reason,
		})

	case ActionInvestMarket:
		if marketID == "" || amount <= 0 {
			return
		}
		bs.Cash -= amount
		bs.Investments += amount
		bs.InvestmentPositions[marketID] += amount
		l.Append(ledger.Transaction{
			TimeStep: step, InitiatorID: b.ID,
			CounterpartyTyp: ledger.CounterpartyMarket, CounterpartyNm: marketID,
			Type: ledger.TxInvest, Amount: amount, Reason: reason,
		})

	case ActionDivestMarket:
		if marketID == "" {
			return
		}
		div := minf(amount, bs.InvestmentPositions[marketID])
		bs.Cash += div
		bs.Investments -= div
		bs.InvestmentPositions[marketID] -= div
		l.Append(ledger.Transaction{
			TimeStep: step, InitiatorID: b.ID,
			CounterpartyTyp: ledger.CounterpartyMarket, CounterpartyNm: marketID,
			Type: ledger.TxDivest, Amount: div, Reason: reason,
		})

	case ActionHoardCash:
		l.Append(ledger.Transaction{
			TimeStep: step, InitiatorID: b.ID,
			CounterpartyTyp: ledger.CounterpartySelf, CounterpartyNm: b.Name,
			Type: ledger.TxRepay, Amount: 0, Reason: reason,
		})
	}

	b.LastAction = action
}

// ApplyLoss debits at most the bank's available cash and logs a
// DEFAULT_LOSS entry. Returns the amount actually absorbed.
func (b *Bank) ApplyLoss(l *ledger.Ledger, amount float64, step int, source string) float64 {
	actual := minf(amount, b.Balance.Cash)
	b.Balance.Cash -= actual
	l.Append(ledger.Transaction{
		TimeStep: step, InitiatorID: b.ID,
		CounterpartyTyp: ledger.CounterpartySystem, CounterpartyNm: source,
		Type: ledger.TxDefaultLoss, Amount: actual, Reason: source,
	})
	return actual
}

// CheckDefault transitions a solvent bank to defaulted if its balance sheet
// trips the default predicate. Idempotent: once defaulted, always defaulted.
func (b *Bank) CheckDefault(step int) bool {
	if b.IsDefaulted {
		return false
	}
	if !b.Balance.IsDefault() {
		return false
	}
	b.IsDefaulted = true
	s := step
	b.DefaultStep = &s
	b.pastDefaults++
	return true
}

// PastDefaults reports how many times this bank has flipped into default
// (relevant only if a bank could be resurrected; kept for risk features).
func (b *Bank) PastDefaults() int {
	return b.pastDefaults
}

// BookInvestmentProfit marks every held position to market, crediting
// position*market.Return() to cash without touching the investments book
// value. Returns total profit (may be negative).
func (b *Bank) BookInvestmentProfit(l *ledger.Ledger, markets MarketsSummary, step int) float64 {
	bs := b.Balance
	total := 0.0
	for id, pos := range bs.InvestmentPositions {
		if pos <= 0 {
			continue
		}
		m, ok := markets[id]
		if !ok {
			continue
		}
		profit := pos * m.Return()
		bs.Cash += profit
		total += profit
		txType := ledger.TxInvest
		if profit < 0 {
			txType = ledger.TxDivest
		}
		l.Append(ledger.Transaction{
			TimeStep: step, InitiatorID: b.ID,
			CounterpartyTyp: ledger.CounterpartyMarket, CounterpartyNm: id,
			Type: txType, Amount: absf(profit), Reason: "mark-to-market",
		})
	}
	return total
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
