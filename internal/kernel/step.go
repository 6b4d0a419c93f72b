package kernel

import (
	"context"

	"banksim/internal/bank"
	"banksim/internal/events"
	"banksim/internal/ledger"
	"banksim/internal/policy"
)

// phaseStepStart is phase 1. It also resets every market's pending flow
// accumulator (done implicitly: Markets.ApplyAllFlows zeroes accumulators
// after each application, so at step start they already read zero except
// for whatever phase 4 is about to record).
func (k *Kernel) phaseStepStart(step int) []events.Event {
	return []events.Event{{Type: events.TypeStepStart, Payload: events.PayloadStepStart{Step: step}}}
}

// phaseInformationUpdate is phase 2: recompute neighborDefaults per bank by
// scanning its loanPositions (as lender) against the global defaulted set.
func (k *Kernel) phaseInformationUpdate() map[int]int {
	defaulted := k.defaultedSet()
	out := make(map[int]int, len(k.Banks))
	for _, b := range k.Banks {
		if b.IsDefaulted {
			continue
		}
		count := 0
		for borrowerID, amt := range b.Balance.LoanPositions {
			if amt > 0 && defaulted[borrowerID] {
				count++
			}
		}
		out[b.ID] = count
	}
	return out
}

// decision bundles a bank's chosen action with the counterparty/market
// resolved during strategy_selection, for action_execution to consume.
type decision struct {
	bank         *bank.Bank
	action       bank.Action
	reason       string
	counterparty *int
	counterpartyName string
	marketID     string
	priority     bank.Priority
	neighborDefaults int
}

// phaseStrategySelection is phase 3.
func (k *Kernel) phaseStrategySelection(ctx context.Context, step int, neighborDefaults map[int]int) []decision {
	markets := k.marketsByID()
	networkRate := k.networkDefaultRate()
	decisions := make([]decision, 0, len(k.Banks))

	for _, b := range k.solventBanks() {
		obs := b.ObserveLocalState(neighborDefaults[b.ID], markets)
		priority := k.Oracle.Priority(ctx, obs)
		d := policy.Decide(obs, priority, networkRate, k.UseGameTheory, k.RNG)

		dec := decision{bank: b, action: d.Action, reason: d.Reason, priority: priority, neighborDefaults: neighborDefaults[b.ID]}

		switch d.Action {
		case bank.ActionIncreaseLending:
			if cp := k.pickLendCounterparty(b); cp != nil {
				dec.counterparty = &cp.ID
				dec.counterpartyName = cp.Name
			} else if k.Markets.Len() > 0 && b.Balance.Cash > 30 {
				dec.action = bank.ActionInvestMarket
				dec.marketID = k.pickInvestMarket()
			} else {
				dec.action = bank.ActionHoardCash
			}

		case bank.ActionDecreaseLending:
			if cp := k.pickDecreaseCounterparty(b); cp != nil {
				dec.counterparty = &cp
			} else {
				dec.action = bank.ActionHoardCash
			}

		case bank.ActionInvestMarket:
			if k.Markets.Len() > 0 {
				dec.marketID = k.pickInvestMarket()
			} else if cp := k.pickLendCounterparty(b); cp != nil {
				dec.action = bank.ActionIncreaseLending
				dec.counterparty = &cp.ID
				dec.counterpartyName = cp.Name
			} else {
				dec.action = bank.ActionHoardCash
			}

		case bank.ActionDivestMarket:
			if id := k.pickDivestMarket(b); id != "" {
				dec.marketID = id
			} else if k.Markets.Len() > 0 {
				dec.marketID = k.pickInvestMarket()
			} else {
				dec.action = bank.ActionHoardCash
			}
		}

		decisions = append(decisions, dec)
	}
	return decisions
}

func (k *Kernel) pickLendCounterparty(self *bank.Bank) *bank.Bank {
	candidates := make([]*bank.Bank, 0, len(k.Banks))
	for _, b := range k.Banks {
		if b.ID != self.ID && !b.IsDefaulted {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[k.RNG.Intn(len(candidates))]
}

func (k *Kernel) pickDecreaseCounterparty(self *bank.Bank) int {
	ids := make([]int, 0, len(self.Balance.LoanPositions))
	for id, amt := range self.Balance.LoanPositions {
		if amt > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0
	}
	return ids[k.RNG.Intn(len(ids))]
}

func (k *Kernel) pickInvestMarket() string {
	ids := k.Markets.IDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[k.RNG.Intn(len(ids))]
}

func (k *Kernel) pickDivestMarket(self *bank.Bank) string {
	best := ""
	bestAmt := 0.0
	for id, amt := range self.Balance.InvestmentPositions {
		if amt <= 0 {
			continue
		}
		if best == "" || amt > bestAmt {
			best = id
			bestAmt = amt
		}
	}
	return best
}

// phaseActionExecution is phase 4.
func (k *Kernel) phaseActionExecution(step int, decisions []decision, neighborDefaults map[int]int) []events.Event {
	var out []events.Event

	for _, d := range decisions {
		b := d.bank
		cashBefore := b.Balance.Cash

		basePct := k.RNG.Uniform(0.05, 0.20) * b.Balance.Cash
		caution := maxf(0.3, 1-0.15*float64(d.neighborDefaults))
		risk := 0.5 + 1.5*b.RiskAppetite
		sentiment := k.RNG.Uniform(0.7, 1.3)

		var amt float64
		switch d.action {
		case bank.ActionInvestMarket:
			amt = basePct * risk * sentiment * 1.5
		case bank.ActionDivestMarket:
			stressFactor := 1.0
			if b.Balance.LiquidityRatio() < 0.25 {
				stressFactor = 2
			}
			amt = basePct * stressFactor * 1.2
		case bank.ActionIncreaseLending:
			amt = basePct * risk * caution * 1.3
		case bank.ActionDecreaseLending:
			urgency := 1.0
			if b.Balance.Leverage() > 3 {
				urgency = 2
			}
			amt = basePct * urgency * 0.8
		case bank.ActionHoardCash:
			amt = k.RNG.Uniform(0.01, 0.05) * b.Balance.Cash
		}

		amt = k.RNG.Jitter(amt, 0.2)
		amt = clamp(amt, 3, 80)
		amt = minf(amt, b.Balance.Equity()*0.4)
		if amt < 0 {
			amt = 0
		}

		b.ExecuteAction(k.Ledger, d.action, step, d.counterparty, d.counterpartyName, d.marketID, amt, d.reason)

		switch d.action {
		case bank.ActionInvestMarket:
			k.Markets.RecordFlow(d.marketID, amt)
		case bank.ActionDivestMarket:
			k.Markets.RecordFlow(d.marketID, -amt)
			if m := k.Markets.Get(d.marketID); m != nil {
				gain := amt * m.Return()
				b.Balance.Cash += gain
				if absf(gain) > 0.5 {
					out = append(out, events.Event{Type: events.TypeMarketGain, Payload: events.PayloadMarketGain{
						Step: step, BankID: b.ID, MarketID: d.marketID, DivestedAmount: amt,
						MarketReturn: m.Return(), RealizedGain: gain, NewCash: b.Balance.Cash,
					}})
				}
			}
		}

		out = append(out, events.Event{Type: events.TypeTransaction, Payload: events.PayloadTransaction{
			Step: step, FromBank: b.ID, ToBank: d.counterparty, MarketID: d.marketID,
			Action: string(d.action), Amount: amt, Reason: d.reason,
			CashBefore: cashBefore, CashAfter: b.Balance.Cash, CashChange: b.Balance.Cash - cashBefore,
		}})
	}
	return out
}

// phaseMarginAndConstraints is phase 5.
func (k *Kernel) phaseMarginAndConstraints(step int) []events.Event {
	k.marginCalls = make(map[int]float64)
	avgMomentum := k.averageMomentum()

	for _, b := range k.solventBanks() {
		margin := absf(avgMomentum) * b.Balance.MarketExposure()
		if margin > 0.1*b.Balance.Cash {
			k.marginCalls[b.ID] = margin
		}
	}
	return nil
}

func (k *Kernel) averageMomentum() float64 {
	ids := k.Markets.IDs()
	if len(ids) == 0 {
		return 0
	}
	sum := 0.0
	for _, id := range ids {
		m := k.Markets.Get(id)
		hist := m.PriceHistory()
		if len(hist) >= 4 {
			sum += 0.1 * (hist[len(hist)-2] - hist[len(hist)-4])
		}
	}
	return sum / float64(len(ids))
}

// phaseSettlementAndClearing is phase 6.
func (k *Kernel) phaseSettlementAndClearing(step int) []events.Event {
	for id, marginRequired := range k.marginCalls {
		b := k.BankByID(id)
		if b == nil || b.IsDefaulted {
			continue
		}
		if b.Balance.Cash >= marginRequired {
			continue
		}
		liquidate := minf(b.Balance.Investments, 1.2*marginRequired)
		if liquidate <= 0 {
			continue
		}
		proceeds := liquidate * 0.85
		b.Balance.Investments -= liquidate
		b.Balance.Cash += proceeds
		byMarket := k.liquidateAcrossPositions(b, liquidate)
		for marketID, amt := range byMarket {
			k.deferredFlows[marketID] -= amt * 1e-4
		}
	}
	return nil
}

// liquidateAcrossPositions reduces investmentPositions proportionally by
// the total amount force-liquidated, preserving Invariant A, and reports
// how much was taken from each market so callers can apply price impact.
func (k *Kernel) liquidateAcrossPositions(b *bank.Bank, amount float64) map[string]float64 {
	byMarket := make(map[string]float64)
	total := b.Balance.SumInvestmentPositions()
	if total <= 0 {
		return byMarket
	}
	remaining := amount
	for id, pos := range b.Balance.InvestmentPositions {
		if remaining <= 0 {
			break
		}
		share := pos / total * amount
		share = minf(share, pos)
		share = minf(share, remaining)
		b.Balance.InvestmentPositions[id] -= share
		byMarket[id] = share
		remaining -= share
	}
	return byMarket
}

// phaseMarketUpdate is phase 7.
func (k *Kernel) phaseMarketUpdate(step int) []events.Event {
	var out []events.Event

	for _, id := range k.Markets.IDs() {
		if flow, ok := k.deferredFlows[id]; ok {
			k.Markets.RecordFlow(id, flow)
			delete(k.deferredFlows, id)
		}
	}

	before := make(map[string]float64, k.Markets.Len())
	for _, id := range k.Markets.IDs() {
		before[id] = k.Markets.Get(id).Price
	}
	k.Markets.ApplyAllFlows(k.RNG)

	for _, id := range k.Markets.IDs() {
		m := k.Markets.Get(id)
		old := before[id]
		changePct := 0.0
		if old != 0 {
			changePct = (m.Price - old) / old * 100
		}
		if absf(changePct) > 2 {
			out = append(out, events.Event{Type: events.TypeMarketMovement, Payload: events.PayloadMarketMovement{
				Step: step, MarketID: id, OldPrice: old, NewPrice: m.Price, ChangePct: changePct,
			}})
		}
	}

	out = append(out, k.autoProfitTaking(step)...)

	if step%5 == 0 {
		markets := k.marketsByID()
		for _, b := range k.solventBanks() {
			profit := b.BookInvestmentProfit(k.Ledger, markets, step)
			if absf(profit) > 0.1 {
				out = append(out, events.Event{Type: events.TypeProfitBooking, Payload: events.PayloadProfitBooking{
					Step: step, BankID: b.ID, Profit: profit,
				}})
			}
		}
	}

	return out
}

func (k *Kernel) autoProfitTaking(step int) []events.Event {
	var out []events.Event
	markets := k.marketsByID()

	for _, b := range k.solventBanks() {
		for id, pos := range b.Balance.InvestmentPositions {
			if pos <= 0 {
				continue
			}
			m, ok := markets[id]
			if !ok {
				continue
			}
			ret := m.Return()
			f := 0.0
			switch {
			case ret > 0.30:
				f = k.RNG.Uniform(0.5, 0.7)
			case ret > 0.20:
				f = k.RNG.Uniform(0.4, 0.6)
			case ret > 0.10:
				f = k.RNG.Uniform(0.3, 0.5)
			case ret < -0.10:
				f = k.RNG.Uniform(0.4, 0.7)
			case b.RiskAppetite < 0.4 && ret > 0.05:
				f = k.RNG.Uniform(0.15, 0.30)
			default:
				continue
			}

			sellAmt := pos * f
			cashBefore := b.Balance.Cash
			b.Balance.Cash += sellAmt
			b.Balance.Investments -= sellAmt
			b.Balance.InvestmentPositions[id] -= sellAmt
			k.Ledger.Append(ledger.Transaction{
				TimeStep: step, InitiatorID: b.ID, CounterpartyTyp: ledger.CounterpartyMarket,
				CounterpartyNm: id, Type: ledger.TxDivest, Amount: sellAmt, Reason: "Auto profit-taking",
			})
			out = append(out, events.Event{Type: events.TypeTransaction, Payload: events.PayloadTransaction{
				Step: step, FromBank: b.ID, MarketID: id, Action: string(bank.ActionDivestMarket),
				Amount: sellAmt, Reason: "Auto profit-taking",
				CashBefore: cashBefore, CashAfter: b.Balance.Cash, CashChange: sellAmt,
			}})
			gain := sellAmt * ret
			if absf(gain) > 0.5 {
				out = append(out, events.Event{Type: events.TypeMarketGain, Payload: events.PayloadMarketGain{
					Step: step, BankID: b.ID, MarketID: id, DivestedAmount: sellAmt,
					MarketReturn: ret, RealizedGain: gain, NewCash: b.Balance.Cash,
				}})
			}
			// Deferred: the sale itself feeds next step's flow accumulator.
			k.deferredFlows[id] -= sellAmt
		}
	}
	return out
}

// phaseContagionCheck is phase 8.
func (k *Kernel) phaseContagionCheck(step int) []events.Event {
	var out []events.Event
	var newDefaults []int

	for _, b := range k.solventBanks() {
		if b.CheckDefault(step) {
			newDefaults = append(newDefaults, b.ID)
			k.TotalDefaults++
			out = append(out, events.Event{Type: events.TypeDefault, Payload: events.PayloadDefault{
				Step: step, BankID: b.ID, Equity: b.Balance.Equity(),
			}})
		}
	}

	seeded := k.drainCascadeSeeds()
	round := append(append([]int(nil), newDefaults...), seeded...)
	initialDefaults := append([]int(nil), round...)
	cascadeCount := 0

	for r := 0; r < 5 && len(round) > 0; r++ {
		var next []int
		for _, defaultedID := range round {
			for _, lender := range k.Banks {
				if lender.IsDefaulted {
					continue
				}
				exposure := lender.Balance.LoanPositions[defaultedID]
				if exposure <= 0 {
					continue
				}
				lender.ApplyLoss(k.Ledger, exposure, step, "cascade")
				lender.Balance.LoansGiven -= exposure
				delete(lender.Balance.LoanPositions, defaultedID)
				cascadeCount++

				if lender.CheckDefault(step) {
					next = append(next, lender.ID)
					k.TotalDefaults++
					out = append(out, events.Event{Type: events.TypeDefault, Payload: events.PayloadDefault{
						Step: step, BankID: lender.ID, Equity: lender.Balance.Equity(),
					}})
				}
			}
		}
		round = next
	}

	if cascadeCount > 0 {
		out = append(out, events.Event{Type: events.TypeCascade, Payload: events.PayloadCascade{
			Step: step, InitialDefaults: initialDefaults, CascadeCount: cascadeCount,
		}})
	}
	return out
}

// phaseStepEnd is phase 9.
func (k *Kernel) phaseStepEnd(step int, neighborDefaults map[int]int) []events.Event {
	var out []events.Event

	for _, b := range k.solventBanks() {
		bs := b.Balance
		leverageScore := maxf(0, 1-bs.Leverage()/8)
		liquidityScore := minf(1, bs.LiquidityRatio()/0.5)
		equityScore := minf(1, bs.Equity()/100)
		localStress := minf(1, float64(neighborDefaults[b.ID])/5)

		health := (leverageScore*0.3 + liquidityScore*0.3 + equityScore*0.3) * (1 - 0.5*localStress)
		b.RiskAppetite = clamp(0.8*b.RiskAppetite+0.2*health, 0.05, 0.95)
	}

	out = append(out, k.accrueLoans(step)...)

	totalEquity := 0.0
	bankStates := make([]events.BankSnapshot, 0, len(k.Banks))
	for _, b := range k.Banks {
		totalEquity += b.Balance.Equity()
		bankStates = append(bankStates, events.BankSnapshot{
			ID: b.ID, Name: b.Name, Capital: b.Balance.TotalAssets(), Cash: b.Balance.Cash, IsDefaulted: b.IsDefaulted,
		})
	}
	marketStates := make([]events.MarketSnapshot, 0, k.Markets.Len())
	for _, id := range k.Markets.IDs() {
		m := k.Markets.Get(id)
		marketStates = append(marketStates, events.MarketSnapshot{
			ID: m.ID, Name: m.Name, Price: m.Price, TotalInvested: m.TotalInvested,
		})
	}

	out = append(out, events.Event{Type: events.TypeStepEnd, Payload: events.PayloadStepEnd{
		Step: step, TotalDefaults: k.TotalDefaults, TotalEquity: totalEquity,
		BankStates: bankStates, MarketStates: marketStates,
	}})
	return out
}

func (k *Kernel) accrueLoans(step int) []events.Event {
	var out []events.Event
	for _, lender := range k.Banks {
		if lender.IsDefaulted {
			continue
		}
		for borrowerID, principal := range lender.Balance.LoanPositions {
			if principal <= 0 {
				continue
			}
			borrower := k.BankByID(borrowerID)
			if borrower == nil || borrower.IsDefaulted {
				continue
			}

			interest := principal * 0.05
			if borrower.Balance.Cash >= interest {
				borrower.Balance.Cash -= interest
				lender.Balance.Cash += interest
				out = append(out, events.Event{Type: events.TypeInterestPayment, Payload: events.PayloadInterestPayment{
					Step: step, FromBank: borrower.ID, ToBank: lender.ID, Amount: interest, LoanBalance: principal,
				}})
			}

			repay := minf(principal*0.10, borrower.Balance.Cash*0.30)
			if repay > 0 {
				borrower.Balance.Cash -= repay
				lender.Balance.Cash += repay
				lender.Balance.LoansGiven -= repay
				lender.Balance.LoanPositions[borrowerID] -= repay
				out = append(out, events.Event{Type: events.TypeLoanRepayment, Payload: events.PayloadLoanRepayment{
					Step: step, FromBank: borrower.ID, ToBank: lender.ID, Amount: repay,
					RemainingBalance: lender.Balance.LoanPositions[borrowerID],
				}})
			}
		}
	}
	return out
}
