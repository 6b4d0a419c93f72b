package bank

import (
	"testing"

	"banksim/internal/ledger"
	"banksim/internal/market"
)

func newTestBank() *Bank {
	return New(1, "Alpha", 100, Targets{Leverage: 2, LiquidityRatio: 0.3, MarketExposure: 0.2}, 0.5)
}

func TestExecuteActionIncreaseLendingThenDecrease(t *testing.T) {
	b := newTestBank()
	l := ledger.New()
	cp := 2

	b.ExecuteAction(l, ActionIncreaseLending, 1, &cp, "Beta", "", 30, "lend")
	if b.Balance.Cash != 70 {
		t.Fatalf("Cash=%v, want 70", b.Balance.Cash)
	}
	if b.Balance.LoansGiven != 30 {
		t.Fatalf("LoansGiven=%v, want 30", b.Balance.LoansGiven)
	}
	if b.Balance.LoanPositions[2] != 30 {
		t.Fatalf("LoanPositions[2]=%v, want 30", b.Balance.LoanPositions[2])
	}

	b.ExecuteAction(l, ActionDecreaseLending, 2, &cp, "Beta", "", 10, "repay")
	if b.Balance.Cash != 80 {
		t.Fatalf("Cash=%v, want 80", b.Balance.Cash)
	}
	if b.Balance.LoansGiven != 20 {
		t.Fatalf("LoansGiven=%v, want 20", b.Balance.LoansGiven)
	}

	if got := l.Len(); got != 2 {
		t.Fatalf("ledger Len()=%d, want 2", got)
	}
}

func TestExecuteActionInvestAndDivestMarket(t *testing.T) {
	b := newTestBank()
	l := ledger.New()

	b.ExecuteAction(l, ActionInvestMarket, 1, nil, "", "M1", 20, "invest")
	if b.Balance.Cash != 80 || b.Balance.Investments != 20 {
		t.Fatalf("after invest: cash=%v investments=%v, want 80/20", b.Balance.Cash, b.Balance.Investments)
	}

	b.ExecuteAction(l, ActionDivestMarket, 2, nil, "", "M1", 100, "divest-all")
	if b.Balance.Investments != 0 {
		t.Fatalf("Investments=%v, want 0 (divest clamps to held position)", b.Balance.Investments)
	}
	if b.Balance.Cash != 100 {
		t.Fatalf("Cash=%v, want 100 after full divest", b.Balance.Cash)
	}
}

func TestExecuteActionNoOpWhenDefaulted(t *testing.T) {
	b := newTestBank()
	b.IsDefaulted = true
	l := ledger.New()
	cp := 2
	b.ExecuteAction(l, ActionIncreaseLending, 1, &cp, "Beta", "", 30, "lend")
	if b.Balance.Cash != 100 {
		t.Fatalf("Cash=%v, want unchanged 100 for defaulted bank", b.Balance.Cash)
	}
	if l.Len() != 0 {
		t.Fatalf("ledger Len()=%d, want 0", l.Len())
	}
}

func TestApplyLossClampsToAvailableCash(t *testing.T) {
	b := newTestBank()
	l := ledger.New()
	actual := b.ApplyLoss(l, 1000, 3, "cascade")
	if actual != 100 {
		t.Fatalf("ApplyLoss returned %v, want 100 (clamped to cash)", actual)
	}
	if b.Balance.Cash != 0 {
		t.Fatalf("Cash=%v, want 0", b.Balance.Cash)
	}
}

func TestCheckDefaultIsOneWay(t *testing.T) {
	b := newTestBank()
	b.Balance.Borrowed = 1000 // equity goes negative
	if !b.CheckDefault(5) {
		t.Fatalf("CheckDefault()=false, want true on negative equity")
	}
	if !b.IsDefaulted || b.DefaultStep == nil || *b.DefaultStep != 5 {
		t.Fatalf("bank not marked defaulted at step 5: %+v", b)
	}
	b.Balance.Borrowed = 0 // solvent again, but default is terminal
	if b.CheckDefault(6) {
		t.Fatalf("CheckDefault()=true on second call, want false (idempotent-once)")
	}
	if *b.DefaultStep != 5 {
		t.Fatalf("DefaultStep changed to %d, want it to stay 5", *b.DefaultStep)
	}
}

func TestBookInvestmentProfitCreditsCashWithoutChangingBookValue(t *testing.T) {
	b := newTestBank()
	l := ledger.New()
	b.Balance.Cash = 50
	b.Balance.Investments = 20
	b.Balance.InvestmentPositions["M1"] = 20

	m := market.New("M1", "Index", 100)
	m.ApplyFlow(0, constUniform{0.1}) // noise = 0.1*100 = +10 -> price 110, return = 0.10
	markets := MarketsSummary{"M1": m}

	profit := b.BookInvestmentProfit(l, markets, 5)
	wantProfit := 20 * 0.10
	if absf(profit-wantProfit) > 1e-9 {
		t.Fatalf("BookInvestmentProfit()=%v, want %v", profit, wantProfit)
	}
	if b.Balance.Investments != 20 {
		t.Fatalf("Investments=%v, want unchanged 20 (mark-to-market must not touch book value)", b.Balance.Investments)
	}
	if absf(b.Balance.Cash-(50+wantProfit)) > 1e-9 {
		t.Fatalf("Cash=%v, want %v", b.Balance.Cash, 50+wantProfit)
	}
}

type constUniform struct{ v float64 }

func (c constUniform) Uniform(lo, hi float64) float64 { return c.v }
