package ledger

import "testing"

func TestAppendAndFilters(t *testing.T) {
	l := New()
	cp := 2
	l.Append(Transaction{TimeStep: 1, InitiatorID: 1, CounterpartyID: &cp, CounterpartyTyp: CounterpartyBank, Type: TxLoan, Amount: 30})
	l.Append(Transaction{TimeStep: 1, InitiatorID: 2, CounterpartyTyp: CounterpartySelf, Type: TxRepay, Amount: 0})
	l.Append(Transaction{TimeStep: 2, InitiatorID: 1, CounterpartyTyp: CounterpartyMarket, Type: TxInvest, Amount: 10})

	if l.Len() != 3 {
		t.Fatalf("Len()=%d, want 3", l.Len())
	}
	if got := len(l.ByBank(2)); got != 2 {
		t.Fatalf("ByBank(2) len=%d, want 2", got)
	}
	if got := len(l.ByTime(1)); got != 2 {
		t.Fatalf("ByTime(1) len=%d, want 2", got)
	}
	if got := len(l.ByType(TxLoan)); got != 1 {
		t.Fatalf("ByType(LOAN) len=%d, want 1", got)
	}

	sum := l.Summary()
	if sum[TxLoan].Count != 1 || sum[TxLoan].Amount != 30 {
		t.Fatalf("Summary()[LOAN]=%+v, want {1 30}", sum[TxLoan])
	}

	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("Len() after Clear()=%d, want 0", l.Len())
	}
}
