// Package invariants checks BalanceSheet Invariant A and Invariant B after
// a step completes, mirroring the shape of a periodic reconciliation pass
// but comparing a bank's book values against itself rather than against an
// external exchange.
package invariants

import (
	"fmt"
	"math"

	"banksim/internal/bank"
)

const tolerance = 1e-6

// Violation describes one invariant breach found for one bank.
type Violation struct {
	BankID int
	Rule   string
	Detail string
}

func (v Violation) Error() string {
	return fmt.Sprintf("bank %d violates %s: %s", v.BankID, v.Rule, v.Detail)
}

// Report is the result of checking every bank in a session.
type Report struct {
	Violations []Violation
}

// OK reports whether no violations were found.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Check runs Invariant A (position sums match book totals) and Invariant B
// (non-negativity) over every bank. Defaulted banks are still checked —
// the predicate is about bookkeeping consistency, not solvency.
func Check(banks []*bank.Bank) Report {
	var violations []Violation
	for _, b := range banks {
		violations = append(violations, checkInvariantA(b)...)
		violations = append(violations, checkInvariantB(b)...)
	}
	return Report{Violations: violations}
}

func checkInvariantA(b *bank.Bank) []Violation {
	var out []Violation
	bs := b.Balance

	sumInvest := bs.SumInvestmentPositions()
	if math.Abs(sumInvest-bs.Investments) > tolerance {
		out = append(out, Violation{
			BankID: b.ID, Rule: "Invariant A",
			Detail: fmt.Sprintf("investments=%v but sum(investmentPositions)=%v", bs.Investments, sumInvest),
		})
	}

	sumLoans := bs.SumLoanPositions()
	if math.Abs(sumLoans-bs.LoansGiven) > tolerance {
		out = append(out, Violation{
			BankID: b.ID, Rule: "Invariant A",
			Detail: fmt.Sprintf("loansGiven=%v but sum(loanPositions)=%v", bs.LoansGiven, sumLoans),
		})
	}
	return out
}

func checkInvariantB(b *bank.Bank) []Violation {
	var out []Violation
	bs := b.Balance

	for name, v := range map[string]float64{
		"cash": bs.Cash, "investments": bs.Investments, "loansGiven": bs.LoansGiven, "borrowed": bs.Borrowed,
	} {
		if v < -tolerance {
			out = append(out, Violation{
				BankID: b.ID, Rule: "Invariant B",
				Detail: fmt.Sprintf("%s=%v is negative", name, v),
			})
		}
	}
	return out
}
