package session

import (
	"fmt"

	"banksim/internal/bank"
	"banksim/internal/market"
)

// CreateBank adds a bank while still INITIALIZED.
func (s *Session) CreateBank(cfg BankConfig) (*bank.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return nil, newTransitionError("create_bank", s.state)
	}
	riskAppetite := cfg.RiskAppetite
	if riskAppetite == 0 {
		riskAppetite = 0.5
	}
	id := len(s.banks) + 1
	b := bank.New(id, cfg.Name, cfg.StartingCash, cfg.Targets, riskAppetite)
	s.banks = append(s.banks, b)
	s.k.Banks = append(s.k.Banks, b)
	return b, nil
}

// UpdateBank mutates name/targets/risk appetite of an existing bank while
// INITIALIZED. Zero-valued fields in patch are
// treated as "no change".
type BankPatch struct {
	Name         *string
	StartingCash *float64
	Targets      *bank.Targets
	RiskAppetite *float64
}

func (s *Session) UpdateBank(id int, patch BankPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return newTransitionError("update_bank", s.state)
	}
	b := s.bankByIDLocked(id)
	if b == nil {
		return fmt.Errorf("%w: bank %d", ErrUnknownBank, id)
	}
	if patch.Name != nil {
		b.Name = *patch.Name
	}
	if patch.StartingCash != nil {
		b.Balance.Cash = *patch.StartingCash
	}
	if patch.Targets != nil {
		b.Targets = *patch.Targets
	}
	if patch.RiskAppetite != nil {
		b.RiskAppetite = *patch.RiskAppetite
	}
	return nil
}

// CreateConnection adds an initial interbank loan while INITIALIZED.
func (s *Session) CreateConnection(fromID, toID int, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return newTransitionError("create_connection", s.state)
	}
	from, to := s.bankByIDLocked(fromID), s.bankByIDLocked(toID)
	if from == nil || to == nil {
		return fmt.Errorf("%w: %d or %d", ErrUnknownBank, fromID, toID)
	}
	if amount <= 0 {
		return nil
	}
	from.Balance.Cash -= amount
	from.Balance.LoansGiven += amount
	from.Balance.LoanPositions[to.ID] += amount
	to.Balance.Cash += amount
	to.Balance.Borrowed += amount
	s.config.Connections = append(s.config.Connections, ConnectionConfig{FromID: fromID, ToID: toID, Amount: amount})
	return nil
}

// CreateMarket adds a market while INITIALIZED.
func (s *Session) CreateMarket(cfg MarketConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return newTransitionError("create_market", s.state)
	}
	s.markets.Add(market.New(cfg.ID, cfg.Name, cfg.InitialPrice))
	return nil
}
