package session

import (
	"context"
	"sync"

	"banksim/internal/bank"
	"banksim/internal/events"
	"banksim/internal/kernel"
	"banksim/internal/ledger"
	"banksim/internal/market"
	"banksim/internal/oracle"
	"banksim/internal/rng"
)

// Session is one configured simulation: its own worker, banks, markets,
// and event stream.
type Session struct {
	ID     string
	config Config

	mu    sync.RWMutex
	state State

	currentStep   int
	totalDefaults int

	banks   []*bank.Bank
	markets *market.System
	ledger  *ledger.Ledger
	k       *kernel.Kernel

	bus          *events.Bus
	controlInbox chan Command

	cancel context.CancelFunc
	done   chan struct{}
}

// newSession constructs and initialises a session from config. Always
// returns a session in INITIALIZED state.
func newSession(id string, cfg Config) *Session {
	cfg.applyDefaults()

	banks := make([]*bank.Bank, 0, len(cfg.Banks))
	for i, bc := range cfg.Banks {
		riskAppetite := bc.RiskAppetite
		if riskAppetite == 0 {
			riskAppetite = 0.5
		}
		banks = append(banks, bank.New(i+1, bc.Name, bc.StartingCash, bc.Targets, riskAppetite))
	}

	markets := market.NewSystem()
	for _, mc := range cfg.Markets {
		markets.Add(market.New(mc.ID, mc.Name, mc.InitialPrice))
	}

	l := ledger.New()
	byID := make(map[int]*bank.Bank, len(banks))
	for _, b := range banks {
		byID[b.ID] = b
	}
	for _, c := range cfg.Connections {
		from, to := byID[c.FromID], byID[c.ToID]
		if from == nil || to == nil || c.Amount <= 0 {
			continue
		}
		from.Balance.Cash -= c.Amount
		from.Balance.LoansGiven += c.Amount
		from.Balance.LoanPositions[to.ID] += c.Amount
		to.Balance.Cash += c.Amount
		to.Balance.Borrowed += c.Amount
		toID := to.ID
		l.Append(ledger.Transaction{
			TimeStep: 0, InitiatorID: from.ID, CounterpartyID: &toID,
			CounterpartyTyp: ledger.CounterpartyBank, CounterpartyNm: to.Name,
			Type: ledger.TxLoan, Amount: c.Amount, Reason: "initial interbank loan",
		})
	}

	src := rng.New(cfg.Seed)
	o := oracle.NewCachingOracle(oracle.RuleBasedOracle{}, 0)
	k := kernel.New(banks, markets, l, src, cachingPriority{o}, cfg.UseGameTheory)

	return &Session{
		ID:           id,
		config:       cfg,
		state:        StateInitialized,
		banks:        banks,
		markets:      markets,
		ledger:       l,
		k:            k,
		bus:          events.NewBus(),
		controlInbox: make(chan Command, cfg.ControlInboxSize),
	}
}

// cachingPriority adapts *oracle.CachingOracle (whose Priority returns a
// bare value, already folding in the fallback) to kernel.Priority.
type cachingPriority struct{ o *oracle.CachingOracle }

func (c cachingPriority) Priority(ctx context.Context, obs bank.Observation) bank.Priority {
	return c.o.Priority(ctx, obs)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status is the snapshot returned by the `status` endpoint.
type Status struct {
	SessionID      string
	State          State
	CurrentStep    int
	TotalSteps     int
	BanksCount     int
	Defaults       int
	SurvivingBanks int
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	surviving := 0
	for _, b := range s.banks {
		if !b.IsDefaulted {
			surviving++
		}
	}
	return Status{
		SessionID: s.ID, State: s.state, CurrentStep: s.currentStep, TotalSteps: s.config.TotalSteps,
		BanksCount: len(s.banks), Defaults: s.totalDefaults, SurvivingBanks: surviving,
	}
}

// Subscribe registers a new event subscriber.
func (s *Session) Subscribe() (<-chan events.Event, func()) {
	return s.bus.Subscribe(s.config.EventBufferSize)
}

// InitEvent builds the `init` event payload.
func (s *Session) InitEvent() events.Event {
	bankSnaps := make([]events.BankSnapshot, 0, len(s.banks))
	for _, b := range s.banks {
		bankSnaps = append(bankSnaps, events.BankSnapshot{
			ID: b.ID, Name: b.Name, Capital: b.Balance.TotalAssets(), Cash: b.Balance.Cash, IsDefaulted: b.IsDefaulted,
		})
	}
	marketSnaps := make([]events.MarketSnapshot, 0, s.markets.Len())
	for _, id := range s.markets.IDs() {
		m := s.markets.Get(id)
		marketSnaps = append(marketSnaps, events.MarketSnapshot{ID: m.ID, Name: m.Name, Price: m.Price, TotalInvested: m.TotalInvested})
	}
	conns := make([]events.ConnectionSnapshot, 0, len(s.config.Connections))
	for _, c := range s.config.Connections {
		conns = append(conns, events.ConnectionSnapshot{From: c.FromID, To: c.ToID, Amount: c.Amount})
	}
	return events.Event{Type: events.TypeInit, Payload: events.PayloadInit{Banks: bankSnaps, Markets: marketSnaps, Connections: conns}}
}
