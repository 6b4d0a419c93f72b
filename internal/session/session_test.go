package session

import (
	"context"
	"testing"
	"time"

	"banksim/internal/bank"
	"banksim/internal/events"
)

func testConfig() Config {
	return Config{
		TotalSteps: 5,
		Seed:       1,
		Banks: []BankConfig{
			{Name: "Alpha", StartingCash: 200, Targets: bank.Targets{Leverage: 2, LiquidityRatio: 0.3, MarketExposure: 0.2}, RiskAppetite: 0.5},
			{Name: "Beta", StartingCash: 200, Targets: bank.Targets{Leverage: 2, LiquidityRatio: 0.3, MarketExposure: 0.2}, RiskAppetite: 0.5},
		},
		Markets: []MarketConfig{{ID: "M1", Name: "Index", InitialPrice: 100}},
	}
}

func TestInitProducesInitializedSession(t *testing.T) {
	m := NewManager()
	s := m.Init(testConfig())
	if s.State() != StateInitialized {
		t.Fatalf("State()=%v, want INITIALIZED", s.State())
	}
	if got := s.Status(); got.BanksCount != 2 {
		t.Fatalf("Status().BanksCount=%d, want 2", got.BanksCount)
	}
}

func TestStartRequiresInitialized(t *testing.T) {
	m := NewManager()
	s := m.Init(testConfig())
	if err := m.Start(s.ID); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := m.Start(s.ID); err == nil {
		t.Fatalf("second Start() succeeded, want TransitionError")
	}
	m.Destroy(s.ID)
}

func TestPauseResumeStopLifecycle(t *testing.T) {
	m := NewManager()
	cfg := testConfig()
	cfg.TotalSteps = 1000 // long enough that it won't complete on its own
	s := m.Init(cfg)

	ch, unsub := s.Subscribe()
	defer unsub()

	if err := m.Start(s.ID); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := m.Pause(s.ID); err != nil {
		t.Fatalf("Pause() error: %v", err)
	}
	waitForState(t, s, StatePaused)

	if err := m.Resume(s.ID); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	waitForState(t, s, StateRunning)

	if err := m.Stop(s.ID); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	waitForState(t, s, StateStopped)

	drainUntilClosed(t, ch)
}

func waitForState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session never reached state %v, stuck at %v", want, s.State())
}

func drainUntilClosed(t *testing.T, ch <-chan events.Event) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("event channel never closed after stop")
		}
	}
}

func TestControlAddCapitalCreditsCash(t *testing.T) {
	m := NewManager()
	cfg := testConfig()
	cfg.TotalSteps = 1000
	s := m.Init(cfg)
	if err := m.Start(s.ID); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	before := s.banks[0].Balance.Cash

	if err := m.Control(s.ID, Command{Kind: CommandAddCapital, BankID: 1, Amount: 50}); err != nil {
		t.Fatalf("Control() error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.RLock()
		cash := s.banks[0].Balance.Cash
		s.mu.RUnlock()
		if cash > before {
			break
		}
		time.Sleep(time.Millisecond)
	}
	m.Stop(s.ID)
	m.Destroy(s.ID)

	if s.banks[0].Balance.Cash <= before {
		t.Fatalf("Cash=%v, want > %v after add_capital", s.banks[0].Balance.Cash, before)
	}
}

func TestStepOnceRequiresRunning(t *testing.T) {
	m := NewManager()
	s := m.Init(testConfig())
	_, err := s.StepOnce(context.Background())
	if err == nil {
		t.Fatalf("StepOnce() on INITIALIZED session succeeded, want TransitionError")
	}
}
