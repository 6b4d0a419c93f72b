package session

import (
	"context"

	"banksim/internal/events"
)

// StepSummary is returned by the synchronous step endpoint.
type StepSummary struct {
	Step             int
	Events           []events.Event
	Defaults         []int
	SystemLiquidity  float64
	State            State
}

// StepOnce synchronously executes one step and returns its summary. It is
// the synchronous counterpart to the streaming worker started by Start,
// and the two are mutually exclusive — callers either drive a session
// with Start/Pause/Resume/Stop or step it manually, not both.
func (s *Session) StepOnce(ctx context.Context) (StepSummary, error) {
	s.mu.Lock()
	if !s.state.canStep() {
		before := s.state
		s.mu.Unlock()
		return StepSummary{}, newTransitionError("step", before)
	}
	s.currentStep++
	step := s.currentStep
	s.mu.Unlock()

	out := s.k.Step(ctx, step)
	for _, e := range out {
		s.bus.Publish(ctx, e)
	}

	var defaults []int
	for _, e := range out {
		if e.Type == events.TypeDefault {
			defaults = append(defaults, e.Payload.(events.PayloadDefault).BankID)
		}
	}

	s.mu.Lock()
	s.totalDefaults = s.k.TotalDefaults
	done := step >= s.config.TotalSteps || s.k.AllBanksDefaulted()
	if done {
		s.state = StateCompleted
	}
	state := s.state
	s.mu.Unlock()

	return StepSummary{
		Step: step, Events: out, Defaults: defaults,
		SystemLiquidity: s.systemLiquidity(), State: state,
	}, nil
}

// systemLiquidity is the network-wide cash/totalAssets ratio across
// solvent banks, a summary figure for the step endpoint's response.
func (s *Session) systemLiquidity() float64 {
	cash, assets := 0.0, 0.0
	for _, b := range s.banks {
		if b.IsDefaulted {
			continue
		}
		cash += b.Balance.Cash
		assets += b.Balance.TotalAssets()
	}
	if assets == 0 {
		return 0
	}
	return cash / assets
}
