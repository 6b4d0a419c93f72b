package session

import (
	"context"

	"banksim/internal/bank"
	"banksim/internal/events"
)

// run is the per-session cooperative worker: one background goroutine
// advances the step loop, suspending only between steps (to service
// control commands) or when publishing blocks on a full subscriber
// channel.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for {
		s.drainAvailableCommands(ctx)

		state := s.State()
		switch state {
		case StatePaused:
			select {
			case cmd := <-s.controlInbox:
				s.applyCommand(ctx, cmd)
			case <-ctx.Done():
				return
			}
			continue
		case StateStopped, StateCompleted:
			return
		case StateRunning:
			// fall through to step execution
		default:
			return
		}

		s.mu.Lock()
		s.currentStep++
		step := s.currentStep
		s.mu.Unlock()

		out := s.k.Step(ctx, step)
		for _, e := range out {
			s.bus.Publish(ctx, e)
		}

		s.mu.Lock()
		s.totalDefaults = s.k.TotalDefaults
		done := step >= s.config.TotalSteps || s.k.AllBanksDefaulted()
		if done {
			s.state = StateCompleted
		}
		s.mu.Unlock()

		if done {
			s.bus.Publish(ctx, events.Event{Type: events.TypeComplete, Payload: events.PayloadLifecycle{
				Step: step, TotalDefaults: s.totalDefaults, TotalEquity: s.totalEquity(),
			}})
			return
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// drainAvailableCommands applies every command currently queued, without
// blocking, between step iterations rather than mid-phase.
func (s *Session) drainAvailableCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-s.controlInbox:
			s.applyCommand(ctx, cmd)
		default:
			return
		}
	}
}

func (s *Session) applyCommand(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CommandPause:
		if s.State() != StateRunning {
			return
		}
		s.setState(StatePaused)
		s.bus.Publish(ctx, events.Event{Type: events.TypePaused, Payload: events.PayloadLifecycle{Step: s.currentStepSnapshot()}})

	case CommandResume:
		if s.State() != StatePaused {
			return
		}
		s.setState(StateRunning)
		s.bus.Publish(ctx, events.Event{Type: events.TypeResumed, Payload: events.PayloadLifecycle{Step: s.currentStepSnapshot()}})

	case CommandStop:
		s.setState(StateStopped)
		s.bus.Publish(ctx, events.Event{Type: events.TypeStopped, Payload: events.PayloadLifecycle{Step: s.currentStepSnapshot()}})
		s.bus.CloseAll()

	case CommandDeleteBank:
		s.mu.Lock()
		b := s.bankByIDLocked(cmd.BankID)
		if b != nil {
			b.IsDefaulted = true
			s.k.QueueCascadeSeed(b.ID)
		}
		s.mu.Unlock()
		if b != nil {
			s.bus.Publish(ctx, events.Event{Type: events.TypeBankDeleted, Payload: events.PayloadBankDeleted{BankID: b.ID}})
		}

	case CommandTriggerDefault:
		s.mu.Lock()
		b := s.bankByIDLocked(cmd.BankID)
		if b != nil && !b.IsDefaulted {
			b.IsDefaulted = true
			s.k.QueueCascadeSeed(b.ID)
		}
		s.mu.Unlock()
		if b != nil {
			s.bus.Publish(ctx, events.Event{Type: events.TypeDefault, Payload: events.PayloadDefault{
				Step: s.currentStepSnapshot(), BankID: b.ID, Equity: b.Balance.Equity(),
			}})
		}

	case CommandAddCapital:
		s.mu.Lock()
		b := s.bankByIDLocked(cmd.BankID)
		if b != nil {
			b.Balance.Cash += cmd.Amount
		}
		s.mu.Unlock()
		if b != nil {
			s.bus.Publish(ctx, events.Event{Type: events.TypeCapitalAdded, Payload: events.PayloadCapitalAdded{BankID: b.ID, Amount: cmd.Amount}})
		}

	case CommandShock:
		s.mu.Lock()
		e := s.k.Shock(s.currentStep)
		s.mu.Unlock()
		s.bus.Publish(ctx, e)
	}
}

func (s *Session) bankByIDLocked(id int) *bank.Bank {
	for _, b := range s.banks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) currentStepSnapshot() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentStep
}

func (s *Session) totalEquity() float64 {
	total := 0.0
	for _, b := range s.banks {
		total += b.Balance.Equity()
	}
	return total
}
