package api

import (
	"errors"

	"banksim/internal/session"
)

func isNotFound(err error) bool     { return errors.Is(err, session.ErrNotFound) }
func isPrecondition(err error) bool { return errors.Is(err, session.ErrPrecondition) }
func isInboxFull(err error) bool    { return errors.Is(err, session.ErrInboxFull) }

func asTransitionError(err error) (*session.TransitionError, bool) {
	var te *session.TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
