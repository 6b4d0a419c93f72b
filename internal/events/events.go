// Package events defines the tagged event union emitted by the kernel and
// session manager, and the bus that streams them to
// subscribers. Every event carries its own `type` tag alongside a typed
// payload so JSON encoding self-describes (json.Marshal on Event emits a
// flat object via MarshalJSON below).
package events

import "encoding/json"

// Type tags an Event's payload shape.
type Type string

const (
	TypeInit          Type = "init"
	TypeStepStart      Type = "step_start"
	TypeTransaction    Type = "transaction"
	TypeMarketGain     Type = "market_gain"
	TypeProfitBooking  Type = "profit_booking"
	TypeInterestPayment Type = "interest_payment"
	TypeLoanRepayment  Type = "loan_repayment"
	TypeDefault        Type = "default"
	TypeCascade        Type = "cascade"
	TypeMarketMovement Type = "market_movement"
	TypeStepEnd        Type = "step_end"
	TypePaused         Type = "paused"
	TypeResumed        Type = "resumed"
	TypeStopped        Type = "stopped"
	TypeComplete       Type = "complete"
	TypeBankDeleted    Type = "bank_deleted"
	TypeCapitalAdded   Type = "capital_added"
	TypeShock          Type = "shock"
)

// Event is one item on the stream: a type tag plus its payload. Payload is
// one of the Payload* structs in payloads.go.
type Event struct {
	Type    Type
	Payload any
}

// MarshalJSON flattens Payload's fields alongside the "type" tag, so a
// subscriber sees a single self-describing object per line on the wire.
func (e Event) MarshalJSON() ([]byte, error) {
	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(payloadJSON, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["type"] = string(e.Type)
	return json.Marshal(fields)
}
