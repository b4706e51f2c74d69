// Package ethics implements the mutual-benefit gate evaluated before
// any externally visible state-mutating action. The gate is a pure
// predicate over benefit scores; it carries no state and never touches
// the action itself.
package ethics

import "fmt"

// Decision is the gate's verdict for one proposed action.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Block reasons, surfaced verbatim to the caller.
const (
	ReasonOtherHarmed  = "counterpart would be harmed"
	ReasonParasitic    = "parasitic pattern, benefit flows one way only"
	ReasonBreaksLoop   = "breaks the mutual feedback loop"
	ReasonNoMutualGain = "no clear mutual benefit"
)

// A parasitic action takes a lot while giving back almost nothing.
const (
	parasiticSelfMin  = 0.7
	parasiticOtherMax = 0.1
)

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Block returns a denying decision with its reason.
func Block(reason string) Decision {
	return Decision{Reason: reason}
}

// Evaluate scores a proposed action. Benefits are in [-1, 1]. The check
// order is fixed and earlier rules win:
//
//  1. the counterpart is harmed: block
//  2. parasitic (high self benefit, near-zero counterpart benefit): block
//  3. the action breaks the mutual relationship: block
//  4. both sides gain or stay even: allow
//  5. self-sacrifice (self loses, counterpart gains): allow
//  6. anything else: block, no clear mutual benefit
func Evaluate(selfBenefit, otherBenefit float64, breaksLoop bool) Decision {
	switch {
	case otherBenefit < 0:
		return Block(ReasonOtherHarmed)
	case selfBenefit >= parasiticSelfMin && otherBenefit < parasiticOtherMax:
		return Block(ReasonParasitic)
	case breaksLoop:
		return Block(ReasonBreaksLoop)
	case selfBenefit >= 0 && otherBenefit >= 0:
		return Allow()
	case selfBenefit <= 0 && otherBenefit > 0:
		return Allow()
	}
	return Block(ReasonNoMutualGain)
}

// BlockedError is a gate denial as a typed failure. Callers report it
// with its reason; they never substitute a different response for the
// blocked one.
type BlockedError struct {
	Action string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("action %q blocked: %s", e.Action, e.Reason)
}

// Check evaluates an action and converts a denial into a BlockedError.
func Check(action string, selfBenefit, otherBenefit float64, breaksLoop bool) error {
	if d := Evaluate(selfBenefit, otherBenefit, breaksLoop); !d.Allowed {
		return &BlockedError{Action: action, Reason: d.Reason}
	}
	return nil
}
