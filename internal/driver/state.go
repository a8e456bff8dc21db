package driver

import "fmt"

// state tracks where the driver is in the booking workflow. Every
// operation checks it on entry and rejects calls made out of order.
type state int

const (
	stateUninitialized state = iota
	stateAuthenticated
	stateNavigated
	stateSlotSelected
	stateBuddySelected
	stateConfirmed
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateAuthenticated:
		return "authenticated"
	case stateNavigated:
		return "navigated"
	case stateSlotSelected:
		return "slot-selected"
	case stateBuddySelected:
		return "buddy-selected"
	case stateConfirmed:
		return "confirmed"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// WrongStateError reports an operation invoked from a state it does not
// accept.
type WrongStateError struct {
	Op   string
	Have string
	Want string
}

func (e *WrongStateError) Error() string {
	return fmt.Sprintf("%s requires state %s, driver is %s", e.Op, e.Want, e.Have)
}

func (d *Driver) requireState(op string, want state) error {
	if d.state == want {
		return nil
	}
	return &WrongStateError{Op: op, Have: d.state.String(), Want: want.String()}
}

// requireAtLeast accepts the wanted state or any later workflow state,
// but never the closed driver.
func (d *Driver) requireAtLeast(op string, want state) error {
	if d.state >= want && d.state < stateClosed {
		return nil
	}
	return &WrongStateError{Op: op, Have: d.state.String(), Want: want.String() + " or later"}
}
