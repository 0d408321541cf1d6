package purchase

// Status represents the lifecycle state of a purchase.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaid, StatusCancelled:
		return true
	}

	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransitionTo reports whether a purchase in status s may move to target.
func (s Status) CanTransitionTo(target Status) bool {
	return transitionErr(s, target) == nil
}

// transitionErr returns the rejection kind for moving from -> to, or nil.
//
// Only ACTIVE has outgoing edges. Nothing ever returns to ACTIVE.
func transitionErr(from, to Status) error {
	if to == StatusActive || !to.Valid() {
		return ErrInvalidTransition
	}

	switch from {
	case StatusActive:
		return nil
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusPaid:
		if to == StatusCancelled {
			return ErrCannotCancelPaid
		}

		return ErrAlreadyPaid
	}

	return ErrInvalidTransition
}

func checkTransition(p *Purchase, to Status) error {
	kind := transitionErr(p.Status, to)
	if kind == nil {
		return nil
	}

	return &TransitionError{
		Err:        kind,
		PurchaseID: p.ID,
		From:       p.Status,
		To:         to,
	}
}
