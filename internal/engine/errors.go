package engine

import "errors"

// Guard failures. These are normal negative outcomes reported to the user,
// never system errors: no mutation has happened when one is returned.
var (
	ErrBanned         = errors.New("user is banned")
	ErrNotMember      = errors.New("user has not joined all required channels")
	ErrAlreadyClaimed = errors.New("daily bonus already claimed today")
	ErrBelowMinimum   = errors.New("balance below withdrawal minimum")
	ErrInsufficient   = errors.New("insufficient balance")
	ErrNotAdmin       = errors.New("not an admin")
)
