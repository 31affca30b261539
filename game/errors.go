package game

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTableFull        = errors.New("table is full")
	ErrTableClosed      = errors.New("table is closed")
	ErrNotSeated        = errors.New("player is not seated at the table")
	ErrAlreadySeated    = errors.New("player is already seated at the table")
	ErrInvalidBuyIn     = errors.New("invalid buy-in")
	ErrInvalidIdentity  = errors.New("invalid player identity")
	ErrNotEnoughPlayers = errors.New("not enough players to deal")
	ErrHandInProgress   = errors.New("a hand is in progress")
	ErrInvalidOptions   = errors.New("invalid table options")
	ErrDeckExhausted    = errors.New("deck does not hold enough cards for the hand")
	// ErrTournamentSeat is returned when a player tries to join or leave a
	// tournament table directly. Tournament seats belong to the coordinator.
	ErrTournamentSeat = errors.New("tournament seats are assigned by the tournament")
)

type RejectReason string

const (
	ReasonNoHand          RejectReason = "no hand in progress"
	ReasonNotYourTurn     RejectReason = "not your turn"
	ReasonInvalidAction   RejectReason = "invalid action"
	ReasonCheckNotAllowed RejectReason = "cannot check facing a bet"
	ReasonCannotRaise     RejectReason = "cannot raise"
	ReasonRaiseTooSmall   RejectReason = "raise is below the minimum"
	ReasonRaiseAboveStack RejectReason = "raise exceeds stack"
	ReasonAbovePotLimit   RejectReason = "raise exceeds the pot limit"
)

// ActionRejectedError is returned when an action is not legal. The table is unchanged.
type ActionRejectedError struct {
	Seat   int
	Action ActionType
	Amount int64
	Reason RejectReason
}

func (e *ActionRejectedError) Error() string {
	return fmt.Sprintf("seat %d action %s(%d) rejected: %s", e.Seat, e.Action, e.Amount, e.Reason)
}

func IsActionRejected(err error) (*ActionRejectedError, bool) {
	var rejected *ActionRejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}
