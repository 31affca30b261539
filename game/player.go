package game

import (
	"strings"

	"github.com/pkg/errors"

	"voyager.com/tableserver/poker"
)

// Player is a seated player. Only the owning table mutates it, under the table lock.
type Player struct {
	SeatIndex  int
	Identity   Identity
	Chips      int64
	HoleCards  []poker.Card
	CurrentBet int64
	// TotalBet is everything committed this hand.
	TotalBet  int64
	HasFolded bool
	IsAllIn   bool
	HasActed  bool
	// InHand is false for players who were not dealt into the current hand.
	InHand   bool
	Status   PlayerStatus
	IsDealer bool
	IsWinner bool
}

func NewPlayer(seat int, identity Identity, chips int64) (*Player, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return nil, errors.Wrap(ErrInvalidIdentity, "empty player id")
	}
	if seat < 0 || seat >= NumSeats {
		return nil, errors.Errorf("invalid seat %d", seat)
	}
	if chips <= 0 {
		return nil, errors.Wrapf(ErrInvalidBuyIn, "chips %d", chips)
	}
	if identity.Name == "" {
		identity.Name = identity.ID
	}
	return &Player{
		SeatIndex: seat,
		Identity:  identity,
		Chips:     chips,
		Status:    Playing,
	}, nil
}

func (p *Player) ID() string {
	return p.Identity.ID
}

func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	p.HasFolded = false
	p.IsAllIn = false
	p.HasActed = false
	p.InHand = false
	p.IsDealer = false
	p.IsWinner = false
}

// canBeDealt reports whether the player takes part in the next hand.
func (p *Player) canBeDealt() bool {
	return p != nil && p.Chips > 0 && p.Status != SittingOut
}

// live players still contend for the pot.
func (p *Player) live() bool {
	return p != nil && p.InHand && !p.HasFolded
}

// canAct players may still put chips in.
func (p *Player) canAct() bool {
	return p.live() && !p.IsAllIn
}

func (p *Player) commit(amount int64) int64 {
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.IsAllIn = true
	}
	return amount
}
