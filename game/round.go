package game

import (
	"voyager.com/tableserver/history"
	"voyager.com/tableserver/poker"
)

// nextPhase closes the betting round: bets are swept into the pot and the next
// street is dealt. When at most one player can still bet the board is run out
// and the hand goes to showdown.
func (t *Table) nextPhase() {
	t.clearTurnTask()
	t.activeSeat = -1
	for _, p := range t.seats {
		if p != nil {
			p.CurrentBet = 0
			p.HasActed = false
		}
	}
	t.currentBet = 0
	t.minRaise = t.bigBlind

	if t.phase == River {
		t.phase = Showdown
		t.showdown()
		return
	}

	if t.count((*Player).canAct) <= 1 {
		for t.phase < River {
			t.dealStreet()
		}
		t.phase = Showdown
		t.showdown()
		return
	}

	t.dealStreet()
	t.emitState()
	t.setActive(t.nextSeat(t.dealerIndex, t.needsAction))
}

func (t *Table) dealStreet() {
	var cards []poker.Card
	switch t.phase {
	case PreFlop:
		cards = t.mustDraw(3)
		t.phase = Flop
	case Flop:
		cards = t.mustDraw(1)
		t.phase = Turn
	case Turn:
		cards = t.mustDraw(1)
		t.phase = River
	default:
		return
	}
	t.community = append(t.community, cards...)
	t.record(history.Entry{
		Type:  history.EntryCommunity,
		Seat:  -1,
		Cards: poker.CardsToStrings(cards),
	})
	t.recordState("")
	t.logger.Info().
		Str("phase", t.phase.String()).
		Str("board", poker.CardsToString(t.community)).
		Msg("Dealt street")
}

// winByFold gives the whole pot to the last live player. No more cards are dealt.
func (t *Table) winByFold() {
	t.clearTurnTask()
	t.activeSeat = -1
	winner := t.nextSeat(-1, (*Player).live)
	t.phase = Showdown
	s := &Settlement{
		HandID:  t.handID,
		FoldWin: true,
		Pots: []PotResult{{
			Amount:   t.pot,
			Eligible: []int{winner},
			Winners:  []int{winner},
			Shares:   []int64{t.pot},
		}},
		Payouts: map[int]int64{winner: t.pot},
	}
	t.finishHand(s)
}
